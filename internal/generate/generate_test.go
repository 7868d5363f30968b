package generate

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/tsgonest/arkgen/internal/codegen"
	"github.com/tsgonest/arkgen/internal/config"
	"github.com/tsgonest/arkgen/internal/diagnostic"
	"github.com/tsgonest/arkgen/internal/metrics"
	"github.com/tsgonest/arkgen/internal/tsdecl"
)

const endpoints = `
/** A paragraph block. */
export type ParagraphBlock = { type: "paragraph"; rich_text: RichTextItem[] }
export type RichTextItem = { plain_text: string; href: string | null }
export interface UserObjectResponse {
  id: string
  name?: string
}
type Internal = { secret: string }
`

func setup(t *testing.T, source string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "api-endpoints.d.ts")
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Input = input
	cfg.Output = filepath.Join(dir, "schemas")
	return &cfg
}

func run(t *testing.T, cfg *config.Config, opts ...Option) *Report {
	t.Helper()
	report, err := Run(context.Background(), cfg, nil, opts...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func readOutput(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Output, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func TestRun_WritesModule(t *testing.T) {
	cfg := setup(t, endpoints)
	report := run(t, cfg)

	want := []string{"ParagraphBlock", "RichTextItem", "UserObjectResponse", "Internal"}
	if !slices.Equal(report.Types, want) {
		t.Errorf("Types = %v, want %v", report.Types, want)
	}
	if report.Cached {
		t.Error("first run must not be cached")
	}

	var names []string
	for _, f := range report.Files {
		names = append(names, filepath.Base(f))
	}
	wantFiles := []string{"scope.ts", "content.ts", "other.ts", "index.ts", codegen.ManifestFile}
	if !slices.Equal(names, wantFiles) {
		t.Errorf("Files = %v, want %v", names, wantFiles)
	}

	scope := readOutput(t, cfg, "scope.ts")
	for _, s := range []string{
		"// Source: api-endpoints.d.ts",
		"/** A paragraph block. */",
		`"rich_text": "RichTextItemSchema[]"`,
		`"name?": "string"`,
	} {
		if !strings.Contains(scope, s) {
			t.Errorf("scope.ts missing %q:\n%s", s, scope)
		}
	}

	manifest, err := codegen.ParseManifest([]byte(readOutput(t, cfg, codegen.ManifestFile)))
	if err != nil {
		t.Fatal(err)
	}
	if got := manifest.Types["UserObjectResponse"].File; got != "./other.ts" {
		t.Errorf("manifest file for UserObjectResponse = %q", got)
	}
}

func TestRun_ExportedOnlyAndExplicitTypes(t *testing.T) {
	cfg := setup(t, endpoints)
	cfg.ExportedOnly = true
	report := run(t, cfg)
	if slices.Contains(report.Types, "Internal") {
		t.Errorf("exported_only kept Internal: %v", report.Types)
	}

	cfg = setup(t, endpoints)
	cfg.Types = []string{"UserObjectResponse", "Missing", "UserObjectResponse"}
	report = run(t, cfg)
	if !slices.Equal(report.Types, []string{"UserObjectResponse"}) {
		t.Errorf("Types = %v", report.Types)
	}
	if len(report.Diagnostics.ByCategory(diagnostic.CategoryUnresolvedRef)) != 1 {
		t.Errorf("expected one diagnostic for Missing:\n%s", report.Diagnostics.FormatAll())
	}
}

func TestRun_PromotesDeferredReferences(t *testing.T) {
	cfg := setup(t, `
type Tree = { root: Node }
type Node = { children: Node[] }
`)
	cfg.Types = []string{"Tree"}
	reporter := metrics.NewReporter()
	report := run(t, cfg, WithReporter(reporter))

	if !slices.Equal(report.Types, []string{"Tree", "Node"}) {
		t.Errorf("Types = %v", report.Types)
	}
	if !slices.Equal(report.Promoted, []string{"Node"}) {
		t.Errorf("Promoted = %v", report.Promoted)
	}
	scope := readOutput(t, cfg, "scope.ts")
	if !strings.Contains(scope, "NodeSchema: {") || !strings.Contains(scope, `"children": "NodeSchema[]"`) {
		t.Errorf("Node not generated in scope:\n%s", scope)
	}

	snap := reporter.Snapshot()
	if snap.Counter(CounterConverted) != 2 || snap.Counter(CounterDeferred) != 1 {
		t.Errorf("counters = %v", snap.Counters)
	}
	if snap.Stage != metrics.StageComplete {
		t.Errorf("stage = %s", snap.Stage)
	}
}

func TestRun_CacheSkipsUnchanged(t *testing.T) {
	cfg := setup(t, endpoints)
	first := run(t, cfg)

	second := run(t, cfg)
	if !second.Cached {
		t.Fatal("second run should be served from cache")
	}
	if !slices.Equal(second.Files, first.Files) {
		t.Errorf("cached Files = %v, want %v", second.Files, first.Files)
	}

	cfg.Force = true
	if run(t, cfg).Cached {
		t.Error("force must bypass the cache")
	}
	cfg.Force = false

	cfg.Utils = true
	if run(t, cfg).Cached {
		t.Error("changed options must invalidate the cache")
	}
	if !strings.Contains(readOutput(t, cfg, "other.ts"), "export function isUserObjectResponse") {
		t.Error("utilities not rendered after option change")
	}

	if err := os.WriteFile(cfg.Input, []byte(endpoints+"\nexport type Extra = { x: number }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	report := run(t, cfg)
	if report.Cached || !slices.Contains(report.Types, "Extra") {
		t.Errorf("changed input must regenerate, got cached=%v types=%v", report.Cached, report.Types)
	}
}

func TestRun_RemovesStaleOutputs(t *testing.T) {
	cfg := setup(t, endpoints)
	run(t, cfg)
	content := filepath.Join(cfg.Output, "content.ts")
	if _, err := os.Stat(content); err != nil {
		t.Fatal("content.ts should exist after the first run")
	}

	cfg.Types = []string{"UserObjectResponse"}
	run(t, cfg)
	if _, err := os.Stat(content); !os.IsNotExist(err) {
		t.Error("content.ts should be removed once it has no types")
	}
}

func TestRun_StrictFailsOnFallback(t *testing.T) {
	cfg := setup(t, `type A = { f: Missing }`)
	cfg.Strict = true
	reporter := metrics.NewReporter()

	_, err := Run(context.Background(), cfg, nil, WithReporter(reporter))
	if err == nil || !strings.Contains(err.Error(), "strict mode") {
		t.Fatalf("expected strict mode failure, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
		t.Error("nothing should be written when strict mode fails")
	}
	if reporter.Snapshot().Stage != metrics.StageError {
		t.Errorf("stage = %s", reporter.Snapshot().Stage)
	}

	cfg.Strict = false
	report := run(t, cfg)
	if report.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", report.Fallbacks)
	}
	if !strings.Contains(readOutput(t, cfg, "scope.ts"), `"f": "unknown"`) {
		t.Error("unresolved reference should fall back to unknown")
	}
}

func TestRun_RecoversFromSyntaxErrors(t *testing.T) {
	cfg := setup(t, `
type Broken = string |;
type Good = { b: string }
`)
	report := run(t, cfg)
	if !slices.Contains(report.Types, "Good") {
		t.Errorf("Good should survive the syntax error, got %v", report.Types)
	}
	if len(report.Diagnostics.ByCategory(diagnostic.CategoryParseError)) == 0 {
		t.Error("expected a parse error diagnostic")
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := setup(t, endpoints)
	cfg.Mode = "bogus"
	if _, err := Run(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected config error, got %v", err)
	}

	cfg = setup(t, endpoints)
	cfg.Input = filepath.Join(t.TempDir(), "missing.d.ts")
	if _, err := Run(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "reading input") {
		t.Errorf("expected read error, got %v", err)
	}

	cfg = setup(t, endpoints)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, cfg, nil); err == nil {
		t.Error("expected an error for a canceled context")
	}
}

func TestSelect(t *testing.T) {
	file, _ := tsdecl.Parse("a.d.ts", endpoints)

	cfg := config.DefaultConfig()
	cfg.Preset = "users"
	names, err := Select(file, &cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"UserObjectResponse"}) {
		t.Errorf("users preset = %v", names)
	}

	cfg = config.DefaultConfig()
	cfg.Exclude = []string{"^Rich"}
	cfg.Max = 2
	names, _ = Select(file, &cfg, nil)
	if !slices.Equal(names, []string{"ParagraphBlock", "UserObjectResponse"}) {
		t.Errorf("exclude+max = %v", names)
	}

	cfg = config.DefaultConfig()
	cfg.Types = []string{"RichTextItem", "ParagraphBlock"}
	cfg.Include = []string{"Block"}
	names, _ = Select(file, &cfg, nil)
	if !slices.Equal(names, []string{"ParagraphBlock"}) {
		t.Errorf("explicit+include = %v", names)
	}
}

func TestOptionsFingerprint(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	if OptionsFingerprint(&a) != OptionsFingerprint(&b) {
		t.Error("fingerprint must be deterministic")
	}
	b.Categories = []codegen.CategoryRule{{Name: "all"}}
	if OptionsFingerprint(&a) == OptionsFingerprint(&b) {
		t.Error("categories must affect the fingerprint")
	}
	b = config.DefaultConfig()
	b.Complexity = "complex"
	if OptionsFingerprint(&a) == OptionsFingerprint(&b) {
		t.Error("complexity must affect the fingerprint")
	}
}

func TestRun_ExtendInfersSourceModule(t *testing.T) {
	cfg := setup(t, endpoints)
	cfg.Mode = "extend"
	run(t, cfg)
	other := readOutput(t, cfg, "other.ts")
	if !strings.Contains(other, `import type * as api from "../api-endpoints"`) {
		t.Errorf("expected a relative source import:\n%s", other)
	}

	cfg.Paths = map[string][]string{"@gen/*": {filepath.Dir(cfg.Input) + "/*"}}
	run(t, cfg)
	other = readOutput(t, cfg, "other.ts")
	if !strings.Contains(other, `import type * as api from "@gen/api-endpoints"`) {
		t.Errorf("expected the alias import:\n%s", other)
	}
	if !strings.Contains(other, "export type UserObjectResponse = api.UserObjectResponse") {
		t.Errorf("extend mode should re-export source types:\n%s", other)
	}
}
