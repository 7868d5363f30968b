// Package generate runs a full generation: read and parse the declaration
// file, select and convert types, render the ArkType module and write it.
package generate

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsgonest/arkgen/internal/buildcache"
	"github.com/tsgonest/arkgen/internal/codegen"
	"github.com/tsgonest/arkgen/internal/config"
	"github.com/tsgonest/arkgen/internal/converter"
	"github.com/tsgonest/arkgen/internal/diagnostic"
	"github.com/tsgonest/arkgen/internal/extractor"
	"github.com/tsgonest/arkgen/internal/metrics"
	"github.com/tsgonest/arkgen/internal/pathalias"
	"github.com/tsgonest/arkgen/internal/tsdecl"
)

// Reporter counter names.
const (
	CounterConverted = "types.converted"
	CounterFallback  = "types.fallback"
	CounterDeferred  = "types.deferred"
	CounterWritten   = "files.written"
)

// Report summarizes a run.
type Report struct {
	// Types lists the generated names in output order: the selection, then
	// the names promoted because they were referenced by name.
	Types []string
	// Promoted is the subset of Types added through deferred references.
	Promoted []string
	// Files are the written paths, manifest included.
	Files []string
	// Fallbacks counts accept-anything substitutions across all types.
	Fallbacks int
	// Cached is set when the run was skipped because nothing changed.
	Cached      bool
	Diagnostics *diagnostic.Collector
	Duration    time.Duration
}

// Option customizes Run.
type Option func(*runner)

// WithReporter publishes counters to r.
func WithReporter(r *metrics.Reporter) Option {
	return func(rn *runner) { rn.reporter = r }
}

// WithDiagnostics collects diagnostics into c instead of a fresh collector.
func WithDiagnostics(c *diagnostic.Collector) Option {
	return func(rn *runner) { rn.diags = c }
}

type runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	reporter *metrics.Reporter
	diags    *diagnostic.Collector
}

// Run generates the module described by cfg. Conversion problems never fail
// the run; they become diagnostics. Run fails on invalid configuration, an
// unreadable input, a failed write, or, in strict mode, on any error
// diagnostic.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Report, error) {
	start := time.Now()
	rn := &runner{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(rn)
	}
	if rn.logger == nil {
		rn.logger = zap.NewNop()
	}
	if rn.diags == nil {
		rn.diags = diagnostic.NewCollector(cfg.Strict, cfg.Quiet)
	}

	report, err := rn.run(ctx)
	if err != nil {
		rn.reporter.SetStage(metrics.StageError)
		return nil, err
	}
	report.Diagnostics = rn.diags
	report.Duration = time.Since(start)
	rn.reporter.SetStage(metrics.StageComplete)
	return report, nil
}

func (rn *runner) run(ctx context.Context) (*Report, error) {
	cfg := rn.cfg
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	cachePath := buildcache.CachePath(cfg.Output)
	inputHash := buildcache.HashBytes(data)
	optionsHash := OptionsFingerprint(cfg)
	previous := buildcache.Load(cachePath)
	if !cfg.Force && previous.IsValid(inputHash, optionsHash) {
		rn.logger.Info("schemas up to date", zap.String("output", cfg.Output))
		return &Report{Cached: true, Files: previous.Outputs}, nil
	}

	file := rn.parse(cfg.Input, data)

	names, err := Select(file, cfg, rn.diags)
	if err != nil {
		return nil, err
	}
	rn.logger.Debug("selected types", zap.Int("count", len(names)))

	results, report, err := rn.convert(ctx, file, names)
	if err != nil {
		return nil, err
	}

	if cfg.Strict && rn.diags.HasErrors() {
		return nil, fmt.Errorf("%d error(s) in strict mode:\n%s", rn.diags.ErrorCount(), rn.diags.FormatAll())
	}

	files, manifest, err := codegen.Generate(results, codegen.Options{
		Mode:         codegen.Mode(cfg.Mode),
		Utilities:    cfg.Utils,
		SourceModule: rn.sourceModule(),
		SourceFile:   cfg.Input,
		Categories:   cfg.Categories,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering module: %w", err)
	}
	manifestJSON, err := codegen.ManifestJSON(manifest)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	files = append(files, codegen.File{Path: codegen.ManifestFile, Content: string(manifestJSON) + "\n"})

	written, err := rn.write(ctx, files)
	if err != nil {
		// Some files may already be overwritten.
		buildcache.Delete(cachePath)
		return nil, err
	}
	report.Files = written
	rn.removeStale(previous, written)

	if err := buildcache.Save(cachePath, buildcache.New(inputHash, optionsHash, written)); err != nil {
		rn.logger.Warn("failed to save build cache", zap.Error(err))
	}

	rn.logger.Info("generated schemas",
		zap.Int("types", len(report.Types)),
		zap.Int("files", len(written)),
		zap.Int("fallbacks", report.Fallbacks),
		zap.String("output", cfg.Output))
	return report, nil
}

// sourceModule returns the configured specifier, or in extend mode infers
// one from the path aliases or the output directory.
func (rn *runner) sourceModule() string {
	cfg := rn.cfg
	if cfg.SourceModule != "" || codegen.Mode(cfg.Mode) != codegen.ModeExtend {
		return cfg.SourceModule
	}
	spec := pathalias.NewResolver(pathalias.Config{Paths: cfg.Paths}).Specifier(cfg.Input, cfg.Output)
	rn.logger.Debug("inferred source module", zap.String("specifier", spec))
	return spec
}

// parse records syntax errors as diagnostics; the parser resynchronizes so
// the remaining declarations are still usable.
func (rn *runner) parse(path string, data []byte) *tsdecl.SourceFile {
	file, errs := tsdecl.Parse(path, string(data))
	for _, e := range errs {
		rn.diags.Warn(diagnostic.CategoryParseError, diagnostic.Location{
			File:   path,
			Line:   e.Line,
			Column: e.Column,
		}, e.Message)
	}
	if len(errs) > 0 {
		rn.logger.Warn("declaration file has syntax errors", zap.Int("count", len(errs)))
	}
	return file
}

// Select picks the names to generate: the explicit type list, otherwise the
// preset, otherwise every extracted name; then include/exclude and max.
// Listed names without a declaration are reported and skipped.
func Select(file *tsdecl.SourceFile, cfg *config.Config, diags *diagnostic.Collector) ([]string, error) {
	opts := extractor.Options{
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
		ExportedOnly: cfg.ExportedOnly,
		Max:          cfg.Max,
	}
	if len(cfg.Types) == 0 {
		opts.Preset = cfg.Preset
		return extractor.Extract(file, opts)
	}

	ex, err := extractor.New(opts)
	if err != nil {
		return nil, err
	}
	var listed []string
	seen := make(map[string]bool, len(cfg.Types))
	for _, name := range cfg.Types {
		if seen[name] {
			continue
		}
		seen[name] = true
		if file.Lookup(name) == nil {
			diags.WarnWithHint(diagnostic.CategoryUnresolvedRef, diagnostic.Location{File: file.Path, TypeName: name},
				fmt.Sprintf("type %s is not declared in the input", name), "check the spelling or run `arkgen list`")
			continue
		}
		listed = append(listed, name)
	}
	return ex.Filter(listed), nil
}

// convert converts every name with a shared converter, resetting its
// context per name. Names referenced by name without being selected are
// promoted and converted too, until no new name appears.
func (rn *runner) convert(ctx context.Context, file *tsdecl.SourceFile, names []string) ([]codegen.Result, *Report, error) {
	conv := converter.New(converter.Options{
		File:        file,
		Generated:   names,
		MaxDepth:    rn.cfg.MaxDepth(),
		Logger:      rn.logger,
		Diagnostics: rn.diags,
	})

	report := &Report{}
	queue := slices.Clone(names)
	queued := make(map[string]bool, len(queue))
	for _, n := range queue {
		queued[n] = true
	}

	var results []codegen.Result
	for i := 0; i < len(queue); i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		name := queue[i]
		schema := conv.ConvertDeclaration(name)
		state := conv.Context()

		decl := file.Lookup(name)
		results = append(results, codegen.Result{
			Name:       name,
			Schema:     schema,
			Doc:        decl.Doc,
			TypeParams: len(decl.TypeParams),
		})
		rn.reporter.Incr(CounterConverted, 1)
		if n := state.Fallbacks(); n > 0 {
			report.Fallbacks += n
			rn.reporter.Incr(CounterFallback, 1)
		}
		rn.logger.Debug("converted type", zap.String("type", name), zap.Int("fallbacks", state.Fallbacks()))

		for _, d := range state.Deferred() {
			if queued[d] || file.Lookup(d) == nil {
				continue
			}
			queued[d] = true
			conv.AddGenerated(d)
			queue = append(queue, d)
			report.Promoted = append(report.Promoted, d)
			rn.reporter.Incr(CounterDeferred, 1)
			rn.logger.Debug("promoted referenced type", zap.String("type", d), zap.String("from", name))
		}
	}
	report.Types = queue
	return results, report, nil
}

// write writes every file concurrently and returns their paths in input order.
func (rn *runner) write(ctx context.Context, files []codegen.File) ([]string, error) {
	if err := os.MkdirAll(rn.cfg.Output, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	paths := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		path := filepath.Join(rn.cfg.Output, f.Path)
		paths[i] = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			rn.reporter.Incr(CounterWritten, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// removeStale deletes outputs of the previous run that this run didn't
// write, such as a category file that no longer has types.
func (rn *runner) removeStale(previous *buildcache.Cache, written []string) {
	if previous == nil {
		return
	}
	for _, old := range previous.Outputs {
		if slices.Contains(written, old) {
			continue
		}
		if err := os.Remove(old); err == nil {
			rn.logger.Debug("removed stale output", zap.String("path", old))
		}
	}
}

// OptionsFingerprint hashes every config value that affects the output.
func OptionsFingerprint(cfg *config.Config) string {
	categories := make([]string, len(cfg.Categories))
	for i, c := range cfg.Categories {
		categories[i] = c.Name + "=" + c.Pattern
	}
	var aliases []string
	for _, alias := range slices.Sorted(maps.Keys(cfg.Paths)) {
		aliases = append(aliases, alias+"="+strings.Join(cfg.Paths[alias], ","))
	}
	return buildcache.HashOptions(
		cfg.Mode,
		cfg.SourceModule,
		strconv.Itoa(cfg.MaxDepth()),
		strconv.FormatBool(cfg.Utils),
		strings.Join(cfg.Types, ","),
		cfg.Preset,
		strings.Join(cfg.Include, "\x00"),
		strings.Join(cfg.Exclude, "\x00"),
		strconv.Itoa(cfg.Max),
		strconv.FormatBool(cfg.ExportedOnly),
		strings.Join(categories, "\x00"),
		strings.Join(aliases, "\x00"),
		cfg.Input,
	)
}
