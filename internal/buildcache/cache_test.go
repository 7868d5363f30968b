package buildcache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCachePath(t *testing.T) {
	tests := []struct {
		outDir string
		want   string
	}{
		{"/project/schemas", "/project/schemas/.arkgen-cache"},
		{"schemas", "schemas/.arkgen-cache"},
		{".", ".arkgen-cache"},
	}
	for _, tt := range tests {
		if got := CachePath(tt.outDir); got != tt.want {
			t.Errorf("CachePath(%q) = %q, want %q", tt.outDir, got, tt.want)
		}
	}
}

func TestHashBytes(t *testing.T) {
	hash1 := HashBytes([]byte("type A = string"))
	if len(hash1) != 32 {
		t.Errorf("expected a 128-bit hex digest, got %q", hash1)
	}
	if hash2 := HashBytes([]byte("type A = string")); hash1 != hash2 {
		t.Errorf("same content produced different hashes: %q vs %q", hash1, hash2)
	}
	if HashBytes([]byte("type A = number")) == hash1 {
		t.Error("different content produced same hash")
	}
}

func TestHashOptions(t *testing.T) {
	base := HashOptions("standalone", "medium", "true")
	if base != HashOptions("standalone", "medium", "true") {
		t.Error("HashOptions must be deterministic")
	}
	if base == HashOptions("extend", "medium", "true") {
		t.Error("different options produced same hash")
	}
	if HashOptions("ab", "c") == HashOptions("a", "bc") {
		t.Error("boundaries between values must matter")
	}
	if HashOptions() == HashOptions("") {
		t.Error("an empty value must still count")
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, FileName)

	if c := Load(cachePath); c != nil {
		t.Fatal("Load should return nil for non-existent file")
	}

	original := New("in", "opts", []string{"/out/scope.ts", "/out/index.ts"})
	if err := Save(cachePath, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := os.ReadFile(cachePath)
	if !strings.Contains(string(data), "\"inputHash\":") {
		t.Errorf("unexpected cache file format:\n%s", data)
	}

	loaded := Load(cachePath)
	if loaded == nil {
		t.Fatal("Load returned nil after Save")
	}
	if loaded.V != original.V {
		t.Errorf("V = %d, want %d", loaded.V, original.V)
	}
	if loaded.InputHash != "in" || loaded.OptionsHash != "opts" {
		t.Errorf("hashes = %q/%q, want in/opts", loaded.InputHash, loaded.OptionsHash)
	}
	if len(loaded.Outputs) != 2 || loaded.Outputs[1] != "/out/index.ts" {
		t.Fatalf("Outputs = %v", loaded.Outputs)
	}
}

func TestLoadCorruptedFile(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), FileName)
	touch(t, cachePath, "not json at all {{{")

	if c := Load(cachePath); c != nil {
		t.Fatal("Load should return nil for corrupted JSON")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), FileName)
	touch(t, cachePath, "")

	if c := Load(cachePath); c != nil {
		t.Fatal("Load should return nil for empty file")
	}
}

func TestIsValid(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "scope.ts")
	touch(t, existing, "export {}")
	missing := filepath.Join(dir, "missing.ts")

	tests := []struct {
		name  string
		cache *Cache
		input string
		opts  string
		want  bool
	}{
		{"nil cache", nil, "in", "opts", false},
		{"schema version mismatch", &Cache{V: SchemaVersion + 1, InputHash: "in", OptionsHash: "opts", Outputs: []string{existing}}, "in", "opts", false},
		{"input changed", New("old", "opts", []string{existing}), "new", "opts", false},
		{"options changed", New("in", "old", []string{existing}), "in", "new", false},
		{"output missing", New("in", "opts", []string{existing, missing}), "in", "opts", false},
		{"no outputs recorded", New("in", "opts", nil), "in", "opts", false},
		{"unreadable input", New("", "opts", []string{existing}), "", "opts", false},
		{"all checks pass", New("in", "opts", []string{existing}), "in", "opts", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cache.IsValid(tt.input, tt.opts); got != tt.want {
				t.Errorf("IsValid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, FileName)

	touch(t, cachePath, `{"v":1}`)
	Delete(cachePath)
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		t.Error("cache file should not exist after delete")
	}

	// Deleting a missing file must not panic.
	Delete(filepath.Join(dir, "nonexistent"))
}

func TestSaveAtomicity(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), FileName)

	if err := Save(cachePath, New("in", "opts", nil)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(cachePath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after successful save")
	}
	if Load(cachePath) == nil {
		t.Fatal("failed to load after atomic save")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "sub", "dir", FileName)

	if err := Save(nestedPath, New("in", "opts", nil)); err != nil {
		t.Fatalf("Save failed to create nested dirs: %v", err)
	}
	if Load(nestedPath) == nil {
		t.Fatal("failed to load from nested directory")
	}
}

func TestRoundTripWithRealFiles(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "api-endpoints.d.ts")
	touch(t, input, "export type A = { a: string }")
	inputHash := hashFile(t, input)
	optsHash := HashOptions("standalone", "medium")

	outDir := filepath.Join(dir, "schemas")
	scope := filepath.Join(outDir, "scope.ts")
	index := filepath.Join(outDir, "index.ts")
	touch(t, scope, "export const schemas = scope({}).export()")
	touch(t, index, `export { schemas } from "./scope"`)

	cachePath := CachePath(outDir)
	if err := Save(cachePath, New(inputHash, optsHash, []string{scope, index})); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Scenario 1: Everything unchanged → valid
	loaded := Load(cachePath)
	if !loaded.IsValid(inputHash, optsHash) {
		t.Error("cache should be valid when nothing changed")
	}

	// Scenario 2: Declarations changed → invalid
	touch(t, input, "export type A = { a: number }")
	if loaded.IsValid(hashFile(t, input), optsHash) {
		t.Error("cache should be invalid when the input changed")
	}

	// Scenario 3: Output file deleted → invalid
	os.Remove(scope)
	if loaded.IsValid(inputHash, optsHash) {
		t.Error("cache should be invalid when output file deleted")
	}
}

// hashFile reads path and hashes its bytes, as the pipeline does.
func hashFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return HashBytes(data)
}
