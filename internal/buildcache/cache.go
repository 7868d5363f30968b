// Package buildcache lets arkgen skip regeneration when nothing changed.
//
// A run is skipped only when the declaration bytes, the options fingerprint
// and the set of written files all match the last successful run. Any
// mismatch regenerates everything: one edited declaration can change the
// schema of every type referencing it.
package buildcache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/zeebo/xxh3"
)

// SchemaVersion must be bumped whenever the cache layout or the generated
// module format changes.
const SchemaVersion = 1

// FileName is the cache file inside the output directory.
const FileName = ".arkgen-cache"

// Cache is the record of the last successful run.
type Cache struct {
	V           int      `json:"v"`
	InputHash   string   `json:"inputHash"`   // xxh3-128 of the declaration file
	OptionsHash string   `json:"optionsHash"` // fingerprint of the output-affecting options
	Outputs     []string `json:"outputs"`     // written files, manifest included
}

// New returns a cache record stamped with the current SchemaVersion.
func New(inputHash, optionsHash string, outputs []string) *Cache {
	return &Cache{V: SchemaVersion, InputHash: inputHash, OptionsHash: optionsHash, Outputs: outputs}
}

// CachePath keeps the cache with the outputs, so removing the output
// directory also removes it.
func CachePath(outDir string) string {
	return filepath.Join(outDir, FileName)
}

// Load returns nil when the file is missing or unreadable; a nil *Cache is
// never valid.
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	c := new(Cache)
	if json.Unmarshal(data, c) != nil {
		return nil
	}
	return c
}

// Save writes the cache through a temporary file and a rename so a crash
// never leaves a truncated cache behind.
func Save(path string, c *Cache) error {
	data, err := json.Marshal(c, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}

// Delete removes the cache file, if any.
func Delete(path string) {
	os.Remove(path)
}

// IsValid reports whether generation can be skipped: same version, same
// input and options digests, and every recorded output still on disk.
func (c *Cache) IsValid(inputHash, optionsHash string) bool {
	switch {
	case c == nil, c.V != SchemaVersion, len(c.Outputs) == 0:
		return false
	case inputHash == "", c.InputHash != inputHash, c.OptionsHash != optionsHash:
		return false
	}
	for _, path := range c.Outputs {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// HashBytes returns the hex xxh3-128 digest of data.
func HashBytes(data []byte) string {
	sum := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(sum[:])
}

// HashOptions fingerprints an ordered list of option values. Each value is
// length-prefixed so ("ab", "c") and ("a", "bc") differ.
func HashOptions(values ...string) string {
	h := xxh3.New()
	for _, v := range values {
		fmt.Fprintf(h, "%d:%s", len(v), v)
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}
