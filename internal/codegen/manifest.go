package codegen

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/tsgonest/arkgen/internal/converter"
)

// ManifestFile is the name of the manifest written next to the module.
const ManifestFile = "arkgen.manifest.json"

// Manifest maps every generated type to the file and exports that serve it.
// Tooling reads it to locate a schema without parsing the generated code.
type Manifest struct {
	Mode  Mode                     `json:"mode"`
	Types map[string]ManifestEntry `json:"types"`
}

// ManifestEntry points to a category file and its exports for one type.
type ManifestEntry struct {
	Category  string `json:"category"`
	File      string `json:"file"`
	Schema    string `json:"schema"`
	Guard     string `json:"guard,omitempty"`
	Parse     string `json:"parse,omitempty"`
	SafeParse string `json:"safeParse,omitempty"`
}

// NewManifest creates an empty manifest.
func NewManifest(mode Mode) *Manifest {
	return &Manifest{Mode: mode, Types: make(map[string]ManifestEntry)}
}

// Add records a generated type.
func (m *Manifest) Add(typeName, category, file string, utilities bool) {
	name := converter.BareName(typeName)
	entry := ManifestEntry{
		Category: category,
		File:     file,
		Schema:   converter.SchemaName(typeName),
	}
	if utilities {
		entry.Guard = "is" + name
		entry.Parse = "parse" + name
		entry.SafeParse = "safeParse" + name
	}
	m.Types[typeName] = entry
}

// ManifestJSON serializes the manifest to indented JSON with sorted keys.
func ManifestJSON(m *Manifest) ([]byte, error) {
	return json.Marshal(m, json.Deterministic(true), jsontext.WithIndent("  "), jsontext.SpaceAfterColon(true))
}

// ParseManifest reads a manifest produced by ManifestJSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Types == nil {
		m.Types = make(map[string]ManifestEntry)
	}
	return &m, nil
}
