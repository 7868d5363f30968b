// Package extractor selects the declaration names a generation run works on.
package extractor

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/tsgonest/arkgen/internal/tsdecl"
)

// matchTimeout bounds a single pattern match. regexp2 backtracks, so a
// pathological user pattern must not hang a run.
const matchTimeout = time.Second

// Options controls which names are extracted.
type Options struct {
	// Include patterns (ECMAScript syntax). When any are set a name must
	// match at least one of them.
	Include []string
	// Exclude patterns. A name matching any of them is dropped.
	Exclude []string
	// Preset adds the include patterns of a named preset.
	Preset string
	// ExportedOnly keeps only exported declarations.
	ExportedOnly bool
	// Max truncates the result after filtering when > 0.
	Max int
}

// Extractor filters declaration names.
type Extractor struct {
	include      []*regexp2.Regexp
	exclude      []*regexp2.Regexp
	exportedOnly bool
	max          int
}

// New compiles the patterns in opts.
func New(opts Options) (*Extractor, error) {
	e := &Extractor{exportedOnly: opts.ExportedOnly, max: opts.Max}

	include := slices.Clone(opts.Include)
	if opts.Preset != "" {
		patterns, ok := PresetPatterns(opts.Preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", opts.Preset, strings.Join(Presets(), ", "))
		}
		include = append(include, patterns...)
	}

	var err error
	if e.include, err = compileAll(include); err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	if e.exclude, err = compileAll(opts.Exclude); err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return e, nil
}

func compileAll(patterns []string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.ECMAScript)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		re.MatchTimeout = matchTimeout
		out = append(out, re)
	}
	return out, nil
}

// Extract lists the top-level alias and interface names of file in source
// order, without duplicates, internal names or filtered names.
func (e *Extractor) Extract(file *tsdecl.SourceFile) []string {
	if file == nil {
		return nil
	}
	var names []string
	for _, name := range file.Names() {
		if e.exportedOnly && !file.Lookup(name).Exported {
			continue
		}
		names = append(names, name)
	}
	return e.Filter(names)
}

// Filter applies the denylist, the patterns and Max to names.
func (e *Extractor) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !e.Match(name) {
			continue
		}
		out = append(out, name)
		if e.max > 0 && len(out) == e.max {
			break
		}
	}
	return out
}

// Match reports whether a single name passes the denylist and the patterns.
func (e *Extractor) Match(name string) bool {
	if IsInternalName(name) {
		return false
	}
	if len(e.include) > 0 && !matchAny(e.include, name) {
		return false
	}
	return !matchAny(e.exclude, name)
}

func matchAny(res []*regexp2.Regexp, name string) bool {
	for _, re := range res {
		// A timed-out match counts as no match.
		if ok, err := re.MatchString(name); err == nil && ok {
			return true
		}
	}
	return false
}

// Extract is a convenience wrapper around New and (*Extractor).Extract.
func Extract(file *tsdecl.SourceFile, opts Options) ([]string, error) {
	e, err := New(opts)
	if err != nil {
		return nil, err
	}
	return e.Extract(file), nil
}

var placeholderNames = map[string]bool{
	"T": true, "U": true, "K": true, "V": true, "P": true, "R": true,
	"Args": true, "Props": true, "State": true,
}

// IsInternalName reports whether name is reserved for internal helpers or
// looks like a generic placeholder.
func IsInternalName(name string) bool {
	return name == "" || strings.HasPrefix(name, "__") || placeholderNames[name]
}
