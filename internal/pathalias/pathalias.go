// Package pathalias computes the module specifier generated files use to
// import the source declarations in extend mode.
//
// A tsconfig-style alias is preferred when one covers the declaration file.
// Matching mirrors TypeScript's paths resolution run backwards:
//  1. Exact (wildcard-free) aliases are checked first
//  2. Wildcard aliases are matched by longest target prefix (ties broken by
//     longest suffix)
//  3. The text the target wildcard covers is substituted into the alias
//
// Without a matching alias the specifier is relative to the output directory.
package pathalias

import (
	"path/filepath"
	"slices"
	"strings"
)

// declExtensions are stripped from the source path, longest first.
var declExtensions = []string{".d.mts", ".d.cts", ".d.ts", ".mts", ".cts", ".ts"}

// Config holds the alias table and the directory its targets are relative to.
type Config struct {
	BaseDir string              // absolute or working-dir relative; "" means the working directory
	Paths   map[string][]string // alias pattern → target paths (e.g., "@api/*" → ["src/api/*"])
}

// Resolver turns declaration file paths into import specifiers.
type Resolver struct {
	baseDir string
	aliases map[string][]string
}

// NewResolver creates a resolver.
func NewResolver(cfg Config) *Resolver {
	base := cfg.BaseDir
	if base == "" {
		base = "."
	}
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return &Resolver{baseDir: base, aliases: cfg.Paths}
}

// HasAliases reports whether the resolver has any path aliases.
func (r *Resolver) HasAliases() bool {
	return len(r.aliases) > 0
}

// Specifier returns the import specifier of sourceFile as seen from a
// module in fromDir.
func (r *Resolver) Specifier(sourceFile, fromDir string) string {
	module := StripExtension(r.abs(sourceFile))
	if spec, ok := r.matchAlias(module); ok {
		return spec
	}
	return toRelative(module, r.abs(fromDir))
}

func (r *Resolver) abs(p string) string {
	if !filepath.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	return filepath.Clean(p)
}

func (r *Resolver) target(t string) string {
	t = filepath.FromSlash(strings.TrimPrefix(t, "./"))
	if !filepath.IsAbs(t) {
		t = filepath.Join(r.baseDir, t)
	}
	return StripExtension(filepath.Clean(t))
}

func (r *Resolver) matchAlias(module string) (string, bool) {
	keys := make([]string, 0, len(r.aliases))
	for k := range r.aliases {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// Phase 1: exact aliases
	for _, key := range keys {
		if strings.Contains(key, "*") {
			continue
		}
		for _, t := range r.aliases[key] {
			if !strings.Contains(t, "*") && r.target(t) == module {
				return key, true
			}
		}
	}

	// Phase 2: wildcard aliases, longest target prefix wins
	longestPrefix, longestSuffix := -1, -1
	var best string
	for _, key := range keys {
		if !strings.Contains(key, "*") {
			continue
		}
		for _, t := range r.aliases[key] {
			star := strings.IndexByte(t, '*')
			if star < 0 {
				continue
			}
			prefix := r.target(t[:star] + "x")
			prefix = prefix[:len(prefix)-1]
			suffix := StripExtension(filepath.FromSlash(t[star+1:]))
			if !strings.HasPrefix(module, prefix) || !strings.HasSuffix(module, suffix) ||
				len(module) < len(prefix)+len(suffix) {
				continue
			}
			if len(prefix) > longestPrefix || (len(prefix) == longestPrefix && len(suffix) > longestSuffix) {
				longestPrefix, longestSuffix = len(prefix), len(suffix)
				matched := filepath.ToSlash(module[len(prefix) : len(module)-len(suffix)])
				best = strings.Replace(key, "*", matched, 1)
			}
		}
	}
	return best, longestPrefix >= 0
}

// StripExtension removes a TypeScript source or declaration extension.
func StripExtension(p string) string {
	for _, ext := range declExtensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

// toRelative returns a relative import of target from dir.
func toRelative(target, dir string) string {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}
