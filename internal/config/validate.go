package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/tsgonest/arkgen/internal/codegen"
	"github.com/tsgonest/arkgen/internal/extractor"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}

	// Input and output
	if c.Input == "" {
		result.Errors = append(result.Errors, "input: a declaration file is required")
	} else if !strings.HasSuffix(c.Input, ".ts") {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("input: %q doesn't have a .ts extension; expected a .d.ts declaration file", c.Input))
	}
	if c.Output == "" {
		result.Errors = append(result.Errors, "output: an output directory is required")
	} else if filepath.Ext(c.Output) == ".ts" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("output: %q looks like a file; output is a directory (did you mean %q?)", c.Output, filepath.Dir(c.Output)))
	}

	// Mode
	mode, err := codegen.ParseMode(c.Mode)
	if err != nil {
		result.Errors = append(result.Errors, "mode: "+err.Error())
	}
	if mode != codegen.ModeExtend && c.SourceModule != "" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("source_module: ignored in %s mode", c.Mode))
	}
	for _, alias := range slices.Sorted(maps.Keys(c.Paths)) {
		stars := strings.Count(alias, "*")
		if stars > 1 {
			result.Errors = append(result.Errors, fmt.Sprintf("paths: %q may contain at most one '*'", alias))
			continue
		}
		for _, target := range c.Paths[alias] {
			if strings.Count(target, "*") != stars {
				result.Errors = append(result.Errors,
					fmt.Sprintf("paths: target %q of %q must have the same number of '*' as the alias", target, alias))
			}
		}
	}

	if _, ok := complexityDepth[strings.ToLower(c.Complexity)]; !ok {
		result.Errors = append(result.Errors,
			fmt.Sprintf("complexity: invalid value %q; must be one of %s", c.Complexity, strings.Join(ComplexityLevels, ", ")))
	}

	// Selection
	if c.Preset != "" {
		if _, ok := extractor.PresetPatterns(c.Preset); !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("preset: unknown preset %q; available: %s", c.Preset, strings.Join(extractor.Presets(), ", ")))
		}
		if len(c.Types) > 0 {
			result.Warnings = append(result.Warnings, "preset: ignored because types are listed explicitly")
		}
	}
	if c.Max < 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("max: must not be negative, got %d", c.Max))
	}
	for _, p := range c.Include {
		if err := checkPattern(p); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("include: %v", err))
		}
	}
	for _, p := range c.Exclude {
		if err := checkPattern(p); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("exclude: %v", err))
		}
	}

	// Categories
	seenCatchAll := false
	for i, cat := range c.Categories {
		switch {
		case cat.Name == "":
			result.Errors = append(result.Errors, fmt.Sprintf("categories[%d]: name is required", i))
		case cat.Name == "scope" || cat.Name == "index":
			result.Errors = append(result.Errors, fmt.Sprintf("categories[%d]: name %q is reserved", i, cat.Name))
		}
		if cat.Pattern == "" {
			if seenCatchAll {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("categories[%d]: more than one catch-all category; the first one wins", i))
			}
			seenCatchAll = true
			continue
		}
		if err := checkPattern(cat.Pattern); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("categories[%d]: %v", i, err))
		}
	}

	// Diagnostics
	if c.Strict && c.Quiet {
		result.Warnings = append(result.Warnings, "quiet: suppressed warnings are not escalated by strict")
	}

	// Watch
	if c.Interval < 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("interval: must not be negative, got %s", c.Interval))
	} else if c.Interval > 0 && c.Interval < 100*time.Millisecond {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("interval: %s is very short; polling will be CPU-heavy", c.Interval))
	}

	return result
}

func checkPattern(p string) error {
	if _, err := regexp2.Compile(p, regexp2.ECMAScript); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", p, err)
	}
	return nil
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}
