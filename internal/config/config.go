package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tsgonest/arkgen/internal/codegen"
)

// Config represents the arkgen configuration.
type Config struct {
	Input  string `mapstructure:"input"`  // Declaration file to read (e.g. "api-endpoints.d.ts")
	Output string `mapstructure:"output"` // Output directory for the generated module

	// Type selection. Types wins over Preset; both are narrowed by
	// Include/Exclude and Max.
	Types        []string `mapstructure:"types"`
	Preset       string   `mapstructure:"preset"`
	Include      []string `mapstructure:"include"`
	Exclude      []string `mapstructure:"exclude"`
	Max          int      `mapstructure:"max"`
	ExportedOnly bool     `mapstructure:"exported_only"`

	Mode         string                 `mapstructure:"mode"`          // standalone, extend or replace
	SourceModule string                 `mapstructure:"source_module"` // Import specifier of the source types (extend mode)
	// Paths are tsconfig-style aliases used to infer SourceModule when it
	// is empty, e.g. {"@api/*": ["src/api/*"]}.
	Paths        map[string][]string    `mapstructure:"paths"`
	Complexity   string                 `mapstructure:"complexity"`    // simple, medium or complex
	Utils        bool                   `mapstructure:"utils"`
	Categories   []codegen.CategoryRule `mapstructure:"categories"`

	Force    bool          `mapstructure:"force"` // Ignore the build cache
	Verbose  bool          `mapstructure:"verbose"`
	Strict   bool          `mapstructure:"strict"` // Treat conversion warnings as errors
	Quiet    bool          `mapstructure:"quiet"`  // Suppress warnings
	Interval time.Duration `mapstructure:"interval"`
}

// Complexity levels and the recursion depth each allows.
var complexityDepth = map[string]int{
	"simple":  10,
	"medium":  20,
	"complex": 40,
}

// ComplexityLevels lists the valid complexity names, from shallow to deep.
var ComplexityLevels = []string{"simple", "medium", "complex"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Output:     "schemas",
		Mode:       string(codegen.ModeStandalone),
		Complexity: "medium",
		Interval:   500 * time.Millisecond,
	}
}

// MaxDepth maps the complexity level to the converter's recursion bound.
// Unknown levels fall back to medium.
func (c *Config) MaxDepth() int {
	if d, ok := complexityDepth[strings.ToLower(c.Complexity)]; ok {
		return d
	}
	return complexityDepth["medium"]
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"input":         "input",
	"output":        "output",
	"types":         "types",
	"preset":        "preset",
	"include":       "include",
	"exclude":       "exclude",
	"max":           "max",
	"exported-only": "exported_only",
	"mode":          "mode",
	"source-module": "source_module",
	"complexity":    "complexity",
	"utils":         "utils",
	"force":         "force",
	"verbose":       "verbose",
	"strict":        "strict",
	"quiet":         "quiet",
	"interval":      "interval",
}

// Load resolves the configuration from, in increasing precedence: defaults,
// the config file, ARKGEN_* environment variables and explicitly set flags.
//
// With an empty path, arkgen.{yaml,yml,json,toml} is looked up in the
// working directory and may be absent. An explicit path must exist. flags
// may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("input", def.Input)
	v.SetDefault("output", def.Output)
	v.SetDefault("types", []string{})
	v.SetDefault("preset", "")
	v.SetDefault("include", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("max", 0)
	v.SetDefault("exported_only", false)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("source_module", "")
	v.SetDefault("complexity", def.Complexity)
	v.SetDefault("utils", false)
	v.SetDefault("force", false)
	v.SetDefault("verbose", false)
	v.SetDefault("strict", false)
	v.SetDefault("quiet", false)
	v.SetDefault("interval", def.Interval)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("arkgen")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ARKGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Types = splitList(cfg.Types)
	return &cfg, nil
}

// splitList flattens comma-separated type names and drops blanks, so
// "A, B" from the environment and ["A", "B"] from a file agree. Patterns are
// left alone since they may contain commas.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the config for logical errors and returns the first one.
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if !result.IsValid() {
		return errors.New(result.Errors[0])
	}
	return nil
}
