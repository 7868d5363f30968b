package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tsgonest/arkgen/internal/config"
	"github.com/tsgonest/arkgen/internal/diagnostic"
	"github.com/tsgonest/arkgen/internal/extractor"
	"github.com/tsgonest/arkgen/internal/generate"
	"github.com/tsgonest/arkgen/internal/logging"
	"github.com/tsgonest/arkgen/internal/metrics"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the ArkType module",
		Long: `Convert the declarations of the input file into an ArkType scope and
write it, split into category files, to the output directory.

Examples:
  arkgen generate --input api-endpoints.d.ts --output ./schemas
  arkgen generate -i api-endpoints.d.ts --preset blocks --utils
  arkgen generate -i api-endpoints.d.ts --types PageObjectResponse,UserObjectResponse
  arkgen generate --config arkgen.yaml --mode extend --source-module ../api-endpoints`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Verbose)
			defer logger.Sync()

			_, err = runGenerate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, logger)
			return err
		},
	}
	addGenerateFlags(cmd.Flags())
	return cmd
}

// addGenerateFlags registers the flags config.Load binds. Their defaults
// only apply when neither the config file nor the environment sets a value.
func addGenerateFlags(fs *pflag.FlagSet) {
	def := config.DefaultConfig()
	addInputFlags(fs)
	fs.StringP("output", "o", def.Output, "output directory")
	fs.StringSlice("types", nil, "comma-separated type names to generate (overrides --preset)")
	fs.String("preset", "", "named selection: "+strings.Join(extractor.Presets(), ", "))
	fs.Bool("exported-only", false, "only generate exported declarations")
	fs.String("mode", def.Mode, "output mode: standalone, extend or replace")
	fs.String("source-module", "", "import specifier of the source types (extend mode)")
	fs.String("complexity", def.Complexity, "recursion depth: "+strings.Join(config.ComplexityLevels, ", "))
	fs.Bool("utils", false, "emit is/parse/safeParse helpers per type")
	fs.Bool("force", false, "regenerate even if the build cache is valid")
	fs.BoolP("verbose", "v", false, "debug logging")
	fs.Bool("strict", false, "fail on any conversion warning")
	fs.Bool("quiet", false, "suppress warnings")
}

// addInputFlags registers the flags that select declarations.
func addInputFlags(fs *pflag.FlagSet) {
	fs.StringP("input", "i", "", "TypeScript declaration file")
	fs.StringArray("include", nil, "only names matching this pattern (repeatable)")
	fs.StringArray("exclude", nil, "drop names matching this pattern (repeatable)")
	fs.Int("max", 0, "stop after this many types (0 = no limit)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Flags())
}

// runGenerate validates cfg, runs the pipeline and prints the outcome.
func runGenerate(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, logger *zap.Logger) (*generate.Report, error) {
	result := cfg.ValidateDetailed()
	if !cfg.Quiet {
		for _, w := range result.Warnings {
			color.New(color.FgYellow).Fprintf(stderr, "warning: %s\n", w)
		}
	}
	if !result.IsValid() {
		for _, e := range result.Errors[1:] {
			color.New(color.FgRed).Fprintf(stderr, "error: %s\n", e)
		}
		return nil, fmt.Errorf("invalid config: %s", result.Errors[0])
	}

	diags := diagnostic.NewCollector(cfg.Strict, cfg.Quiet)
	reporter := metrics.NewReporter()
	defer reporter.Close()

	report, err := generate.Run(ctx, cfg, logger, generate.WithReporter(reporter), generate.WithDiagnostics(diags))
	if err != nil {
		return nil, err
	}
	printDiagnostics(stderr, diags)
	printReport(stdout, cfg, report, reporter.Snapshot())
	return report, nil
}

func printDiagnostics(w io.Writer, diags *diagnostic.Collector) {
	for _, d := range diags.Sorted() {
		c := color.New(color.FgYellow)
		switch d.Severity {
		case diagnostic.SeverityError:
			c = color.New(color.FgRed)
		case diagnostic.SeverityInfo:
			c = color.New(color.FgCyan)
		}
		c.Fprintln(w, d.String())
	}
}

func printReport(w io.Writer, cfg *config.Config, report *generate.Report, snap metrics.Snapshot) {
	green := color.New(color.FgGreen, color.Bold)
	if report.Cached {
		green.Fprintf(w, "✓ %s is up to date\n", cfg.Output)
		return
	}
	green.Fprintf(w, "✓ Generated %d schema(s) in %s (%s)\n",
		snap.Counter(generate.CounterConverted), cfg.Output, report.Duration.Round(time.Millisecond))
	if len(report.Promoted) > 0 {
		fmt.Fprintf(w, "  %d referenced type(s) added: %s\n", len(report.Promoted), strings.Join(report.Promoted, ", "))
	}
	if n := snap.Counter(generate.CounterFallback); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "  %d type(s) contain unknown fallbacks (%d total)\n", n, report.Fallbacks)
	}
	for _, f := range report.Files {
		rel, err := filepath.Rel(cfg.Output, f)
		if err != nil {
			rel = f
		}
		fmt.Fprintf(w, "  %s\n", rel)
	}
	if report.Diagnostics != nil && len(report.Diagnostics.Diagnostics()) > 0 {
		fmt.Fprintf(w, "  %s\n", report.Diagnostics.Summary())
	}
}
