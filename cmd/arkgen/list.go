package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tsgonest/arkgen/internal/config"
	"github.com/tsgonest/arkgen/internal/diagnostic"
	"github.com/tsgonest/arkgen/internal/generate"
	"github.com/tsgonest/arkgen/internal/tsdecl"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the declarations that would be generated",
		Long: `Print the type names selected by the current options, one per line,
with their declaration kind.

Examples:
  arkgen list -i api-endpoints.d.ts
  arkgen list -i api-endpoints.d.ts --preset users
  arkgen list -i api-endpoints.d.ts --include 'Block$' --max 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			file, err := parseInput(cmd, cfg)
			if err != nil {
				return err
			}
			names, err := generate.Select(file, cfg, nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range names {
				decl := file.Lookup(name)
				exported := ""
				if decl.Exported {
					exported = "exported"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, decl.Kind, exported)
			}
			w.Flush()
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d declaration(s)\n", len(names), len(file.Names()))
			return nil
		},
	}
	addInputFlags(cmd.Flags())
	cmd.Flags().StringSlice("types", nil, "comma-separated type names")
	cmd.Flags().String("preset", "", "named selection")
	cmd.Flags().Bool("exported-only", false, "only exported declarations")
	return cmd
}

// parseInput reads and parses cfg.Input. Syntax errors are printed as
// warnings; the declarations that parsed are still returned.
func parseInput(cmd *cobra.Command, cfg *config.Config) (*tsdecl.SourceFile, error) {
	if cfg.Input == "" {
		return nil, fmt.Errorf("no input file (use --input or set input in the config file)")
	}
	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	file, errs := tsdecl.Parse(cfg.Input, string(data))
	if !cfg.Quiet {
		for _, e := range errs {
			d := diagnostic.Diagnostic{
				Severity: diagnostic.SeverityWarning,
				Category: diagnostic.CategoryParseError,
				Location: diagnostic.Location{File: cfg.Input, Line: e.Line, Column: e.Column},
				Message:  e.Message,
			}
			color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), d.String())
		}
	}
	return file, nil
}
