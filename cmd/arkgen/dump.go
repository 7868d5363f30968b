package main

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the parsed declarations as JSON (debug)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			file, err := parseInput(cmd, cfg)
			if err != nil {
				return err
			}

			var v any = file
			if name, _ := cmd.Flags().GetString("type"); name != "" {
				decl := file.Lookup(name)
				if decl == nil {
					return fmt.Errorf("no declaration named %s in %s", name, cfg.Input)
				}
				v = decl
			}
			data, err := json.Marshal(v, jsontext.WithIndent("  "), jsontext.SpaceAfterColon(true))
			if err != nil {
				return fmt.Errorf("encoding JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", "", "TypeScript declaration file")
	cmd.Flags().String("type", "", "dump only this declaration")
	return cmd
}
