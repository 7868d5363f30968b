package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time.
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "arkgen",
		Short: "Generate ArkType validation schemas from TypeScript declarations",
		Long: `arkgen reads a TypeScript declaration file (such as a generated
api-endpoints.d.ts) and writes an ArkType module with one runtime schema per
declared type.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to an arkgen config file (default: ./arkgen.{yaml,json,toml} if present)")

	root.AddCommand(
		newGenerateCmd(),
		newListCmd(),
		newWatchCmd(),
		newDumpCmd(),
		newFetchCmd(),
		newVersionCmd(),
	)
	return root
}
