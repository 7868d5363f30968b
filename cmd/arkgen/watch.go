package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsgonest/arkgen/internal/config"
	"github.com/tsgonest/arkgen/internal/logging"
	"github.com/tsgonest/arkgen/internal/runner"
	"github.com/tsgonest/arkgen/internal/watcher"
)

var configNames = []string{"arkgen.yaml", "arkgen.yml", "arkgen.json", "arkgen.toml"}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever the declarations or the config change",
		Long: `Generate once, then watch the input file and the config file and
regenerate on every change. The config is reloaded before each run, so edits
to it take effect without a restart.

Examples:
  arkgen watch -i api-endpoints.d.ts -o ./schemas
  arkgen watch --config arkgen.yaml --poll --interval 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Verbose)
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			poll, _ := cmd.Flags().GetBool("poll")
			var child *runner.Runner
			if line, _ := cmd.Flags().GetString("exec"); line != "" {
				name, args, err := runner.Parse(line)
				if err != nil {
					return fmt.Errorf("--exec: %w", err)
				}
				child = runner.New(name, args, runner.Options{
					Stdout: cmd.OutOrStdout(),
					Stderr: cmd.ErrOrStderr(),
					Logger: logger,
				})
				defer child.Stop()
			}
			return watchLoop(ctx, cmd, cfg, logger, poll, child)
		},
	}
	addGenerateFlags(cmd.Flags())
	cmd.Flags().Duration("interval", config.DefaultConfig().Interval, "polling interval")
	cmd.Flags().Bool("poll", false, "poll for changes instead of using file notifications")
	cmd.Flags().String("exec", "", "command to (re)start after every successful generation, e.g. \"tsc --noEmit\"")
	return cmd
}

func watchLoop(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, poll bool, child *runner.Runner) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	regenerate := func(cfg *config.Config) {
		report, err := runGenerate(ctx, stdout, stderr, cfg, logger)
		if err != nil {
			color.New(color.FgRed).Fprintf(stderr, "error: %v\n", err)
			return
		}
		if child == nil || (report.Cached && child.Running()) {
			return
		}
		if err := child.Restart(); err != nil {
			color.New(color.FgRed).Fprintf(stderr, "error: %v\n", err)
		}
	}

	// A broken first run is reported but keeps watching, so the user can
	// fix the input.
	regenerate(cfg)
	if cfg.Input == "" {
		return fmt.Errorf("no input file to watch")
	}

	paths := []string{cfg.Input}
	if explicit, _ := cmd.Flags().GetString("config"); explicit != "" {
		paths = append(paths, explicit)
	} else {
		for _, name := range configNames {
			if _, err := os.Stat(name); err == nil {
				paths = append(paths, name)
			}
		}
	}

	w := watcher.New(watcher.Options{
		Paths:        paths,
		Poll:         poll,
		PollInterval: cfg.Interval,
		Logger:       logger,
	}, func(events []watcher.Event) {
		for _, e := range events {
			logger.Debug("change detected", zap.String("path", e.Path), zap.String("op", string(e.Op)))
		}
		next, err := loadConfig(cmd)
		if err != nil {
			color.New(color.FgRed).Fprintf(stderr, "error: %v\n", err)
			return
		}
		fmt.Fprintf(stdout, "\n%s changed, regenerating...\n", filepath.Base(events[0].Path))
		regenerate(next)
	})
	defer w.Stop()

	fmt.Fprintf(stdout, "Watching %d file(s). Press Ctrl+C to stop.\n", len(paths))
	return w.Watch(ctx)
}
