// Package cli implements the maskd command tree.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"maskd/internal/config"
	"maskd/internal/runner"
	"maskd/internal/system"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg config.Config
	run *runner.Runner
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	a := &app{}
	root := buildRootCmd(a)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func buildRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "maskd",
		Short:         "Segmentation mask generation and gallery for microscopy images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file (.toml, .yaml, .json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if a.configPath == "" {
			a.configPath = os.Getenv("MASKD_CONFIG")
		}
		if a.configPath != "" {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
		} else {
			a.cfg = config.Default()
		}
		level := a.cfg.Application.LogLevel
		if a.logLevel != "" {
			level = a.logLevel
		}
		setupLogging(level)
		a.run = runner.New(a.cfg, system.Prober{})
		return nil
	}

	root.AddCommand(
		buildGenerateCmd(a),
		buildImagesCmd(a),
		buildMasksCmd(a),
		buildModelsCmd(a),
		buildSystemCmd(a),
		buildServeCmd(a),
		buildWorkerCmd(a),
	)
	return root
}

// setupLogging configures the global zerolog logger. Output goes to
// stderr so the worker's stdout protocol stays clean.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).With().Timestamp().Logger()
}
