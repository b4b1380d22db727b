// Package main provides the company updater CLI and trigger server.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/company-updater/internal/config"
	"github.com/jonathan/company-updater/internal/observability"
)

// app carries state built in PersistentPreRunE for subcommands.
type app struct {
	configPath string
	envFiles   []string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	printer *observability.Printer
	lookup  config.LookupFunc
}

func newRootCmd(out io.Writer, lookup config.LookupFunc) *cobra.Command {
	a := &app{lookup: lookup}

	root := &cobra.Command{
		Use:   "company_updater",
		Short: "Keep game company records current with deep research",
		Long: "company_updater refreshes the JSON company records of the game company directory. " +
			"It selects records that are due under update-config.json, researches them with a generative backend " +
			"(optionally grounded in web search results) and merges the findings without losing existing data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.printer = observability.NewPrinter(cmd.OutOrStdout())
			return a.init(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a JSON or YAML config file")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "Env files to load (missing files are ignored)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Print detailed debug information")

	root.AddCommand(
		newUpdateCmd(a),
		newUpdateAllCmd(a),
		newDueCmd(a),
		newListCmd(a),
		newValidateCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
		newPruneCacheCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	if err := config.LoadEnvFiles(a.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath, a.lookup)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Verbose = true
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Verbose, stderr)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = logger
	return nil
}

// newLogger builds a production JSON logger on stderr, at debug level when verbose.
func newLogger(verbose bool, stderr io.Writer) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if stderr == os.Stderr {
		return cfg.Build()
	}
	encoder := zapcore.NewJSONEncoder(cfg.EncoderConfig)
	core := zapcore.NewCore(encoder, zapcore.AddSync(stderr), cfg.Level)
	return zap.New(core), nil
}

func main() {
	root := newRootCmd(os.Stdout, os.LookupEnv)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
