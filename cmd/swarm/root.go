package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ShayCichocki/swarm/internal/config"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool

	// Set by PersistentPreRunE.
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Self-organizing specialist routing and stigmergic coordination",
	Long: `Swarm routes tasks to specialists that emerge from the work they do,
and lets independent workers coordinate through decaying signals left on a
shared board.

Core capabilities:
- Routes each task to the specialist whose history resonates with it
- Creates new specialists when nothing resonates, pruning the weakest
- Records outcomes so successful specialists attract similar work
- Keeps a board of approach signals that fade unless reinforced
- Consumes outcome files dropped into an inbox directory`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFromPath(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		// config stays usable so a bad value can be fixed from the CLI.
		if cmd != configCmd {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		logger, err = buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: user config plus .swarm.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(specialistsCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildLogger builds a production logger writing to stderr so command
// output on stdout stays parseable.
func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
