package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/leed_phase_go/internal/config"
	"github.com/user/leed_phase_go/internal/diag"
	"github.com/user/leed_phase_go/internal/parser"
	"github.com/user/leed_phase_go/internal/phaseshift"
)

var (
	// Global flags
	verbose    bool
	configPath string
	phaseDir   string
	precision  int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "phsctl",
	Short: "Inspect and load LEED phase-shift files",
	Long: `phsctl reads phase-shift tables in the CLEED .phs format.

Relative identifiers are looked up as <dir>/<id>.phs, where <dir> comes from
--phase-dir, $CLEED_PHASE or phase_dir in phsctl.yaml. Absolute paths are used
as given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else if cfg, err := config.Load(configPath); err == nil {
			if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
				zcfg.Level = zap.NewAtomicLevelAt(lvl)
			}
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: phsctl.yaml in $XDG_CONFIG_HOME, %APPDATA% or $HOME)")
	rootCmd.PersistentFlags().StringVar(&phaseDir, "phase-dir", "", "phase-shift search directory (overrides $CLEED_PHASE)")
	rootCmd.PersistentFlags().IntVar(&precision, "precision", 0, "parse numbers with 32 or 64 bit precision")

	rootCmd.AddCommand(showCmd, loadCmd, reportCmd)
}

// newRepository builds the repository for one invocation from the config
// file, the environment and the global flags.
func newRepository() (*phaseshift.Repository, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if phaseDir != "" {
		cfg.PhaseDir = phaseDir
	}
	if precision != 0 {
		cfg.Precision = precision
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("source", cfg.Source),
		zap.String("phase_dir", cfg.PhaseDir),
		zap.Int("precision", cfg.Precision),
		zap.Float64("tolerance", cfg.Tolerance))

	opts := append(cfg.RepositoryOptions(), phaseshift.WithSink(diag.NewZapSink(logger)))
	return phaseshift.New(opts...), nil
}

// toVec3 converts the --dr flag value.
func toVec3(vals []float64) (parser.Vec3, error) {
	var dr parser.Vec3
	if len(vals) != 3 {
		return dr, fmt.Errorf("--dr needs 3 components, got %d", len(vals))
	}
	copy(dr[:], vals)
	return dr, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = zap.NewExample()
		}
		diag.NewZapSink(logger).Emit(diag.Event{Severity: diag.Fatal, Message: err.Error()})
		_ = logger.Sync()
		os.Exit(1)
	}
}
