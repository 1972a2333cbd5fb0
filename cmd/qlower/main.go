// Command qlower lowers OpenQASM programs onto a restricted gate set with
// a configurable library of decomposition rules.
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/config"
	"github.com/HershLalwani/qlower/internal/logging"
)

// app carries the state shared by every subcommand after flag parsing.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "qlower",
		Short: "Lower quantum circuits onto a target gate set",
		Long: `qlower rewrites every gate of an OpenQASM 2.0 program into gates the
configured target accepts, trying decomposition rules in priority order and
backtracking when a choice leads nowhere.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file (default: built-in)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		a.compileCmd(),
		a.checkCmd(),
		a.rulesCmd(),
		a.configCmd(),
		a.viewCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// readSource reads a program from path, or from stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, "read stdin")
		}
		return string(data), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "stat program")
	}
	if info.Size() > config.MaxFileSize {
		return "", errors.Errorf("%s is %d bytes, limit is %d", path, info.Size(), config.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read program")
	}
	return string(data), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
