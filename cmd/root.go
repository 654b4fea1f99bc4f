package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/pkgman"
)

var (
	cfgFile  string
	logLevel string

	logger = log.Default()
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "eegmark",
		Short:        "Install and run computational benchmarks in isolated environments",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(newInstallCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newYoloCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newShellCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newScoreCmd())
	return root
}

func setupLogging(cmd *cobra.Command) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	log.SetDefault(logger)
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(cfgFile)
}

func managerOptions(cfg *config.Config) pkgman.Options {
	return pkgman.Options{Config: cfg, Logger: logger, Output: os.Stderr}
}
