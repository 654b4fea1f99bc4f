package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/eegmark/internal/toolchain"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Set up the machine for benchmarking",
		Long:  "Clone spack if missing, bootstrap conda through spack, install juliaup, and record the tool directories in the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := toolchain.Setup(cmd.Context(), cfg, logger, os.Stderr); err != nil {
				return err
			}
			if err := cfg.Write(cfgFile); err != nil {
				return err
			}
			logger.Info("wrote config", "path", cfgFile)
			return nil
		},
	}
}
