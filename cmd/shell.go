package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/eegmark/internal/executor"
	"github.com/signalnine/eegmark/internal/pkgman"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [DIR]",
		Short: "Start an interactive shell inside a benchmark environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := pkgman.Select(dir, managerOptions(cfg))
			if err != nil {
				return err
			}
			if c, ok := m.(io.Closer); ok {
				defer c.Close()
			}
			launcher, ok := m.(pkgman.Launcher)
			if !ok {
				return fmt.Errorf("%s environments cannot host a local shell", m.Kind())
			}
			ctx := cmd.Context()
			if err := m.Setup(ctx); err != nil {
				return err
			}
			shell := os.Getenv("SHELL")
			if shell == "" {
				shell = "bash"
			}
			c, err := launcher.Command(ctx, executor.Join(shell, "-i"))
			if err != nil {
				return err
			}
			logger.Info("entering environment", "dir", m.Dir(), "manager", m.Kind())
			return c.Run(ctx, os.Stdin, os.Stdout, os.Stderr)
		},
	}
}
