package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/eegmark/internal/report"
	"github.com/signalnine/eegmark/internal/result"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Generate summary from stored results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runDir string
			if len(args) > 0 {
				resolved, err := filepath.EvalSymlinks(args[0])
				if err != nil {
					return fmt.Errorf("resolving run dir: %w", err)
				}
				runDir = resolved
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if runDir, err = result.LatestRunDir(cfg.Results.Dir); err != nil {
					return err
				}
			}
			return report.Generate(runDir, flagFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
