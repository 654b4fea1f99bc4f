package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/eegmark/internal/score"
)

var flagYAMLOut string

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Extract a score line from a benchmark's native output",
	}
	cmd.AddCommand(newScoreHPCCCmd())
	cmd.AddCommand(newScoreLAMMPSCmd())
	return cmd
}

func newScoreHPCCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hpcc [FILE]",
		Short: "Score an hpcc summary (default hpccoutf.txt)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "hpccoutf.txt"
			if len(args) > 0 {
				path = args[0]
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			values, err := score.ReadKeyValues(f, score.HPCCKeys())
			if err != nil {
				return err
			}
			total, parts, err := score.HPCC(values)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(parts))
			for name := range parts {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "%s: %f\n", name, parts[name])
			}
			fmt.Fprintln(out, score.Line(total))
			return nil
		},
	}
}

func newScoreLAMMPSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lammps [FILE]",
		Short: "Score a LAMMPS log by simulated time per day (default log.lammps)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "log.lammps"
			if len(args) > 0 {
				path = args[0]
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			perf, err := score.ParseLAMMPS(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if flagYAMLOut != "" {
				data, err := yaml.Marshal(perf)
				if err != nil {
					return err
				}
				if err := os.WriteFile(flagYAMLOut, data, 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), score.Line(perf.SimulationLength))
			return nil
		},
	}
	cmd.Flags().StringVar(&flagYAMLOut, "yaml", "", "also write the parsed performance summary to this yaml file")
	return cmd
}
