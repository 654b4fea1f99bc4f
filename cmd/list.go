package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/eegmark/internal/benchmark"
	"github.com/signalnine/eegmark/internal/pkgman"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list DIR",
		Short: "List the benchmarks under DIR and their package managers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dirs, err := benchmark.Discover(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, dir := range dirs {
				m, err := pkgman.Select(dir, managerOptions(cfg))
				if err != nil {
					fmt.Fprintf(out, "  - %s (error: %v)\n", dir, err)
					continue
				}
				if detail := managerDetail(m); detail != "" {
					fmt.Fprintf(out, "  - %s (%s, %s)\n", dir, m.Kind(), detail)
				} else {
					fmt.Fprintf(out, "  - %s (%s)\n", dir, m.Kind())
				}
			}
			return nil
		},
	}
}

// managerDetail names what a backend installs into, where that is not
// obvious from the directory.
func managerDetail(m pkgman.Manager) string {
	switch m := m.(type) {
	case *pkgman.ContainerManager:
		return "image " + m.Image()
	case *pkgman.CondaManager:
		return "prefix " + m.Prefix()
	case *pkgman.JuliaManager:
		if deps := m.Deps(); len(deps) > 0 {
			return "deps " + strings.Join(deps, ",")
		}
	}
	return ""
}
