package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecscan/accel"
)

func newAccelCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accel",
		Short: "Report acceleration modules and the configured one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ISA: %s\n", accel.ISA())
			if features := accel.CPUFeatures(); len(features) > 0 {
				fmt.Fprintf(out, "CPU features: %s\n", strings.Join(features, ", "))
			} else {
				fmt.Fprintln(out, "CPU features: none")
			}
			fmt.Fprintln(out, "Modules:")
			for _, m := range accel.Modules() {
				fmt.Fprintf(out, "  %s %s\n", m.Name, m.Version)
			}

			if cfg.Accel.Module == "" {
				fmt.Fprintln(out, "Configured: none (scalar)")
				return nil
			}
			k, err := accel.Load(cfg.Accel.Module)
			if err != nil {
				fmt.Fprintf(out, "Configured: %s (unavailable: %v)\n", cfg.Accel.Module, err)
				return nil
			}
			fmt.Fprintf(out, "Configured: %s %s, max %d bits\n", k.Info().Name, k.Info().Version, k.MaxBits())
			return nil
		},
	}
}
