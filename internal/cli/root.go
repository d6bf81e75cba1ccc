// Package cli implements the vecscan command line.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecscan/internal/config"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	cfgFile  string
	logLevel string
	loader   *config.Loader
}

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	return newRootCommand(config.NewLoader(), version, commit, date)
}

func newRootCommand(loader *config.Loader, version, commit, date string) *cobra.Command {
	flags := &rootFlags{loader: loader}

	rootCmd := &cobra.Command{
		Use:   "vecscan",
		Short: "Exact vector similarity search over a key-value store",
		Long: `vecscan stores records with dense or binary-quantized embeddings in an
embedded key-value store and answers exact top-k queries by full scan.

Records are ranked by cosine similarity or, for packed binary vectors, by
Hamming distance. Configuration is read from a YAML file, VECSCAN_*
environment variables and command line flags, in increasing priority.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flags.cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(newInsertCommand(flags))
	rootCmd.AddCommand(newQueryCommand(flags))
	rootCmd.AddCommand(newUpdateCommand(flags))
	rootCmd.AddCommand(newDeleteCommand(flags))
	rootCmd.AddCommand(newKeysCommand(flags))
	rootCmd.AddCommand(newHasCommand(flags))
	rootCmd.AddCommand(newBackupCommand(flags))
	rootCmd.AddCommand(newAccelCommand(flags))
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if version == "dev" || version == "" {
				version = "development"
			}
			if commit == "none" || commit == "" {
				commit = "local-build"
			}
			if date == "unknown" || date == "" {
				date = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vecscan %s (%s) built on %s\n", version, commit, date)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
