// Package cli implements the salesdash command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/spektr-org/salesdash/internal/config"
)

// Build metadata, set with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	file       string
	variant    string
	dateColumn string
	measure    string
}

// NewRootCmd builds the salesdash command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "salesdash",
		Short: "Salesdash - sales dashboard and question answering over CSV data",
		Long: `Load a sales CSV once and explore it.

- dashboard: headline metrics, monthly and product charts, row preview
- ask: keyword questions answered from the data ("total for Q1 2022"),
  with an optional retrieval fallback backed by Gemini or OpenAI
- serve: the same over a JSON API with CSV upload`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", config.DefaultFile, "Path to the YAML config file")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.StringVarP(&g.file, "file", "f", "", "CSV data file (overrides data.file)")
	pf.StringVar(&g.variant, "variant", "", "Dataset layout: sales or generic")
	pf.StringVar(&g.dateColumn, "date-column", "", "Column the year/month/quarter fields derive from")
	pf.StringVar(&g.measure, "measure", "", "Numeric column questions aggregate")

	rootCmd.AddCommand(newDashboardCmd(g))
	rootCmd.AddCommand(newAskCmd(g))
	rootCmd.AddCommand(newDiscoverCmd(g))
	rootCmd.AddCommand(newIndexCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("salesdash version %s\n", Version)
			cmd.Printf("Git commit: %s\n", GitCommit)
			cmd.Printf("Build date: %s\n", BuildDate)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
