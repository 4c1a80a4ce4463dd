package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/salesdash/dashboard"
)

func newDashboardCmd(g *globalFlags) *cobra.Command {
	var (
		years     []string
		countries []string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print metrics, charts and a row preview",
		Long: `Compute the dashboard for the rows matching the selected years and
countries. An empty selection means all rows.

Examples:
  salesdash dashboard --file sales.csv --variant sales
  salesdash dashboard --file sales.csv --year 2022 --country India,UK
  salesdash dashboard --file sales.csv --format csv > dashboard.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup(cmd)
			if err != nil {
				return err
			}
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			d, err := dashboard.Build(ds, dashboard.Selection{Years: years, Countries: countries})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "text":
				return dashboard.RenderText(w, d)
			case "json":
				return dashboard.RenderJSON(w, d)
			case "csv":
				return dashboard.RenderCSV(w, d)
			default:
				return unknownFormat(format, "text", "json", "csv")
			}
		},
	}

	cmd.Flags().StringSliceVar(&years, "year", nil, "Years to include (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&countries, "country", nil, "Countries to include (repeatable or comma-separated)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, csv")

	return cmd
}
