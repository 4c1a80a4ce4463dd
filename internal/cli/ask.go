package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/resolver"
)

func newAskCmd(g *globalFlags) *cobra.Command {
	var (
		noFallback bool
		jsonOutput bool
		years      []string
		countries  []string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about the data",
		Long: `Answer a question from the loaded rows.

Sales rules run first (total revenue, boxes, top product, top country,
revenue for a country), then the time resolver (total, average, max, min
and daily breakdown for a year, month or quarter). Questions neither
understands go to the retrieval fallback when it is configured.

Examples:
  salesdash ask --file sales.csv "total for Q1 2022"
  salesdash ask --file sales.csv "average in March 2023"
  salesdash ask --file sales.csv --variant sales "top product" --country India
  salesdash ask --file sales.csv --no-fallback "which salesperson sold the most eclairs?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			a, err := g.setup(cmd)
			if err != nil {
				return err
			}
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			assistant := a.newAssistant(nil)
			if !noFallback {
				if p, closeFn := a.indexedPipeline(cmd.Context(), ds); p != nil {
					defer closeQuietly(a.logger, closeFn)
					assistant = a.newAssistant(p)
				}
			}

			q := resolver.Question{Text: question, Dataset: ds}
			sel := dashboard.Selection{Years: years, Countries: countries}
			if f := sel.Filters(); !f.IsEmpty() {
				q.View = engine.ApplyFilters(ds.View(), f)
			}

			reply := assistant.Answer(cmd.Context(), q)
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reply)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return err
		},
	}

	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "Never call the retrieval fallback")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the answer and its source as JSON")
	cmd.Flags().StringSliceVar(&years, "year", nil, "Restrict sales rules to these years")
	cmd.Flags().StringSliceVar(&countries, "country", nil, "Restrict sales rules to these countries")

	return cmd
}
