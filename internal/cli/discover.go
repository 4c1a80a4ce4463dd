package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDiscoverCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Print the detected schema",
		Long: `Load the file and print the schema salesdash uses for it: date column,
dimensions (including the derived year, month and quarter fields) and
measures.

Examples:
  salesdash discover --file data.csv --format pretty
  salesdash discover --file data.csv --date-column "Order Date" --measure Revenue`,
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

			var out []byte
			switch strings.ToLower(format) {
			case "json":
				out, err = json.Marshal(ds.Schema())
			case "pretty":
				out, err = json.MarshalIndent(ds.Schema(), "", "  ")
			default:
				return unknownFormat(format, "json", "pretty")
			}
			if err != nil {
				return fmt.Errorf("marshal schema: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "pretty", "Output format: json, pretty")

	return cmd
}
