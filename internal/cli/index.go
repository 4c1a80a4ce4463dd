package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the retrieval vector store",
		Long: `Embed one document per row and store the vectors under rag.persist_dir.
An existing store is reused unless --force is given.

Examples:
  GEMINI_API_KEY=... salesdash index --file sales.csv --variant sales
  salesdash index --file sales.csv --force`,
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

			p, closeFn, err := a.openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(a.logger, closeFn)

			stats, err := p.Index(cmd.Context(), ds, force)
			if err != nil {
				return err
			}

			if stats.Reused {
				cmd.Printf("Reused existing store at %s (%d chunks); pass --force to rebuild\n",
					a.cfg.RAG.PersistDir, stats.Chunks)
				return nil
			}
			cmd.Printf("Indexed %d rows into %d chunks at %s in %s\n",
				stats.Documents, stats.Chunks, a.cfg.RAG.PersistDir, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the existing store and re-embed every row")

	return cmd
}
