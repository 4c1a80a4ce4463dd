package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/internal/logging"
	"github.com/spektr-org/salesdash/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		host       string
		port       int
		noFallback bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and ask endpoints over HTTP",
		Long: `Start the JSON API. --file preloads a dataset; otherwise the server
waits for POST /api/upload.

Endpoints:
  POST /api/upload     multipart "file" field or raw CSV body
  GET  /api/dashboard  ?year=2022&country=India
  POST /api/ask        {"question": "total for Q1 2022"}
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var ds *dataset.Dataset
			if a.cfg.Data.File != "" {
				if ds, err = a.loadDataset(); err != nil {
					return err
				}
			}

			opts := []server.Option{
				server.WithLoadOptions(a.loadOptions()...),
				server.WithLogger(logging.Component(a.logger, "server")),
			}
			if ds != nil {
				opts = append(opts, server.WithDataset(ds))
			}

			assistant := a.newAssistant(nil)
			if !noFallback {
				p, closeFn, err := a.openPipeline(ctx)
				if err != nil {
					a.logger.Warn().Err(err).Msg("Retrieval fallback unavailable")
				} else {
					defer closeQuietly(a.logger, closeFn)
					if ds != nil {
						if _, err := p.Index(ctx, ds, false); err != nil {
							a.logger.Warn().Err(err).Msg("Initial indexing failed")
						}
					}
					assistant = a.newAssistant(p)
					opts = append(opts, server.WithIndexer(p))
				}
			}

			srv := server.New(server.Config{
				Host:           a.cfg.Server.Host,
				Port:           a.cfg.Server.Port,
				ReadTimeout:    a.cfg.Server.ReadTimeout,
				WriteTimeout:   a.cfg.Server.WriteTimeout,
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
			}, assistant, opts...)

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides server.port)")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "Serve without the retrieval fallback")

	return cmd
}
