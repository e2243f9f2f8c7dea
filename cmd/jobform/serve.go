package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-jobform/internal/metrics"
	"github.com/goliatone/go-jobform/internal/server"
	"github.com/goliatone/go-jobform/pkg/openapi"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the job forms and the JSON run API over HTTP",
		Long: `Serve the job picker, one HTML form per loaded schema, the JSON run API
and the generated OpenAPI document.

Example:
  jobform serve --listen :8080 --schemas-dir job_configs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, true); err != nil {
				return err
			}
			return a.serve(cmd)
		},
	}
	cmd.Flags().String("listen", "", "address to listen on (default :8080)")
	cmd.Flags().String("renderer", "", "renderer used for HTML pages (default vanilla)")
	cmd.Flags().String("templates-dir", "", "directory of form.tmpl and picker.tmpl overriding the built-in pages")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	c, err := a.loadCatalog("")
	if err != nil {
		return err
	}
	a.reportFailures(c)

	backend, err := a.newBackend(c)
	if err != nil {
		return err
	}

	m := metrics.New()
	a.logger.AddHook(m.LogHook())

	orch, err := a.newOrchestrator(c, backend, orchestrator.WithObserver(m))
	if err != nil {
		return err
	}

	srv := server.New(orch,
		server.WithLogger(a.logger),
		server.WithMetricsHandler(m.Handler()),
		server.WithRenderer(a.cfg.Renderer),
		server.WithOpenAPI(openapi.NewGenerator(openapi.WithTitle("jobform"))),
	)
	a.logger.WithField("jobs", c.Len()).Info("schemas loaded")
	return srv.ListenAndServe(cmd.Context(), a.cfg.Listen)
}
