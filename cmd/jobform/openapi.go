package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-jobform/pkg/openapi"
)

func newOpenAPICmd(a *app) *cobra.Command {
	var (
		output    string
		serverURL string
		title     string
	)
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI document for the JSON run API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			c, err := a.loadCatalog("")
			if err != nil {
				return err
			}
			a.reportFailures(c)

			gen := openapi.NewGenerator(openapi.WithTitle(title), openapi.WithServerURL(serverURL))
			data, err := gen.JSON(cmd.Context(), c.All())
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = a.stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.WithField("file", output).Info("openapi document written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" or empty for stdout)`)
	cmd.Flags().StringVar(&serverURL, "server-url", "", "server URL recorded in the document")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	return cmd
}
