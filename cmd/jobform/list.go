package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-jobform/pkg/render"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the jobs with a loaded parameter schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			c, err := a.loadCatalog("")
			if err != nil {
				return err
			}
			picker := render.NewPicker(c, "", nil)

			if asJSON {
				out := struct {
					Jobs     []render.JobSummary `json:"jobs"`
					Problems []render.Problem    `json:"problems"`
				}{Jobs: picker.Jobs, Problems: picker.Problems}
				if out.Jobs == nil {
					out.Jobs = []render.JobSummary{}
				}
				if out.Problems == nil {
					out.Problems = []render.Problem{}
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for _, job := range picker.Jobs {
				params := make([]string, 0, len(job.Parameters))
				for _, p := range job.Parameters {
					params = append(params, p.String())
				}
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", job.JobName, job.DisplayName, strings.Join(params, ", "))
			}
			for _, problem := range picker.Problems {
				fmt.Fprintf(a.stderr, "skipped %s: %s\n", problem.Source, problem.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")
	return cmd
}
