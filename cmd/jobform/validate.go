package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/validation"
)

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check every schema document in a directory",
		Long: `Parse every schema document under dir (default: the configured schemas
directory) and report the ones that would be skipped at startup. Exits non-zero
when any document is rejected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			c, err := a.loadCatalog(dir)
			if err != nil {
				return err
			}

			failures := c.Failures()
			if asJSON {
				if err := writeValidationReport(a, c); err != nil {
					return err
				}
			} else {
				for _, s := range c.All() {
					fmt.Fprintf(a.stdout, "ok   %s (%s)\n", s.Source, s.JobName)
				}
				for _, failure := range failures {
					fmt.Fprintf(a.stdout, "FAIL %s: %s\n", failure.Source, render.Describe(failure.Err))
				}
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d schema document(s) rejected", len(failures))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one result per document as JSON")
	return cmd
}

func writeValidationReport(a *app, c *catalog.Catalog) error {
	report := struct {
		Valid     bool                                `json:"valid"`
		Documents []validation.SchemaValidationResult `json:"documents"`
	}{Valid: len(c.Failures()) == 0}

	for _, s := range c.All() {
		report.Documents = append(report.Documents, validation.SchemaValidationResult{Valid: true, JobName: s.JobName})
	}
	for _, failure := range c.Failures() {
		issue := validation.IssueFromError(failure.Err)
		if issue.Source == "" {
			issue.Source = failure.Source
		}
		report.Documents = append(report.Documents, validation.SchemaValidationResult{Issues: []validation.SchemaIssue{issue}})
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
