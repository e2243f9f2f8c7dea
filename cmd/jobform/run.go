package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/renderers/tui"
)

type runFlags struct {
	params      []string
	target      string
	interactive bool
	yes         bool
	asJSON      bool
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <job>",
		Short: "Validate parameters and trigger one run of a job",
		Long: `Validate the given parameters against the job's schema, resolve the
deployed job for the target and trigger exactly one run.

Example:
  jobform run inventory_refresh --param warehouse=north --param batch_size=250
  jobform run inventory_refresh --interactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, true); err != nil {
				return err
			}
			return a.run(cmd, args[0], flags)
		},
	}
	cmd.Flags().StringArrayVarP(&flags.params, "param", "p", nil, "parameter as name=value (repeatable)")
	cmd.Flags().StringVar(&flags.target, "target", "", `deployment target for this run; "-" disables qualification`)
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "prompt for every parameter")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "skip the confirmation prompt in interactive mode")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print the run handle as JSON")
	return cmd
}

func (a *app) run(cmd *cobra.Command, jobName string, flags runFlags) error {
	raw, err := parseParams(flags.params)
	if err != nil {
		return err
	}

	c, err := a.loadCatalog("")
	if err != nil {
		return err
	}
	a.reportFailures(c)
	s, err := c.Get(jobName)
	if err != nil {
		return fmt.Errorf("%s: %w", render.Describe(err), err)
	}

	backend, err := a.newBackend(c)
	if err != nil {
		return err
	}
	orch, err := a.newOrchestrator(c, backend)
	if err != nil {
		return err
	}
	target := orch.Target(flags.target)

	if flags.interactive {
		term, err := a.newTUI()
		if err != nil {
			return err
		}
		raw, err = term.Collect(cmd.Context(), s, render.RenderOptions{Values: raw, Target: target})
		if err != nil {
			return err
		}
		if !flags.yes {
			err := term.ConfirmSubmit(cmd.Context(), s, raw, target)
			if errors.Is(err, tui.ErrDeclined) {
				fmt.Fprintln(a.stdout, "cancelled; no run was triggered")
				return nil
			}
			if err != nil {
				return err
			}
		}
	}

	outcome, err := orch.Submit(cmd.Context(), orchestrator.Request{JobName: jobName, Raw: raw, Target: flags.target})
	if len(outcome.Unknown) > 0 {
		fmt.Fprintf(a.stderr, "ignored undeclared parameters: %s\n", strings.Join(outcome.Unknown, ", "))
	}
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			for _, name := range verr.Fields.Names() {
				fmt.Fprintf(a.stderr, "  %s: %s\n", name, verr.Fields[name])
			}
		}
		return errors.New(render.Describe(err))
	}

	if flags.asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome.Run)
	}
	fmt.Fprintf(a.stdout, "run %s started for %s\n", outcome.Run.RunID, outcome.Job.QualifiedName)
	if outcome.Run.URL != "" {
		fmt.Fprintln(a.stdout, outcome.Run.URL)
	}
	return nil
}

// parseParams splits name=value pairs. The first "=" separates the name so
// values may contain "=".
func parseParams(pairs []string) (map[string]string, error) {
	raw := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: expected name=value", pair)
		}
		raw[name] = value
	}
	return raw, nil
}
