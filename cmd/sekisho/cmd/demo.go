package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatten-sekisho/sekisho/internal/adapter/outbound/cel"
	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
	"github.com/gatten-sekisho/sekisho/internal/render"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the scripted walkthrough",
	Long: `Walk through the three outcomes a decision service must produce, each in
a fresh session and each checked by expectations:

  1. Executing without a permit is rejected.
  2. The SAFE preset is issued a permit and the action executes under it.
  3. The DANGEROUS preset is denied by policy and no permit is issued.

Exits non-zero if the service is not CONNECTED or any step fails.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// demoStep is one scripted interaction.
type demoStep struct {
	Title string
	// Preset is submitted first when non-empty.
	Preset string
	// Execute is one of the submit command's execute modes.
	Execute string
	Expect  []string
}

var demoSteps = []demoStep{
	{
		Title:   "Execute without a permit",
		Execute: executeWithout,
		Expect:  []string{`executed && !execute_ok && execute_status >= 400`},
	},
	{
		Title:   "Submit a safe request and execute under its permit",
		Preset:  session.PresetSafe,
		Execute: executeWith,
		Expect:  []string{`permit == "ISSUED"`, `permit_id != ""`, `execute_ok`},
	},
	{
		Title:   "Submit a dangerous request",
		Preset:  session.PresetDangerous,
		Execute: executeNone,
		Expect:  []string{`policy == "DENIED"`, `permit == "NOT_ISSUED"`},
	},
}

// demoResult is the structured output of one step.
type demoResult struct {
	Step         int                `json:"step" yaml:"step"`
	Title        string             `json:"title" yaml:"title"`
	Passed       bool               `json:"passed" yaml:"passed"`
	Session      render.SessionView `json:"session" yaml:"session"`
	Expectations []cel.Outcome      `json:"expectations" yaml:"expectations"`
}

func runDemo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	r := a.renderer
	p := r.Palette()

	rep := a.probe(ctx)
	if rep.Status != connectivity.Connected {
		if err := r.Connectivity(a.client.BaseURL(), rep); err != nil {
			return err
		}
		return fmt.Errorf("decision service at %s is %s", a.client.BaseURL(), rep.Status)
	}

	evaluator, err := a.expectationEvaluator()
	if err != nil {
		return err
	}

	results := make([]demoResult, 0, len(demoSteps))
	failed := 0
	for i, step := range demoSteps {
		expectations, err := evaluator.Prepare(step.Expect)
		if err != nil {
			return err
		}

		svc := a.newSession()
		if step.Preset != "" {
			if _, err := svc.Submit(ctx, session.Presets[step.Preset], ""); err != nil {
				return err
			}
		}
		if step.Execute != executeNone {
			svc.Execute(ctx, step.Execute == executeWith)
		}

		facts := a.facts(svc)
		outcomes := evaluator.Check(expectations, facts)
		passed := cel.AllPassed(outcomes)
		if !passed {
			failed++
		}
		results = append(results, demoResult{
			Step:         i + 1,
			Title:        step.Title,
			Passed:       passed,
			Session:      render.NewSessionView(facts.Snapshot),
			Expectations: outcomes,
		})

		if r.Structured() {
			continue
		}
		r.Textf("%s", p.Headerf("Step %d: %s", i+1, step.Title))
		if err := r.Session(facts.Snapshot); err != nil {
			return err
		}
		if err := r.Outcomes(outcomes); err != nil {
			return err
		}
		r.Textf("")
	}

	if r.Structured() {
		if err := r.Value(results); err != nil {
			return err
		}
	} else if failed == 0 {
		r.Textf("%s", p.Success(fmt.Sprintf("All %d steps passed.", len(demoSteps))))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d demo steps failed", failed, len(demoSteps))
	}
	return nil
}
