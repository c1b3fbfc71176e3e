package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatten-sekisho/sekisho/internal/adapter/outbound/cel"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
	"github.com/gatten-sekisho/sekisho/internal/render"
	"github.com/gatten-sekisho/sekisho/internal/service"
)

// Execute modes of the submit command.
const (
	executeNone    = "none"
	executeWith    = "with"
	executeWithout = "without"
)

var submitCmd = &cobra.Command{
	Use:   "submit [request text...]",
	Short: "Submit a request and show the gate board",
	Long: `Submit a request to the decision service and show how each gate decided.

The request is the joined arguments, a preset (--preset) or, with neither,
the SAFE preset. Context must be a JSON object.

Examples:
  # Submit a preset and execute under the issued permit
  sekisho submit --preset safe --execute with

  # Submit free text with context
  sekisho submit "rotate staging credentials" --context '{"ticket":"OPS-12"}'

  # Assert on the outcome (exits non-zero when an expectation fails)
  sekisho submit --preset dangerous --expect 'policy == "DENIED"'`,
	RunE: runSubmit,
}

var (
	submitPreset      string
	submitContext     string
	submitContextFile string
	submitExecute     string
	submitExpect      []string
)

func init() {
	flags := submitCmd.Flags()
	flags.StringVar(&submitPreset, "preset", "", "canned request: "+strings.Join(session.PresetNames(), ", "))
	flags.StringVar(&submitContext, "context", "", "context as a JSON object")
	flags.StringVar(&submitContextFile, "context-file", "", "read context from a file (- for stdin)")
	flags.StringVar(&submitExecute, "execute", executeNone, "after submitting, execute: none, with (the permit) or without")
	flags.StringArrayVar(&submitExpect, "expect", nil, "CEL expectation over the result (repeatable)")
	submitCmd.MarkFlagsMutuallyExclusive("context", "context-file")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	request, err := resolveRequest(args, submitPreset)
	if err != nil {
		return err
	}
	contextText, err := resolveContext(cmd.InOrStdin(), submitContext, submitContextFile)
	if err != nil {
		return err
	}
	switch submitExecute {
	case executeNone, executeWith, executeWithout:
	default:
		return fmt.Errorf("invalid --execute %q (want none, with or without)", submitExecute)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	expectations, err := a.prepareExpectations(submitExpect)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc := a.newSession()
	res, err := svc.Submit(ctx, request, contextText)
	if err != nil {
		return err
	}
	if submitExecute != executeNone {
		svc.Execute(ctx, submitExecute == executeWith)
	}

	outcomes, err := a.report(svc, expectations)
	if err != nil {
		return err
	}
	if !res.Received() {
		return fmt.Errorf("submit failed: %s", res.ErrorText)
	}
	return expectationsError(outcomes)
}

// resolveRequest picks the request text from args or a preset name.
func resolveRequest(args []string, preset string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	switch {
	case text != "" && preset != "":
		return "", fmt.Errorf("request text and --preset are mutually exclusive")
	case text != "":
		return text, nil
	case preset != "":
		request, ok := session.LookupPreset(preset)
		if !ok {
			return "", fmt.Errorf("unknown preset %q (want one of %s)", preset, strings.Join(session.PresetNames(), ", "))
		}
		return request, nil
	default:
		return session.Presets[session.PresetSafe], nil
	}
}

// resolveContext returns the raw context text from the flag or a file.
func resolveContext(stdin io.Reader, inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read context: %w", err)
	}
	return string(data), nil
}

// prepareExpectations compiles expressions before any request is made.
func (a *app) prepareExpectations(exprs []string) ([]cel.Expectation, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	evaluator, err := a.expectationEvaluator()
	if err != nil {
		return nil, err
	}
	return evaluator.Prepare(exprs)
}

// sessionReport is the structured output of a session plus expectations.
type sessionReport struct {
	render.SessionView `yaml:",inline"`
	Expectations       []cel.Outcome `json:"expectations,omitempty" yaml:"expectations,omitempty"`
}

// report renders the session and checks expectations against it.
func (a *app) report(svc *service.SessionService, expectations []cel.Expectation) ([]cel.Outcome, error) {
	facts := a.facts(svc)

	var outcomes []cel.Outcome
	if len(expectations) > 0 {
		evaluator, err := a.expectationEvaluator()
		if err != nil {
			return nil, err
		}
		outcomes = evaluator.Check(expectations, facts)
	}

	if a.renderer.Structured() {
		return outcomes, a.renderer.Value(sessionReport{
			SessionView:  render.NewSessionView(facts.Snapshot),
			Expectations: outcomes,
		})
	}
	if err := a.renderer.Session(facts.Snapshot); err != nil {
		return nil, err
	}
	if len(outcomes) > 0 {
		a.renderer.Textf("")
		a.renderer.Textf("%s", a.renderer.Palette().Headerf("Expectations"))
		if err := a.renderer.Outcomes(outcomes); err != nil {
			return nil, err
		}
	}
	return outcomes, nil
}

// expectationsError summarizes failed expectations.
func expectationsError(outcomes []cel.Outcome) error {
	if cel.AllPassed(outcomes) {
		return nil
	}
	failed := 0
	for _, o := range outcomes {
		if !o.Passed {
			failed++
		}
	}
	return fmt.Errorf("%d of %d expectations failed", failed, len(outcomes))
}
