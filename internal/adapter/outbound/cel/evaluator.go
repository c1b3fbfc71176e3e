// Package cel evaluates operator expectations, written in CEL, against the
// state of a session.
package cel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
)

// maxExpressionLength is the maximum allowed length for an expectation.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit.
const maxCostBudget = 100_000

// maxNestingDepth is the maximum allowed parenthesis/bracket nesting depth.
const maxNestingDepth = 50

// evalTimeout is the maximum time allowed for a single evaluation.
const evalTimeout = 5 * time.Second

// interruptCheckFreq is how often (in comprehension iterations) context cancellation is checked.
const interruptCheckFreq = 100

// Evaluator compiles and evaluates expectations.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a new evaluator with the expectation environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := NewExpectationEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create expectation environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Compile parses and type-checks a CEL expression, returning a compiled program.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}

	return prg, nil
}

// validateNesting checks that the expression does not exceed the maximum allowed
// nesting depth for parentheses, brackets, and braces.
func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// ValidateExpression checks that an expectation is syntactically valid and
// within the length and nesting limits.
func (e *Evaluator) ValidateExpression(expr string) error {
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}

	if expr == "" {
		return errors.New("expression is empty")
	}

	if err := validateNesting(expr); err != nil {
		return err
	}

	_, err := e.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid CEL expression: %w", err)
	}

	return nil
}

// Evaluate runs a compiled program against facts.
// Returns true if the expression evaluates to true, false otherwise.
func (e *Evaluator) Evaluate(prg cel.Program, facts Facts) (bool, error) {
	activation := BuildActivation(facts)

	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean, got %T", result.Value())
	}

	return boolResult, nil
}

// Expectation is a validated, compiled expression.
type Expectation struct {
	Source  string
	program cel.Program
}

// Outcome is the result of checking one expectation.
type Outcome struct {
	Expression string `json:"expression" yaml:"expression"`
	Passed     bool   `json:"passed" yaml:"passed"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Prepare validates and compiles every expression. The first invalid
// expression aborts with an error naming it.
func (e *Evaluator) Prepare(exprs []string) ([]Expectation, error) {
	out := make([]Expectation, 0, len(exprs))
	for _, expr := range exprs {
		if err := e.ValidateExpression(expr); err != nil {
			return nil, fmt.Errorf("expectation %q: %w", expr, err)
		}
		prg, err := e.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("expectation %q: %w", expr, err)
		}
		out = append(out, Expectation{Source: expr, program: prg})
	}
	return out, nil
}

// Check evaluates every expectation against facts. An evaluation error
// counts as a failure.
func (e *Evaluator) Check(exps []Expectation, facts Facts) []Outcome {
	outcomes := make([]Outcome, 0, len(exps))
	for _, exp := range exps {
		passed, err := e.Evaluate(exp.program, facts)
		o := Outcome{Expression: exp.Source, Passed: passed && err == nil}
		if err != nil {
			o.Error = err.Error()
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// AllPassed reports whether every outcome passed.
func AllPassed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Passed {
			return false
		}
	}
	return true
}
