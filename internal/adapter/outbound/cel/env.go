package cel

import (
	"path/filepath"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
)

// NewExpectationEnvironment creates a CEL environment over session facts. It includes:
//   - Gate variables: explain, policy, permit, seals, violations
//   - Call variables: submitted, submit_ok, submit_status, submit, executed, execute_ok, execute_status, execute
//   - Permit variables: permit_id, permit_mock
//   - Session variables: reason, connection, request
//   - Custom functions: glob, mentions, field
func NewExpectationEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		ext.Sets(),

		// Gates
		cel.Variable("explain", cel.StringType),
		cel.Variable("policy", cel.StringType),
		cel.Variable("permit", cel.StringType),
		cel.Variable("seals", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("violations", cel.ListType(cel.StringType)),

		// Calls
		cel.Variable("submitted", cel.BoolType),
		cel.Variable("submit_ok", cel.BoolType),
		cel.Variable("submit_status", cel.IntType),
		cel.Variable("submit", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("executed", cel.BoolType),
		cel.Variable("execute_ok", cel.BoolType),
		cel.Variable("execute_status", cel.IntType),
		cel.Variable("execute", cel.MapType(cel.StringType, cel.DynType)),

		// Permit
		cel.Variable("permit_id", cel.StringType),
		cel.Variable("permit_mock", cel.BoolType),

		// Session
		cel.Variable("reason", cel.StringType),
		cel.Variable("connection", cel.StringType),
		cel.Variable("request", cel.StringType),

		// glob: shell-style pattern match.
		// Usage: glob("*staging*", request)
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, name ref.Val) ref.Val {
					p := pattern.Value().(string)
					n := name.Value().(string)
					matched, _ := filepath.Match(p, n)
					return types.Bool(matched)
				}),
			),
		),

		// mentions: case-insensitive substring test.
		// Usage: mentions(reason, "explain")
		cel.Function("mentions",
			cel.Overload("mentions_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(textVal, substrVal ref.Val) ref.Val {
					text := strings.ToLower(textVal.Value().(string))
					substr := strings.ToLower(substrVal.Value().(string))
					return types.Bool(strings.Contains(text, substr))
				}),
			),
		),

		// field: read a key from a response, null when absent.
		// Usage: field(execute, "detail")
		cel.Function("field",
			cel.Overload("field_map_string",
				[]*cel.Type{cel.MapType(cel.StringType, cel.DynType), cel.StringType},
				cel.DynType,
				cel.BinaryBinding(func(mapVal, keyVal ref.Val) ref.Val {
					key := keyVal.Value().(string)
					if m, ok := mapVal.Value().(map[ref.Val]ref.Val); ok {
						if v, found := m[types.String(key)]; found {
							return v
						}
						return types.NullValue
					}
					if goMap, ok := mapVal.Value().(map[string]any); ok {
						if v, found := goMap[key]; found {
							return types.DefaultTypeAdapter.NativeToValue(v)
						}
					}
					return types.NullValue
				}),
			),
		),
	)
}

// Facts is the input to an expectation: a session snapshot plus the last
// known connectivity status.
type Facts struct {
	Snapshot   session.Snapshot
	Connection connectivity.Status
}

// BuildActivation creates a CEL activation map from facts. Absent responses
// become empty maps and absent statuses become 0.
func BuildActivation(facts Facts) map[string]any {
	snap := facts.Snapshot

	seals := make(map[string]string, 3)
	for _, v := range snap.Gates.Verdicts() {
		seals[string(v.Gate)] = string(v.Seal())
	}
	violations := snap.Violations
	if violations == nil {
		violations = []string{}
	}

	var (
		submitted, submitOK bool
		executed, executeOK bool
		submitStatus        int64
		executeStatus       int64
		submitBody          = map[string]any{}
		executeBody         = map[string]any{}
	)
	if snap.Submit != nil {
		submitted = true
		submitOK = snap.Submit.OK
		submitStatus = int64(snap.Submit.Status)
		if snap.Submit.Response != nil {
			submitBody = snap.Submit.Response
		}
	}
	if snap.Execute != nil {
		executed = true
		executeOK = snap.Execute.OK
		executeStatus = int64(snap.Execute.Status)
		if snap.Execute.Response != nil {
			executeBody = snap.Execute.Response
		}
	}

	var permitID string
	var permitMock bool
	if snap.Permit != nil {
		permitID = snap.Permit.PermitID
		permitMock = snap.Permit.IsMock()
	}

	return map[string]any{
		"explain":    string(snap.Gates.Explain.Classification),
		"policy":     string(snap.Gates.Policy.Classification),
		"permit":     string(snap.Gates.Permit.Classification),
		"seals":      seals,
		"violations": violations,

		"submitted":      submitted,
		"submit_ok":      submitOK,
		"submit_status":  submitStatus,
		"submit":         submitBody,
		"executed":       executed,
		"execute_ok":     executeOK,
		"execute_status": executeStatus,
		"execute":        executeBody,

		"permit_id":   permitID,
		"permit_mock": permitMock,

		"reason":     snap.Reason,
		"connection": string(facts.Connection),
		"request":    snap.Request,
	}
}
