package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gatten-sekisho/sekisho/internal/domain/session"
)

func TestSubmitCmd_FlagDefaults(t *testing.T) {
	resetFlags(rootCmd)

	execute, err := submitCmd.Flags().GetString("execute")
	if err != nil {
		t.Fatalf("failed to get execute flag: %v", err)
	}
	if execute != executeNone {
		t.Errorf("execute default = %q, want %q", execute, executeNone)
	}

	expect, err := submitCmd.Flags().GetStringArray("expect")
	if err != nil {
		t.Fatalf("failed to get expect flag: %v", err)
	}
	if len(expect) != 0 {
		t.Errorf("expect default = %v, want empty", expect)
	}
}

func TestResolveRequest(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		preset  string
		want    string
		wantErr bool
	}{
		{name: "default is safe preset", want: session.Presets[session.PresetSafe]},
		{name: "args joined", args: []string{"rotate", "staging", "keys"}, want: "rotate staging keys"},
		{name: "preset ignores case", preset: "dangerous", want: session.Presets[session.PresetDangerous]},
		{name: "unknown preset", preset: "reckless", wantErr: true},
		{name: "args and preset", args: []string{"x"}, preset: "safe", wantErr: true},
		{name: "blank args fall back", args: []string{" "}, want: session.Presets[session.PresetSafe]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRequest(tt.args, tt.preset)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveRequest() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveRequest() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.json")
	if err := os.WriteFile(path, []byte(`{"ticket":"OPS-1"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := resolveContext(nil, `{"a":1}`, "")
	if err != nil || got != `{"a":1}` {
		t.Errorf("inline = %q, %v", got, err)
	}

	got, err = resolveContext(nil, "", path)
	if err != nil || got != `{"ticket":"OPS-1"}` {
		t.Errorf("file = %q, %v", got, err)
	}

	got, err = resolveContext(strings.NewReader(`{"from":"stdin"}`), "", "-")
	if err != nil || got != `{"from":"stdin"}` {
		t.Errorf("stdin = %q, %v", got, err)
	}

	if _, err := resolveContext(nil, "", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestSubmitCmd_SafeExecuteWithPermit(t *testing.T) {
	svc := newFakeDecisionService(t)

	out, err := runCLI(t, "", "submit", "--api-base", svc.URL, "--color", "never",
		"--preset", "safe", "--execute", "with",
		"--expect", `permit == "ISSUED"`,
		"--expect", `execute_ok && permit_mock`,
	)
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	for _, want := range []string{"ISSUED", "[OPEN]", "[MOCK]", "permit-123", "Submit: 200 OK", "Execute: 200 OK", "PASS"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if ids := svc.executedPermits(); len(ids) != 1 || ids[0] != "permit-123" {
		t.Errorf("executed permits = %v, want [permit-123]", ids)
	}
}

func TestSubmitCmd_ExecuteWithoutPermit(t *testing.T) {
	svc := newFakeDecisionService(t)

	out, err := runCLI(t, "", "submit", "--api-base", svc.URL, "--color", "never",
		"--preset", "safe", "--execute", "without")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ids := svc.executedPermits(); len(ids) != 1 || ids[0] != session.InvalidPermitID {
		t.Errorf("executed permits = %v, want [%s]", ids, session.InvalidPermitID)
	}
	if !strings.Contains(out, "Reason: invalid permit") {
		t.Errorf("execute detail should be the reason:\n%s", out)
	}
}

func TestSubmitCmd_JSONOutput(t *testing.T) {
	svc := newFakeDecisionService(t)

	out, err := runCLI(t, "", "submit", "--api-base", svc.URL, "-o", "json",
		"--preset", "dangerous", "--expect", `policy == "DENIED"`)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	var report struct {
		SessionID string `json:"session_id"`
		Request   string `json:"request"`
		Gates     map[string]struct {
			Classification string `json:"classification"`
		} `json:"gates"`
		Seals        map[string]string `json:"seals"`
		Violations   []string          `json:"violations"`
		Expectations []struct {
			Passed bool `json:"passed"`
		} `json:"expectations"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.SessionID == "" {
		t.Error("session_id missing")
	}
	if report.Request != session.Presets[session.PresetDangerous] {
		t.Errorf("request = %q", report.Request)
	}
	if got := report.Gates["policy"].Classification; got != "DENIED" {
		t.Errorf("policy = %q, want DENIED", got)
	}
	if got := report.Gates["permit"].Classification; got != "NOT_ISSUED" {
		t.Errorf("permit = %q, want NOT_ISSUED", got)
	}
	if len(report.Violations) != 1 || report.Violations[0] != "destructive operation" {
		t.Errorf("violations = %v", report.Violations)
	}
	if len(report.Expectations) != 1 || !report.Expectations[0].Passed {
		t.Errorf("expectations = %+v", report.Expectations)
	}
	if len(report.Seals) != 3 {
		t.Errorf("seals = %v, want 3 entries", report.Seals)
	}
}

func TestSubmitCmd_InvalidContextMakesNoRequest(t *testing.T) {
	svc := newFakeDecisionService(t)

	_, err := runCLI(t, "", "submit", "--api-base", svc.URL, "--context", "[1,2]")
	if !errors.Is(err, session.ErrInvalidContext) {
		t.Fatalf("err = %v, want ErrInvalidContext", err)
	}
	if n := svc.submitCount(); n != 0 {
		t.Errorf("submits = %d, want 0", n)
	}
}

func TestSubmitCmd_ContextSent(t *testing.T) {
	svc := newFakeDecisionService(t)

	if _, err := runCLI(t, `{"ticket":"OPS-9"}`, "submit", "--api-base", svc.URL, "--context-file", "-"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.submits) != 1 {
		t.Fatalf("submits = %d, want 1", len(svc.submits))
	}
	ctx, _ := svc.submits[0]["context"].(map[string]any)
	if ctx["ticket"] != "OPS-9" {
		t.Errorf("context = %v, want ticket OPS-9", svc.submits[0]["context"])
	}
}

func TestSubmitCmd_FailedExpectation(t *testing.T) {
	svc := newFakeDecisionService(t)

	out, err := runCLI(t, "", "submit", "--api-base", svc.URL, "--color", "never",
		"--preset", "explain_fail", "--expect", `explain == "PASS"`, "--expect", `reason.contains("explanation")`)
	if err == nil {
		t.Fatal("a failed expectation should fail the command")
	}
	if err.Error() != "1 of 2 expectations failed" {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(out, `FAIL explain == "PASS"`) {
		t.Errorf("output missing FAIL line:\n%s", out)
	}
}

func TestSubmitCmd_InvalidExpectationMakesNoRequest(t *testing.T) {
	svc := newFakeDecisionService(t)

	_, err := runCLI(t, "", "submit", "--api-base", svc.URL, "--expect", "permit ==")
	if err == nil {
		t.Fatal("an invalid expectation should fail")
	}
	if n := svc.submitCount(); n != 0 {
		t.Errorf("submits = %d, want 0", n)
	}
}

func TestSubmitCmd_InvalidExecuteMode(t *testing.T) {
	_, err := runCLI(t, "", "submit", "--execute", "sometimes")
	if err == nil || !strings.Contains(err.Error(), "--execute") {
		t.Errorf("err = %v, want invalid --execute", err)
	}
}

func TestSubmitCmd_TransportFailure(t *testing.T) {
	svc := newFakeDecisionService(t)
	url := svc.URL
	svc.Close()

	out, err := runCLI(t, "", "submit", "--api-base", url, "--color", "never")
	if err == nil || !strings.HasPrefix(err.Error(), "submit failed:") {
		t.Fatalf("err = %v, want submit failed", err)
	}
	if !strings.Contains(out, "PENDING") {
		t.Errorf("gates should be pending after a transport failure:\n%s", out)
	}
}
