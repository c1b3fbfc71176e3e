package gate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp
}

func TestSealOf(t *testing.T) {
	t.Parallel()

	want := map[Classification]Seal{
		Pass:      SealOpen,
		Approved:  SealOpen,
		Issued:    SealOpen,
		Hold:      SealHold,
		Pending:   SealHold,
		Fail:      SealSealed,
		Denied:    SealSealed,
		NotIssued: SealSealed,
	}
	require.Len(t, want, len(Classifications))

	for _, c := range Classifications {
		assert.Equal(t, want[c], SealOf(c), "SealOf(%s)", c)
		// Stable across calls.
		assert.Equal(t, SealOf(c), SealOf(c))
	}
	assert.Equal(t, SealSealed, SealOf(Classification("SOMETHING_ELSE")))
}

func TestDeriveExplain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resp     string
		want     Classification
		subtitle string
	}{
		{"no response", "null", Pending, "waiting"},
		{"empty object", `{}`, Pass, "schema ok"},
		{"unrelated reason", `{"reason": "policy violation"}`, Pass, "schema ok"},
		{"explain lowercase", `{"reason": "explanation missing"}`, Fail, "explain invalid"},
		{"explain mixed case", `{"reason": "EXPLAIN agent rejected"}`, Fail, "explain invalid"},
		{"explain validation failed", `{"reason": "explain validation failed: missing steps"}`, Fail, "explain invalid"},
		{"explanation capitalized", `{"reason": "Explanation too short"}`, Fail, "explain invalid"},
		{"no marker", `{"reason": "expired permit"}`, Pass, "schema ok"},
		{"reason not a string", `{"reason": 42}`, Pass, "schema ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DeriveExplain(decode(t, tt.resp))
			assert.Equal(t, ExplainGate, v.Gate)
			assert.Equal(t, tt.want, v.Classification)
			assert.Equal(t, tt.subtitle, v.Subtitle)
		})
	}
}

func TestDerivePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resp     string
		want     Classification
		subtitle string
	}{
		{"no response", "null", Pending, "waiting"},
		{"no policy", `{"reason": "ok"}`, Pending, "waiting"},
		{"policy null", `{"policy": null}`, Pending, "waiting"},
		{"policy not an object", `{"policy": "strict"}`, Pending, "waiting"},
		{"empty policy", `{"policy": {}}`, Approved, "policy ok"},
		{"clean", `{"policy": {"violations": [], "required_human_approval": false}}`, Approved, "policy ok"},
		{"violations", `{"policy": {"violations": ["destructive"]}}`, Denied, "violations found"},
		{"hold", `{"policy": {"violations": [], "required_human_approval": true}}`, Hold, "human approval"},
		{
			"violations win over hold",
			`{"policy": {"violations": ["destructive", "prod"], "required_human_approval": true}}`,
			Denied, "violations found",
		},
		{"approval flag not a bool", `{"policy": {"required_human_approval": "yes"}}`, Approved, "policy ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DerivePolicy(decode(t, tt.resp))
			assert.Equal(t, PolicyGate, v.Gate)
			assert.Equal(t, tt.want, v.Classification)
			assert.Equal(t, tt.subtitle, v.Subtitle)
		})
	}
}

func TestDerivePolicy_AnyResponseWithoutPolicyIsPending(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{}`,
		`{"reason": "x"}`,
		`{"permit": {"permit_id": "p1"}}`,
		`{"violations": ["top-level does not count"]}`,
		`{"status": "REJECTED", "detail": "nope"}`,
	} {
		assert.Equal(t, Pending, DerivePolicy(decode(t, raw)).Classification, raw)
	}
}

func TestDerivePermit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resp     string
		want     Classification
		subtitle string
	}{
		{"no response", "null", Pending, "waiting"},
		{"no permit", `{"reason": "denied"}`, NotIssued, "blocked"},
		{"permit null", `{"permit": null}`, NotIssued, "blocked"},
		{"permit object", `{"permit": {"permit_id": "p1"}}`, Issued, "permit minted"},
		{"permit any shape", `{"permit": "opaque"}`, Issued, "permit minted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DerivePermit(decode(t, tt.resp))
			assert.Equal(t, PermitGate, v.Gate)
			assert.Equal(t, tt.want, v.Classification)
			assert.Equal(t, tt.subtitle, v.Subtitle)
		})
	}
}

func TestEvaluate_ExplainFailWithCleanPolicy(t *testing.T) {
	t.Parallel()

	resp := decode(t, `{"reason": "explanation missing", "policy": {"violations": [], "required_human_approval": false}}`)
	board := Evaluate(resp)

	assert.Equal(t, Fail, board.Explain.Classification)
	assert.Equal(t, Approved, board.Policy.Classification)
	assert.Equal(t, NotIssued, board.Permit.Classification)
	assert.Equal(t, []Verdict{board.Explain, board.Policy, board.Permit}, board.Verdicts())
}

func TestEvaluate_MockPermit(t *testing.T) {
	t.Parallel()

	resp := decode(t, `{"permit": {"permit_id": "p1", "neo_tx_hash": "MOCKabc"}}`)
	board := Evaluate(resp)
	assert.Equal(t, Issued, board.Permit.Classification)
	assert.Equal(t, SealOpen, board.Permit.Seal())

	permit, ok := PermitFrom(resp)
	require.True(t, ok)
	assert.Equal(t, "p1", permit.PermitID)
	assert.True(t, permit.IsMock())
}

func TestEvaluate_Idempotent(t *testing.T) {
	t.Parallel()

	resp := decode(t, `{"reason": "fine", "policy": {"violations": ["a"]}, "permit": {}}`)
	first := Evaluate(resp)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Evaluate(resp))
	}
}

func TestViolations(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Violations(nil))
	assert.Empty(t, Violations(decode(t, `{"policy": {}}`)))
	assert.Equal(t,
		[]string{"destructive", "3"},
		Violations(decode(t, `{"policy": {"violations": ["destructive", 3]}}`)),
	)
}
