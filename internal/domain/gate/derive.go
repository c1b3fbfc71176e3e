package gate

import (
	"fmt"
	"strings"
)

// explainMarkers are the reason substrings that fail the explain gate.
var explainMarkers = []string{"explain", "explanation"}

// DeriveExplain classifies the explain-quality gate. A reason mentioning
// "explain" or "explanation" fails the gate regardless of the other fields.
func DeriveExplain(resp Response) Verdict {
	if resp == nil {
		return Verdict{Gate: ExplainGate, Classification: Pending, Subtitle: "waiting"}
	}
	if mentionsExplain(String(resp, "reason")) {
		return Verdict{Gate: ExplainGate, Classification: Fail, Subtitle: "explain invalid"}
	}
	return Verdict{Gate: ExplainGate, Classification: Pass, Subtitle: "schema ok"}
}

func mentionsExplain(reason string) bool {
	reason = strings.ToLower(reason)
	for _, marker := range explainMarkers {
		if strings.Contains(reason, marker) {
			return true
		}
	}
	return false
}

// DerivePolicy classifies the policy gate. Violations take precedence over a
// human-approval hold.
func DerivePolicy(resp Response) Verdict {
	policy, ok := Object(resp, "policy")
	if !ok {
		return Verdict{Gate: PolicyGate, Classification: Pending, Subtitle: "waiting"}
	}
	if violations, _ := List(policy, "violations"); len(violations) > 0 {
		return Verdict{Gate: PolicyGate, Classification: Denied, Subtitle: "violations found"}
	}
	if Bool(policy, "required_human_approval") {
		return Verdict{Gate: PolicyGate, Classification: Hold, Subtitle: "human approval"}
	}
	return Verdict{Gate: PolicyGate, Classification: Approved, Subtitle: "policy ok"}
}

// DerivePermit classifies the permit-issuance gate. Any non-null permit
// counts as issued.
func DerivePermit(resp Response) Verdict {
	if Present(resp, "permit") {
		return Verdict{Gate: PermitGate, Classification: Issued, Subtitle: "permit minted"}
	}
	if resp == nil {
		return Verdict{Gate: PermitGate, Classification: Pending, Subtitle: "waiting"}
	}
	return Verdict{Gate: PermitGate, Classification: NotIssued, Subtitle: "blocked"}
}

// Board holds the three verdicts for one submit response.
type Board struct {
	Explain Verdict `json:"explain" yaml:"explain"`
	Policy  Verdict `json:"policy" yaml:"policy"`
	Permit  Verdict `json:"permit" yaml:"permit"`
}

// Evaluate derives all three gates.
func Evaluate(resp Response) Board {
	return Board{
		Explain: DeriveExplain(resp),
		Policy:  DerivePolicy(resp),
		Permit:  DerivePermit(resp),
	}
}

// Verdicts returns the verdicts in display order.
func (b Board) Verdicts() []Verdict {
	return []Verdict{b.Explain, b.Policy, b.Permit}
}

// Violations returns the policy violations as strings, in server order.
// Non-string entries are formatted with %v.
func Violations(resp Response) []string {
	policy, ok := Object(resp, "policy")
	if !ok {
		return nil
	}
	list, _ := List(policy, "violations")
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}
