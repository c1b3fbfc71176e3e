// Package gate derives the three approval gates and their seals from a raw
// submit response.
//
// Every function in this package is pure and total: it accepts any response
// shape, including a nil response, and never panics on missing or mistyped
// fields.
package gate

// Classification is the state of a single gate.
type Classification string

const (
	// Pending means no result is available yet.
	Pending Classification = "PENDING"
	// Pass means the explain gate accepted the response.
	Pass Classification = "PASS"
	// Fail means the explain gate rejected the response.
	Fail Classification = "FAIL"
	// Approved means policy found nothing to object to.
	Approved Classification = "APPROVED"
	// Denied means policy reported violations.
	Denied Classification = "DENIED"
	// Hold means policy requires a human to approve.
	Hold Classification = "HOLD"
	// NotIssued means a response arrived without a permit.
	NotIssued Classification = "NOT_ISSUED"
	// Issued means a permit was minted.
	Issued Classification = "ISSUED"
)

// Classifications lists every classification in declaration order.
var Classifications = []Classification{
	Pending, Pass, Fail, Approved, Denied, Hold, NotIssued, Issued,
}

// Seal is the three-way roll-up of a classification used for display grouping.
type Seal string

const (
	// SealOpen groups the passing classifications.
	SealOpen Seal = "OPEN"
	// SealHold groups the undecided classifications.
	SealHold Seal = "HOLD"
	// SealSealed groups everything that blocks.
	SealSealed Seal = "SEALED"
)

// SealOf maps a classification to its seal. Unknown values are SEALED.
func SealOf(c Classification) Seal {
	switch c {
	case Pass, Approved, Issued:
		return SealOpen
	case Hold, Pending:
		return SealHold
	default:
		return SealSealed
	}
}

// Name identifies one of the three gates.
type Name string

const (
	// ExplainGate checks the quality of the decision explanation.
	ExplainGate Name = "explain"
	// PolicyGate checks the policy evaluation.
	PolicyGate Name = "policy"
	// PermitGate checks whether a permit was issued.
	PermitGate Name = "permit"
)

// Title returns the display title of the gate.
func (n Name) Title() string {
	switch n {
	case ExplainGate:
		return "Explain Check"
	case PolicyGate:
		return "Policy Check"
	case PermitGate:
		return "Permit Issue"
	default:
		return string(n)
	}
}

// Verdict is the classification of one gate along with its subtitle.
type Verdict struct {
	Gate           Name           `json:"gate" yaml:"gate"`
	Classification Classification `json:"classification" yaml:"classification"`
	Subtitle       string         `json:"subtitle" yaml:"subtitle"`
}

// Seal returns the seal of the verdict's classification.
func (v Verdict) Seal() Seal {
	return SealOf(v.Classification)
}
