package gate

import "strings"

// mockPrefix marks a simulated ledger transaction.
const mockPrefix = "MOCK"

// Permit is the authorization artifact issued by the decision service.
// Fields the server omitted are empty.
type Permit struct {
	PermitID      string `json:"permit_id" yaml:"permit_id"`
	DecisionHash  string `json:"decision_hash" yaml:"decision_hash"`
	NeoTxHash     string `json:"neo_tx_hash" yaml:"neo_tx_hash"`
	PolicyVersion string `json:"policy_version" yaml:"policy_version"`
	RiskLevel     string `json:"risk_level" yaml:"risk_level"`
	IssuedAt      string `json:"issued_at" yaml:"issued_at"`
	ExpiresAt     string `json:"expires_at" yaml:"expires_at"`
	NeoMode       string `json:"neo_mode" yaml:"neo_mode"`
}

// IsMock reports whether the permit was anchored to a simulated transaction.
func (p Permit) IsMock() bool {
	return strings.HasPrefix(p.NeoTxHash, mockPrefix)
}

// PermitFrom extracts the permit from a submit response. The boolean is false
// when the response has no permit object. A permit of an unexpected shape
// yields an empty Permit.
func PermitFrom(resp Response) (Permit, bool) {
	if !Present(resp, "permit") {
		return Permit{}, false
	}
	obj, _ := Object(resp, "permit")
	return Permit{
		PermitID:      String(obj, "permit_id"),
		DecisionHash:  String(obj, "decision_hash"),
		NeoTxHash:     String(obj, "neo_tx_hash"),
		PolicyVersion: String(obj, "policy_version"),
		RiskLevel:     String(obj, "risk_level"),
		IssuedAt:      String(obj, "issued_at"),
		ExpiresAt:     String(obj, "expires_at"),
		NeoMode:       String(obj, "neo_mode"),
	}, true
}

// ShortHash abbreviates long identifiers to their first and last chars
// characters. Empty values render as "-".
func ShortHash(value string, chars int) string {
	if value == "" {
		return "-"
	}
	runes := []rune(value)
	if chars <= 0 || len(runes) <= chars*2 {
		return value
	}
	return string(runes[:chars]) + "…" + string(runes[len(runes)-chars:])
}
