// Package render writes session state for the terminal as text, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/gatten-sekisho/sekisho/internal/adapter/outbound/cel"
	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
	"github.com/gatten-sekisho/sekisho/internal/service"
)

// Format is an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an output format name. Empty selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// noReason is shown when neither call reported a reason.
const noReason = "No reason reported."

// hashChars is how many leading and trailing characters of a hash are shown.
const hashChars = 10

// Renderer writes views in one format.
type Renderer struct {
	w       io.Writer
	format  Format
	palette Palette
}

// New creates a Renderer writing to w.
func New(w io.Writer, format Format, palette Palette) *Renderer {
	if format == "" {
		format = FormatText
	}
	return &Renderer{w: w, format: format, palette: palette}
}

// Format returns the output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Structured reports whether output is machine-readable.
func (r *Renderer) Structured() bool {
	return r.format != FormatText
}

// Value encodes v as JSON or YAML. In text mode it is printed with %v.
func (r *Renderer) Value(v any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintf(r.w, "%v\n", v)
		return err
	}
}

// Textf writes a line in text mode only.
func (r *Renderer) Textf(format string, args ...any) {
	if r.Structured() {
		return
	}
	fmt.Fprintf(r.w, format+"\n", args...)
}

// Palette returns the active palette.
func (r *Renderer) Palette() Palette {
	return r.palette
}

// SessionView is the structured form of a session snapshot.
type SessionView struct {
	session.Snapshot `yaml:",inline"`
	Seals            map[string]gate.Seal `json:"seals" yaml:"seals"`
}

// NewSessionView adds the seal roll-up to a snapshot.
func NewSessionView(snap session.Snapshot) SessionView {
	seals := make(map[string]gate.Seal, 3)
	for _, v := range snap.Gates.Verdicts() {
		seals[string(v.Gate)] = v.Seal()
	}
	return SessionView{Snapshot: snap, Seals: seals}
}

// Session writes the gate board, reason, permit and call statuses.
func (r *Renderer) Session(snap session.Snapshot) error {
	if r.Structured() {
		return r.Value(NewSessionView(snap))
	}
	p := r.palette

	fmt.Fprintln(r.w, p.Headerf("Gates"))
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	for _, v := range snap.Gates.Verdicts() {
		seal := v.Seal()
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			v.Gate.Title(),
			p.Seal(seal, string(v.Classification)),
			p.Dim(v.Subtitle),
			p.Seal(seal, "["+string(seal)+"]"),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	reason := snap.Reason
	if reason == "" {
		reason = p.Dim(noReason)
	}
	fmt.Fprintf(r.w, "\n%s %s\n", p.Key("Reason:"), reason)

	if len(snap.Violations) > 0 {
		fmt.Fprintln(r.w, p.Key("Violations:"))
		for _, v := range snap.Violations {
			fmt.Fprintf(r.w, "  - %s\n", p.Fail(v))
		}
	}

	if snap.Permit != nil {
		fmt.Fprintln(r.w)
		if err := r.permit(*snap.Permit); err != nil {
			return err
		}
	}

	if snap.Submit != nil || snap.Execute != nil {
		fmt.Fprintln(r.w)
	}
	if snap.Submit != nil {
		fmt.Fprintf(r.w, "%s %s\n", p.Key("Submit:"), r.exchange(snap.Submit))
	}
	if snap.Execute != nil {
		fmt.Fprintf(r.w, "%s %s\n", p.Key("Execute:"), r.exchange(snap.Execute))
	}
	if snap.Submitting || snap.Executing {
		fmt.Fprintln(r.w, p.Warn("(call in flight)"))
	}
	return nil
}

func (r *Renderer) permit(permit gate.Permit) error {
	p := r.palette
	header := p.Headerf("Permit")
	if permit.IsMock() {
		header += " " + p.Warn("[MOCK]")
	}
	fmt.Fprintln(r.w, header)

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	rows := []struct{ key, value string }{
		{"permit_id", orDash(permit.PermitID)},
		{"decision_hash", gate.ShortHash(permit.DecisionHash, hashChars)},
		{"neo_tx_hash", gate.ShortHash(permit.NeoTxHash, hashChars)},
		{"policy_version", orDash(permit.PolicyVersion)},
		{"risk_level", orDash(permit.RiskLevel)},
		{"issued_at", orDash(permit.IssuedAt)},
		{"expires_at", orDash(permit.ExpiresAt)},
		{"neo_mode", orDash(permit.NeoMode)},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "  %s\t%s\n", row.key, row.value)
	}
	return tw.Flush()
}

func (r *Renderer) exchange(ex *session.Exchange) string {
	p := r.palette
	switch {
	case ex.OK:
		return p.Success(fmt.Sprintf("%d OK", ex.Status))
	case ex.Status == 0:
		return p.Fail("no response: " + ex.ErrorText)
	default:
		return p.Fail(fmt.Sprintf("%d %s", ex.Status, ex.ErrorText))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ConnectivityView is the structured form of a connectivity report.
type ConnectivityView struct {
	BaseURL             string `json:"base_url" yaml:"base_url"`
	connectivity.Report `yaml:",inline"`
}

// Connectivity writes a probe report for baseURL.
func (r *Renderer) Connectivity(baseURL string, rep connectivity.Report) error {
	if r.Structured() {
		return r.Value(ConnectivityView{BaseURL: baseURL, Report: rep})
	}
	p := r.palette

	var status string
	switch rep.Status {
	case connectivity.Connected:
		status = p.Success(string(rep.Status))
	case connectivity.WrongServer:
		status = p.Warn(string(rep.Status))
	default:
		status = p.Fail(string(rep.Status))
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", p.Key("Service"), baseURL)
	fmt.Fprintf(tw, "%s\t%s\n", p.Key("Status"), status)
	if len(rep.Paths) > 0 {
		fmt.Fprintf(tw, "%s\t%s\n", p.Key("Paths"), strings.Join(rep.Paths, ", "))
	}
	if rep.Error != "" {
		fmt.Fprintf(tw, "%s\t%s\n", p.Key("Error"), rep.Error)
	}
	return tw.Flush()
}

// Outcomes writes expectation results.
func (r *Renderer) Outcomes(outcomes []cel.Outcome) error {
	if r.Structured() {
		return r.Value(outcomes)
	}
	for _, o := range outcomes {
		r.outcome(o)
	}
	return nil
}

func (r *Renderer) outcome(o cel.Outcome) {
	p := r.palette
	if o.Passed {
		fmt.Fprintf(r.w, "  %s %s\n", p.Success("PASS"), o.Expression)
		return
	}
	line := fmt.Sprintf("  %s %s", p.Fail("FAIL"), o.Expression)
	if o.Error != "" {
		line += " " + p.Dim("("+o.Error+")")
	}
	fmt.Fprintln(r.w, line)
}

// Stats writes session tallies.
func (r *Renderer) Stats(stats service.Stats) error {
	if r.Structured() {
		return r.Value(stats)
	}
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "submits\t%d\n", stats.Submits)
	fmt.Fprintf(tw, "permits issued\t%d\n", stats.PermitsIssued)
	fmt.Fprintf(tw, "executes\t%d\n", stats.Executes)
	fmt.Fprintf(tw, "  accepted\t%d\n", stats.ExecutesAccepted)
	fmt.Fprintf(tw, "  rejected\t%d\n", stats.ExecutesRejected)
	fmt.Fprintf(tw, "transport errors\t%d\n", stats.TransportErrors)
	return tw.Flush()
}
