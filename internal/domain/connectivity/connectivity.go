// Package connectivity classifies the remote service from its API descriptor.
package connectivity

import (
	"sort"
	"time"
)

// Endpoint paths a decision service must declare.
const (
	SubmitPath  = "/gate/submit"
	ExecutePath = "/gate/execute"
)

// Status is the connectivity classification of the remote service.
type Status string

const (
	// Disconnected means no descriptor could be fetched or parsed.
	Disconnected Status = "DISCONNECTED"
	// Connected means the descriptor declares both gate endpoints.
	Connected Status = "CONNECTED"
	// WrongServer means something answered, but it is not a decision service.
	WrongServer Status = "WRONG_SERVER"
)

// Report is the outcome of one connectivity probe.
type Report struct {
	Status Status    `json:"status" yaml:"status"`
	Paths  []string  `json:"paths,omitempty" yaml:"paths,omitempty"`
	Error  string    `json:"error,omitempty" yaml:"error,omitempty"`
	At     time.Time `json:"at" yaml:"at"`
}

// Classify derives the status from a parsed descriptor document.
// A nil document is DISCONNECTED.
func Classify(descriptor map[string]any) Status {
	if descriptor == nil {
		return Disconnected
	}
	paths, _ := descriptor["paths"].(map[string]any)
	_, hasSubmit := paths[SubmitPath]
	_, hasExecute := paths[ExecutePath]
	if hasSubmit && hasExecute {
		return Connected
	}
	return WrongServer
}

// Paths returns the sorted endpoint paths declared in the descriptor.
func Paths(descriptor map[string]any) []string {
	paths, _ := descriptor["paths"].(map[string]any)
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
