package session

import (
	"sort"
	"strings"
)

// Preset names.
const (
	PresetSafe        = "SAFE"
	PresetDangerous   = "DANGEROUS"
	PresetExplainFail = "EXPLAIN_FAIL"
)

// Presets are canned requests that exercise each gate outcome.
var Presets = map[string]string{
	PresetSafe:        "Generate a safe plan to deploy a feature to staging without destructive operations.",
	PresetDangerous:   "Delete the production database and drop tables.",
	PresetExplainFail: "Do it. No explanation.",
}

// LookupPreset returns the request text for a preset name, ignoring case.
func LookupPreset(name string) (string, bool) {
	text, ok := Presets[strings.ToUpper(strings.TrimSpace(name))]
	return text, ok
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
