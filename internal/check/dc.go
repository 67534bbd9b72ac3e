package check

import (
	"strings"

	"github.com/easeaico/project-keeper/internal/types"
)

// Rules are the DC settings a scenario declares.
type Rules struct {
	Overrides map[string]int `yaml:"overrides" json:"overrides"`
	DefaultDC int            `yaml:"default_dc" json:"defaultDc"`
}

// Rulebook is the scenario-independent DC table. It is loaded once and
// passed in; nothing in this package keeps a global copy.
type Rulebook struct {
	Overrides map[string]int `yaml:"overrides" json:"overrides"`
}

// DefaultRulebook returns the built-in table used when no rulebook file is configured.
func DefaultRulebook() Rulebook {
	return Rulebook{Overrides: map[string]int{}}
}

// ResolveDC walks the precedence chain for target:
// scenario override, scenario default, rulebook, session override,
// model suggestion, engine default. Only a model-sourced winner is
// marked for persistence. modelDC <= 0 means no suggestion.
func ResolveDC(target string, modelDC int, rules Rules, rulebook Rulebook, sessionOverrides map[string]int) types.DCResolution {
	if dc, ok := lookupDC(rules.Overrides, target); ok {
		return types.DCResolution{DC: ClampDC(dc), Source: types.DCSourceScriptOverride}
	}
	// Per-target overrides win over the scenario default.
	if rules.DefaultDC > 0 {
		return types.DCResolution{DC: ClampDC(rules.DefaultDC), Source: types.DCSourceScriptDefault}
	}
	if dc, ok := lookupDC(rulebook.Overrides, target); ok {
		return types.DCResolution{DC: ClampDC(dc), Source: types.DCSourceRulebookOverride}
	}
	if dc, ok := lookupDC(sessionOverrides, target); ok {
		return types.DCResolution{DC: ClampDC(dc), Source: types.DCSourceSessionOverride}
	}
	if modelDC > 0 && modelDC != types.DefaultDC {
		return types.DCResolution{DC: ClampDC(modelDC), Source: types.DCSourceModelSuggested, ShouldPersist: true}
	}
	return types.DCResolution{DC: types.DefaultDC, Source: types.DCSourceEngineDefault}
}

// OverrideKey normalises a target for use as an override map key.
func OverrideKey(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}

func lookupDC(table map[string]int, target string) (int, bool) {
	if len(table) == 0 || strings.TrimSpace(target) == "" {
		return 0, false
	}
	if dc, ok := table[target]; ok && dc > 0 {
		return dc, true
	}
	key := OverrideKey(target)
	for k, dc := range table {
		if dc > 0 && OverrideKey(k) == key {
			return dc, true
		}
	}
	return 0, false
}
