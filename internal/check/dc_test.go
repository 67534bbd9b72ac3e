package check

import (
	"testing"

	"github.com/easeaico/project-keeper/internal/types"
)

func TestResolveDCPrecedence(t *testing.T) {
	rulebook := Rulebook{Overrides: map[string]int{"spot_hidden": 40}}
	session := map[string]int{"spot_hidden": 55, "library_use": 35}

	cases := []struct {
		name        string
		target      string
		modelDC     int
		rules       Rules
		wantDC      int
		wantSource  types.DCSource
		wantPersist bool
	}{
		{
			name:       "script override beats everything",
			target:     "spot_hidden",
			modelDC:    20,
			rules:      Rules{Overrides: map[string]int{"spot_hidden": 70}, DefaultDC: 60},
			wantDC:     70,
			wantSource: types.DCSourceScriptOverride,
		},
		{
			name:       "script default",
			target:     "spot_hidden",
			modelDC:    20,
			rules:      Rules{DefaultDC: 60},
			wantDC:     60,
			wantSource: types.DCSourceScriptDefault,
		},
		{
			name:       "rulebook",
			target:     "Spot_Hidden",
			modelDC:    20,
			wantDC:     40,
			wantSource: types.DCSourceRulebookOverride,
		},
		{
			name:       "session override",
			target:     "library_use",
			modelDC:    20,
			wantDC:     35,
			wantSource: types.DCSourceSessionOverride,
		},
		{
			name:        "model suggestion persists",
			target:      "climb",
			modelDC:     45,
			wantDC:      45,
			wantSource:  types.DCSourceModelSuggested,
			wantPersist: true,
		},
		{
			name:       "engine default",
			target:     "climb",
			wantDC:     types.DefaultDC,
			wantSource: types.DCSourceEngineDefault,
		},
		{
			name:       "model default value is not a suggestion",
			target:     "climb",
			modelDC:    types.DefaultDC,
			wantDC:     types.DefaultDC,
			wantSource: types.DCSourceEngineDefault,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveDC(tc.target, tc.modelDC, tc.rules, rulebook, session)
			if got.DC != tc.wantDC || got.Source != tc.wantSource || got.ShouldPersist != tc.wantPersist {
				t.Fatalf("unexpected resolution %+v", got)
			}
		})
	}
}

func TestResolveDCClampsOutOfRange(t *testing.T) {
	got := ResolveDC("x", 0, Rules{Overrides: map[string]int{"x": 400}}, DefaultRulebook(), nil)
	if got.DC != 100 {
		t.Fatalf("expected clamp to 100, got %d", got.DC)
	}
	got = ResolveDC("x", 150, Rules{}, DefaultRulebook(), nil)
	if got.DC != 100 || !got.ShouldPersist {
		t.Fatalf("expected clamped model suggestion, got %+v", got)
	}
}
