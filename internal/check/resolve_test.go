package check

import (
	"math"
	"testing"

	"github.com/easeaico/project-keeper/internal/types"
)

type fixedRoll int

func (f fixedRoll) Intn(n int) int { return int(f) - 1 }

func TestResolveNormalSuccess(t *testing.T) {
	out := Resolve(100, 60, types.DifficultyNormal, fixedRoll(37))
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Threshold != 60 {
		t.Fatalf("expected threshold 60, got %d", out.Threshold)
	}
	if out.Roll != 37 {
		t.Fatalf("expected roll 37, got %d", out.Roll)
	}
}

func TestResolveHardFailure(t *testing.T) {
	out := Resolve(100, 60, types.DifficultyHard, fixedRoll(37))
	if out.Success {
		t.Fatalf("expected failure, got %+v", out)
	}
	if out.Threshold != 30 {
		t.Fatalf("expected threshold 30, got %d", out.Threshold)
	}
	if out.DifficultyLabel != "困难" {
		t.Fatalf("unexpected difficulty label %q", out.DifficultyLabel)
	}
}

func TestThresholdClampsDC(t *testing.T) {
	cases := []struct {
		dc   int
		want int
	}{
		{dc: -20, want: 1},
		{dc: 0, want: 1},
		{dc: 45, want: 45},
		{dc: 250, want: 60},
	}
	for _, tc := range cases {
		if got := Threshold(tc.dc, 60, types.DifficultyNormal); got != tc.want {
			t.Errorf("Threshold(dc=%d) = %d, want %d", tc.dc, got, tc.want)
		}
	}
}

func TestClampDCFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{in: math.NaN(), want: types.DefaultDC},
		{in: math.Inf(1), want: 100},
		{in: math.Inf(-1), want: 1},
		{in: -3.2, want: 1},
		{in: 42.6, want: 43},
		{in: 1000, want: 100},
	}
	for _, tc := range cases {
		got := ClampDCFloat(tc.in)
		if got != tc.want {
			t.Errorf("ClampDCFloat(%v) = %d, want %d", tc.in, got, tc.want)
		}
		if got < types.MinDC || got > types.MaxDC {
			t.Errorf("ClampDCFloat(%v) = %d out of range", tc.in, got)
		}
	}
}

func TestTierOrdering(t *testing.T) {
	for base := -5; base <= 120; base += 7 {
		for dc := -10; dc <= 110; dc += 13 {
			normal := Threshold(dc, base, types.DifficultyNormal)
			hard := Threshold(dc, base, types.DifficultyHard)
			extreme := Threshold(dc, base, types.DifficultyExtreme)
			if !(extreme <= hard && hard <= normal) {
				t.Fatalf("dc=%d base=%d: extreme %d, hard %d, normal %d", dc, base, extreme, hard, normal)
			}
		}
	}
}

func TestEvaluateGrades(t *testing.T) {
	cases := []struct {
		name string
		base int
		roll int
		want types.Outcome
	}{
		{name: "critical", base: 50, roll: 1, want: types.OutcomeCriticalSuccess},
		{name: "success", base: 50, roll: 50, want: types.OutcomeSuccess},
		{name: "failure", base: 50, roll: 97, want: types.OutcomeFailure},
		{name: "fumble on 100", base: 80, roll: 100, want: types.OutcomeFumble},
		{name: "fumble low skill", base: 40, roll: 96, want: types.OutcomeFumble},
		{name: "zero threshold", base: 0, roll: 1, want: types.OutcomeFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Evaluate(types.DefaultDC, tc.base, types.DifficultyNormal, tc.roll)
			if out.Outcome != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, out.Outcome)
			}
			if out.Success != (tc.roll <= out.Threshold) {
				t.Fatalf("success flag disagrees with threshold: %+v", out)
			}
		})
	}
}

func TestSeededRandomIsReproducible(t *testing.T) {
	a := NewRandom(7)
	b := NewRandom(7)
	for i := 0; i < 20; i++ {
		ra, rb := Roll(a), Roll(b)
		if ra != rb {
			t.Fatalf("roll %d differs: %d vs %d", i, ra, rb)
		}
		if ra < 1 || ra > 100 {
			t.Fatalf("roll out of range: %d", ra)
		}
	}
}
