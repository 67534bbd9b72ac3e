// Package check resolves d100 checks and picks difficulty classes.
//
// Everything here is pure. The only randomness is the die roll, and the
// source of that roll is always passed in by the caller.
package check

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/easeaico/project-keeper/internal/types"
)

// RandomSource yields uniform integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// NewRandom returns a source seeded with seed. Same seed, same rolls.
func NewRandom(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSeededRandom returns a source seeded from crypto/rand.
func NewSeededRandom() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return NewRandom(0)
	}
	return NewRandom(int64(binary.LittleEndian.Uint64(b[:])))
}

// Roll draws a d100 result from rnd.
func Roll(rnd RandomSource) int {
	return clampInt(rnd.Intn(100)+1, 1, 100)
}

// ClampDC forces dc into [MinDC, MaxDC].
func ClampDC(dc int) int {
	return clampInt(dc, types.MinDC, types.MaxDC)
}

// ClampDCFloat rounds dc and clamps it. NaN maps to DefaultDC.
func ClampDCFloat(dc float64) int {
	switch {
	case math.IsNaN(dc):
		return types.DefaultDC
	case math.IsInf(dc, 1):
		return types.MaxDC
	case math.IsInf(dc, -1):
		return types.MinDC
	}
	r := math.Round(dc)
	if r < types.MinDC {
		return types.MinDC
	}
	if r > types.MaxDC {
		return types.MaxDC
	}
	return int(r)
}

// AdjustForDifficulty scales the base value by tier.
func AdjustForDifficulty(base int, tier types.Difficulty) int {
	if base < 0 {
		base = 0
	}
	switch tier {
	case types.DifficultyHard:
		return base / 2
	case types.DifficultyExtreme:
		return base / 5
	default:
		return base
	}
}

// Threshold is min(adjusted base, clamped dc).
func Threshold(dc, base int, tier types.Difficulty) int {
	adjusted := AdjustForDifficulty(base, tier)
	if c := ClampDC(dc); c < adjusted {
		return c
	}
	return adjusted
}

// Resolve rolls once and evaluates the result.
func Resolve(dc, base int, tier types.Difficulty, rnd RandomSource) types.CheckOutcome {
	return Evaluate(dc, base, tier, Roll(rnd))
}

// Evaluate is Resolve with the roll already made.
//
// Success iff roll <= threshold. The outcome grade refines it: a successful
// roll of 1 is critical; a failed roll of 100, or of 96+ against a threshold
// below 50, is a fumble.
func Evaluate(dc, base int, tier types.Difficulty, roll int) types.CheckOutcome {
	if _, ok := types.ParseDifficulty(string(tier)); !ok {
		tier = types.DifficultyNormal
	}
	roll = clampInt(roll, 1, 100)
	threshold := Threshold(dc, base, tier)
	success := roll <= threshold

	outcome := gradeOutcome(roll, threshold, success)
	return types.CheckOutcome{
		Roll:            roll,
		Threshold:       threshold,
		Success:         success,
		Outcome:         outcome,
		OutcomeLabel:    outcome.Label(),
		Difficulty:      tier,
		DifficultyLabel: tier.Label(),
	}
}

func gradeOutcome(roll, threshold int, success bool) types.Outcome {
	if success {
		if roll == 1 {
			return types.OutcomeCriticalSuccess
		}
		return types.OutcomeSuccess
	}
	if roll == 100 || (threshold < 50 && roll >= 96) {
		return types.OutcomeFumble
	}
	return types.OutcomeFailure
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
