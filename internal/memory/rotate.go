package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/easeaico/project-keeper/internal/types"
)

// MaxRoundWindow is the number of discrete round summaries kept.
const MaxRoundWindow = 20

// AppendWindow adds summaries to the window, replacing entries with the same
// round number, and keeps it ordered by round.
func AppendWindow(window, add []types.RoundSummary) []types.RoundSummary {
	byRound := make(map[int]types.RoundSummary, len(window)+len(add))
	for _, s := range window {
		byRound[s.Round] = s
	}
	for _, s := range add {
		byRound[s.Round] = s
	}
	out := make([]types.RoundSummary, 0, len(byRound))
	for _, s := range byRound {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out
}

// Rotate folds everything beyond the newest MaxRoundWindow entries into the
// long summary. It returns the folded-out entries. The fold falls back to
// plain concatenation when the compressor fails, so nothing is lost.
func Rotate(ctx context.Context, c Compressor, rec *types.MemoryRecord) []types.RoundSummary {
	if len(rec.RoundSummaries) <= MaxRoundWindow {
		return nil
	}
	cut := len(rec.RoundSummaries) - MaxRoundWindow
	overflow := append([]types.RoundSummary(nil), rec.RoundSummaries[:cut]...)
	rec.RoundSummaries = append([]types.RoundSummary(nil), rec.RoundSummaries[cut:]...)

	var folded string
	if c != nil {
		var err error
		folded, err = c.FoldSummary(ctx, rec.LongSummary, overflow)
		if err != nil {
			slog.Warn("failed to fold round summaries, concatenating", "session_id", rec.SessionID, "rounds", len(overflow), "error", err.Error())
			folded = ""
		}
	}
	if strings.TrimSpace(folded) == "" {
		folded = FallbackFold(rec.LongSummary, overflow)
	}
	rec.LongSummary = folded
	return overflow
}
