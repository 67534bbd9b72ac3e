package memory

import (
	"strings"

	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

// FallbackSummaryRunes is the truncation length of a synthesised summary.
const FallbackSummaryRunes = 140

// FallbackSummary summarises a round without a model: the DM text, or the
// player text when there is none, cut to FallbackSummaryRunes.
func FallbackSummary(r Round) types.RoundSummary {
	text := r.DMText()
	if strings.TrimSpace(text) == "" {
		text = r.Player
	}
	// 地图块对摘要没有意义
	text = stripMapBlocks(text)
	summary := utils.TruncateRunes(text, FallbackSummaryRunes)
	if summary == "" {
		summary = "（无内容）"
	}
	return types.RoundSummary{Round: r.Index, Summary: summary}
}

// CompleteSummaries returns exactly one summary per round, in round order.
// Model summaries for rounds outside the batch are ignored; missing rounds
// get a fallback summary.
func CompleteSummaries(rounds []Round, fromModel []types.RoundSummary) []types.RoundSummary {
	byRound := make(map[int]string, len(fromModel))
	for _, s := range fromModel {
		if text := strings.TrimSpace(s.Summary); text != "" {
			byRound[s.Round] = text
		}
	}
	out := make([]types.RoundSummary, 0, len(rounds))
	for _, r := range rounds {
		if text, ok := byRound[r.Index]; ok {
			out = append(out, types.RoundSummary{Round: r.Index, Summary: text})
			continue
		}
		out = append(out, FallbackSummary(r))
	}
	return out
}

// FallbackFold appends overflow lines to the long summary.
func FallbackFold(longSummary string, overflow []types.RoundSummary) string {
	lines := make([]string, 0, len(overflow)+1)
	if s := strings.TrimSpace(longSummary); s != "" {
		lines = append(lines, s)
	}
	for _, r := range overflow {
		lines = append(lines, r.Line())
	}
	return strings.Join(lines, "\n")
}
