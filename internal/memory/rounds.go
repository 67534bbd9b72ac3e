// Package memory 维护会话的世界记忆：分轮、压缩、合并与轮转。
package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/easeaico/project-keeper/internal/types"
)

// Round is one player message and the DM replies that followed it.
type Round struct {
	Index     int
	Player    string
	DM        []string
	StartedAt time.Time
	EndedAt   time.Time
}

// Complete reports whether at least one DM reply arrived.
func (r Round) Complete() bool {
	return len(r.DM) > 0
}

// DMText joins the DM replies.
func (r Round) DMText() string {
	return strings.Join(r.DM, "\n")
}

// Buckets is the result of partitioning a transcript.
type Buckets struct {
	Complete []Round
	// Pending is the trailing player message that has no DM reply yet.
	Pending *Round
	// Watermark is the timestamp of the last message of the last complete round.
	Watermark time.Time
}

// BucketRounds partitions messages into rounds numbered from lastRound+1.
// DM messages before the first player message form an opening round with no
// player text. Messages with an unknown role are ignored.
func BucketRounds(messages []types.Message, lastRound int) Buckets {
	sorted := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		if types.NormalizeRole(m.Role) != "" {
			sorted = append(sorted, m)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var rounds []Round
	var cur *Round
	for _, m := range sorted {
		switch types.NormalizeRole(m.Role) {
		case types.RolePlayer:
			if cur != nil {
				rounds = append(rounds, *cur)
			}
			cur = &Round{Player: strings.TrimSpace(m.Content), StartedAt: m.CreatedAt, EndedAt: m.CreatedAt}
		case types.RoleDM:
			if cur == nil {
				cur = &Round{StartedAt: m.CreatedAt}
			}
			cur.DM = append(cur.DM, strings.TrimSpace(m.Content))
			cur.EndedAt = m.CreatedAt
		}
	}
	if cur != nil {
		rounds = append(rounds, *cur)
	}

	var out Buckets
	next := lastRound
	for i := range rounds {
		r := rounds[i]
		if !r.Complete() {
			// Only the trailing round can be unanswered; an unanswered player
			// message followed by another player message is folded forward.
			if i == len(rounds)-1 {
				out.Pending = &r
				continue
			}
			rounds[i+1].Player = joinNonEmpty(r.Player, rounds[i+1].Player)
			rounds[i+1].StartedAt = r.StartedAt
			continue
		}
		next++
		r.Index = next
		out.Complete = append(out.Complete, r)
		out.Watermark = r.EndedAt
	}
	return out
}

// Batches chunks rounds into groups of size.
func Batches(rounds []Round, size int) [][]Round {
	if size <= 0 {
		size = 1
	}
	var out [][]Round
	for start := 0; start < len(rounds); start += size {
		end := start + size
		if end > len(rounds) {
			end = len(rounds)
		}
		out = append(out, rounds[start:end])
	}
	return out
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
