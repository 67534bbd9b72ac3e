package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// RolePlayer marks a message typed by a player.
	RolePlayer = "player"
	// RoleDM marks a message authored by the narrator.
	RoleDM = "dm"
)

// ShortSummaryKeepRecent is how many of the newest round summaries stay out of
// the short summary because they are sent to the model verbatim.
const ShortSummaryKeepRecent = 3

// Message is one transcript entry.
type Message struct {
	ID        int       `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeRole maps provider role names onto player/dm.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "player", "user", "human":
		return RolePlayer
	case "dm", "gm", "keeper", "assistant", "model", "narrator":
		return RoleDM
	default:
		return ""
	}
}

// RoundSummary is the compressed form of one player→DM exchange.
type RoundSummary struct {
	Round   int    `json:"round"`
	Summary string `json:"summary"`
}

// Line renders the summary the way it is embedded into prose summaries.
func (r RoundSummary) Line() string {
	return fmt.Sprintf("第%d轮：%s", r.Round, r.Summary)
}

// MemoryRecord is the persisted memory unit of one session.
type MemoryRecord struct {
	SessionID       string         `json:"session_id"`
	LastRound       int            `json:"last_round"`
	LastProcessedAt time.Time      `json:"last_processed_at"`
	LongSummary     string         `json:"long_summary"`
	RoundSummaries  []RoundSummary `json:"round_summaries"`
	State           WorldState     `json:"state"`
	UpdatedAt       time.Time      `json:"updated_at"`
	// Revision counts committed refresh passes. Zero means never stored.
	Revision int `json:"revision"`
}

// ErrStaleMemory is returned when a memory record was committed by another
// refresh pass after it was read.
var ErrStaleMemory = errors.New("memory record changed by another refresh")

// RefreshCommit is everything one refresh pass writes. Record.Revision is the
// revision the pass read; the writes apply together or not at all.
type RefreshCommit struct {
	Record      *MemoryRecord
	CharacterID int
	// Lists is nil when the character lists did not change.
	Lists *CharacterLists
	// Map is nil when no new scene map was found.
	Map *MapVersion
}

// ShortSummary is the long summary followed by every window entry except the
// newest ShortSummaryKeepRecent ones.
func (r MemoryRecord) ShortSummary() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(r.LongSummary))
	cut := len(r.RoundSummaries) - ShortSummaryKeepRecent
	for i := 0; i < cut; i++ {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(r.RoundSummaries[i].Line())
	}
	return sb.String()
}

// RecentRounds returns the newest window entries excluded from ShortSummary.
func (r MemoryRecord) RecentRounds() []RoundSummary {
	start := len(r.RoundSummaries) - ShortSummaryKeepRecent
	if start < 0 {
		start = 0
	}
	return r.RoundSummaries[start:]
}

// MapVersion is one archived scene map.
type MapVersion struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	RoundIndex int       `json:"round_index"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// ArchivedRound is a round summary stored for later recall.
type ArchivedRound struct {
	SessionID string    `json:"session_id"`
	Round     int       `json:"round"`
	Summary   string    `json:"summary"`
	Salience  float64   `json:"salience_score"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// RetrievedRound is a recalled round summary.
type RetrievedRound struct {
	Round      int       `json:"round"`
	Summary    string    `json:"summary"`
	Similarity float64   `json:"similarity"`
	Salience   float64   `json:"salience_score"`
	CreatedAt  time.Time `json:"created_at"`
}
