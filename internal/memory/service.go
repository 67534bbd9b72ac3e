package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	adkmemory "google.golang.org/adk/memory"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

// TranscriptWriter appends messages to the session transcript.
type TranscriptWriter interface {
	AppendMessage(ctx context.Context, sessionID, role, content string) (*types.Message, error)
}

// RefreshQueue schedules background refreshes.
type RefreshQueue interface {
	Enqueue(sessionID string) bool
}

type recaller interface {
	Recall(ctx context.Context, sessionID, query string) ([]types.RetrievedRound, error)
}

// service implements ADK memory.Service on top of the transcript and the
// round archive. ADK search requests carry no session, so the last session
// seen for a user is searched.
type service struct {
	recall     recaller
	transcript TranscriptWriter
	queue      RefreshQueue

	mu        sync.Mutex
	sessions  map[string]string
	lastEvent map[string]string
}

// NewService returns a memory service.
func NewService(recall recaller, transcript TranscriptWriter, queue RefreshQueue) adkmemory.Service {
	return &service{
		recall:     recall,
		transcript: transcript,
		queue:      queue,
		sessions:   make(map[string]string),
		lastEvent:  make(map[string]string),
	}
}

func userKey(appName, userID string) string {
	return appName + "/" + userID
}

// AddSession archives the latest DM reply of the session and schedules a
// refresh. Calling it twice for the same event is a no-op.
func (s *service) AddSession(ctx context.Context, sess session.Session) error {
	s.mu.Lock()
	s.sessions[userKey(sess.AppName(), sess.UserID())] = sess.ID()
	s.mu.Unlock()

	events := sess.Events()
	for i := events.Len() - 1; i >= 0; i-- {
		event := events.At(i)
		if event == nil || event.Content == nil || event.Content.Role == "user" || event.Partial {
			continue
		}
		text := strings.TrimSpace(utils.ExtractContentText(event.Content))
		if text == "" {
			continue
		}

		s.mu.Lock()
		seen := s.lastEvent[sess.ID()] == event.ID
		s.lastEvent[sess.ID()] = event.ID
		s.mu.Unlock()
		if seen {
			return nil
		}

		if _, err := s.transcript.AppendMessage(ctx, sess.ID(), types.RoleDM, text); err != nil {
			return fmt.Errorf("failed to archive dm reply: %w", err)
		}
		break
	}

	if s.queue != nil {
		s.queue.Enqueue(sess.ID())
	}
	return nil
}

func (s *service) Search(ctx context.Context, req *adkmemory.SearchRequest) (*adkmemory.SearchResponse, error) {
	if req == nil || req.Query == "" {
		return &adkmemory.SearchResponse{Memories: nil}, nil
	}

	s.mu.Lock()
	sessionID := s.sessions[userKey(req.AppName, req.UserID)]
	s.mu.Unlock()
	if sessionID == "" {
		return &adkmemory.SearchResponse{Memories: nil}, nil
	}

	rounds, err := s.recall.Recall(ctx, sessionID, req.Query)
	if err != nil {
		return nil, err
	}
	return &adkmemory.SearchResponse{Memories: ToMemoryEntries(rounds)}, nil
}

// ToMemoryEntries converts recalled rounds to ADK memory entries.
func ToMemoryEntries(rounds []types.RetrievedRound) []adkmemory.Entry {
	if len(rounds) == 0 {
		return nil
	}
	results := make([]adkmemory.Entry, 0, len(rounds))
	for _, r := range rounds {
		ts := r.CreatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		results = append(results, adkmemory.Entry{
			Content:   genai.NewContentFromText(types.RoundSummary{Round: r.Round, Summary: r.Summary}.Line(), genai.RoleModel),
			Author:    types.RoleDM,
			Timestamp: ts,
		})
	}
	return results
}
