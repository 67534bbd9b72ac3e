package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/easeaico/project-keeper/internal/types"
)

type fakeEmbedder struct {
	failOn string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if text == f.failOn {
		return nil, errors.New("embed failed")
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	if text == f.failOn {
		return nil, errors.New("embed failed")
	}
	return []float32{0, 1}, nil
}

type fakeArchiveRepo struct {
	added     []types.ArchivedRound
	results   []types.RetrievedRound
	lastQuery []float32
	lastTopK  int
}

func (f *fakeArchiveRepo) AddRounds(_ context.Context, rounds []types.ArchivedRound) error {
	f.added = append(f.added, rounds...)
	return nil
}

func (f *fakeArchiveRepo) SearchRounds(_ context.Context, _ string, embedding []float32, topK int, _ float64) ([]types.RetrievedRound, error) {
	f.lastQuery = embedding
	f.lastTopK = topK
	return append([]types.RetrievedRound(nil), f.results...), nil
}

func TestArchiveStoreEmbedsAndScores(t *testing.T) {
	repo := &fakeArchiveRepo{}
	a := NewArchive(&fakeEmbedder{failOn: "坏"}, repo, 3, 0.5)

	err := a.Store(context.Background(), "s1", []types.RoundSummary{
		{Round: 1, Summary: "好"},
		{Round: 2, Summary: "坏"},
	}, types.WorldStateDelta{Threads: []types.Thread{{Title: "t", Status: types.ThreadResolved}}})
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if len(repo.added) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(repo.added))
	}
	if repo.added[0].Embedding == nil || repo.added[1].Embedding != nil {
		t.Fatalf("failed embedding should leave the vector empty: %+v", repo.added)
	}
	if repo.added[0].Salience <= 0.10 {
		t.Fatalf("resolved thread should raise salience, got %v", repo.added[0].Salience)
	}
}

func TestArchiveRecallRanks(t *testing.T) {
	repo := &fakeArchiveRepo{results: []types.RetrievedRound{
		{Round: 1, Similarity: 0.80, Salience: 0.0},
		{Round: 2, Similarity: 0.75, Salience: 1.0},
		{Round: 3, Similarity: 0.90, Salience: 0.2},
	}}
	a := NewArchive(&fakeEmbedder{}, repo, 2, 0.5)

	got, err := a.Recall(context.Background(), "s1", "书房")
	if err != nil {
		t.Fatalf("Recall returned error: %v", err)
	}
	if len(got) != 2 || got[0].Round != 3 || got[1].Round != 2 {
		t.Fatalf("unexpected ranking %+v", got)
	}
	if repo.lastQuery == nil || repo.lastTopK != 2 {
		t.Fatalf("expected vector search with topK 2")
	}
}

func TestArchiveRecallWithoutEmbedder(t *testing.T) {
	repo := &fakeArchiveRepo{results: []types.RetrievedRound{{Round: 4}}}
	a := NewArchive(nil, repo, 0, 0)

	got, err := a.Recall(context.Background(), "s1", "anything")
	if err != nil {
		t.Fatalf("Recall returned error: %v", err)
	}
	if len(got) != 1 || repo.lastQuery != nil {
		t.Fatalf("expected recency search, got %+v", got)
	}
	if got, _ := a.Recall(context.Background(), "s1", "  "); got != nil {
		t.Fatalf("blank query should return nothing")
	}
}
