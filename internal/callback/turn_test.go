package callback

import (
	"context"
	"errors"
	"iter"
	"testing"

	"google.golang.org/adk/session"

	"github.com/easeaico/project-keeper/internal/prompt"
	"github.com/easeaico/project-keeper/internal/types"
)

func TestBindCharacterBindsUnboundSession(t *testing.T) {
	chars := &fakeCharacters{}
	bindCharacter(context.Background(), TurnDeps{Characters: chars, CharacterID: 3}, "s1")
	if chars.bound["s1"] != 3 {
		t.Fatalf("expected s1 bound to 3, got %v", chars.bound)
	}
}

func TestBindCharacterKeepsExistingBinding(t *testing.T) {
	chars := &fakeCharacters{character: &types.Character{ID: 9}}
	bindCharacter(context.Background(), TurnDeps{Characters: chars, CharacterID: 3}, "s1")
	if len(chars.bound) != 0 {
		t.Fatalf("expected no new binding, got %v", chars.bound)
	}
}

func TestBindCharacterSkipsOnLookupError(t *testing.T) {
	chars := &fakeCharacters{err: errors.New("db down")}
	bindCharacter(context.Background(), TurnDeps{Characters: chars, CharacterID: 3}, "s1")
	if len(chars.bound) != 0 {
		t.Fatalf("expected no binding after lookup error, got %v", chars.bound)
	}

	bindCharacter(context.Background(), TurnDeps{Characters: &fakeCharacters{}}, "s1")
}

func TestEnsureStateValueKeepsExisting(t *testing.T) {
	state := &mockState{data: map[string]any{prompt.StateKeyCheckResults: "侦查 成功"}}
	ensureStateValue(state, prompt.StateKeyCheckResults, NoCheckText)
	ensureStateValue(state, prompt.StateKeyMemoryContext, "")

	if got := state.data[prompt.StateKeyCheckResults]; got != "侦查 成功" {
		t.Fatalf("existing value overwritten: %v", got)
	}
	if got, ok := state.data[prompt.StateKeyMemoryContext]; !ok || got != "" {
		t.Fatalf("expected empty memory context to be seeded, got %v", got)
	}
}

type mockState struct {
	data map[string]any
}

func (m *mockState) Get(key string) (any, error) {
	val, ok := m.data[key]
	if !ok {
		return nil, session.ErrStateKeyNotExist
	}
	return val, nil
}

func (m *mockState) Set(key string, value any) error {
	m.data[key] = value
	return nil
}

func (m *mockState) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for k, v := range m.data {
			if !yield(k, v) {
				return
			}
		}
	}
}

var _ session.State = (*mockState)(nil)
