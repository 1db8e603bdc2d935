package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(vals ...float32) []float32 { return vals }

func newChromem(t *testing.T) *Chromem {
	t.Helper()
	s := NewChromem(zerolog.Nop())
	require.NoError(t, s.EnsureCollections(context.Background(), "individual_chats", "group_chats"))
	return s
}

func TestChromemUpsertReplacesByID(t *testing.T) {
	s := newChromem(t)
	ctx := context.Background()

	p := Point{
		ID:             "9b2c4f1e-0000-5000-8000-000000000001",
		Vector:         unit(1, 0, 0),
		Text:           "first",
		ChatID:         "individual:u1:u2",
		ParticipantIDs: []string{"u1", "u2"},
		Payload:        json.RawMessage(`{"summary_text":"first"}`),
	}
	require.NoError(t, s.Upsert(ctx, "individual_chats", p))

	p.Text = "second"
	p.Payload = json.RawMessage(`{"summary_text":"second"}`)
	require.NoError(t, s.Upsert(ctx, "individual_chats", p))

	hits, err := s.Search(ctx, "individual_chats", Filter{ParticipantID: "u1"}, unit(1, 0, 0), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, p.ID, hits[0].ID)
	assert.JSONEq(t, `{"summary_text":"second"}`, string(hits[0].Payload))
}

func TestChromemFilters(t *testing.T) {
	s := newChromem(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "individual_chats", Point{
		ID: "a", Vector: unit(1, 0, 0), Text: "a", ParticipantIDs: []string{"u1", "u2"}, Payload: json.RawMessage(`{"n":"a"}`),
	}))
	require.NoError(t, s.Upsert(ctx, "individual_chats", Point{
		ID: "b", Vector: unit(0.9, 0.1, 0), Text: "b", ParticipantIDs: []string{"u2", "u3"}, Payload: json.RawMessage(`{"n":"b"}`),
	}))
	require.NoError(t, s.Upsert(ctx, "group_chats", Point{
		ID: "g", Vector: unit(0, 1, 0), Text: "g", GroupID: "team", ParticipantIDs: []string{"u1"}, Payload: json.RawMessage(`{"n":"g"}`),
	}))

	hits, err := s.Search(ctx, "individual_chats", Filter{ParticipantID: "u2"}, unit(1, 0, 0), 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID, "closest first")
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	hits, err = s.Search(ctx, "individual_chats", Filter{ParticipantID: "u3"}, unit(1, 0, 0), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	hits, err = s.Search(ctx, "group_chats", Filter{GroupID: "team"}, unit(1, 0, 0), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "g", hits[0].ID)

	hits, err = s.Search(ctx, "group_chats", Filter{GroupID: "other"}, unit(1, 0, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemEmptyAndUnknown(t *testing.T) {
	s := newChromem(t)
	ctx := context.Background()

	hits, err := s.Search(ctx, "group_chats", Filter{GroupID: "team"}, unit(1, 0), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = s.Search(ctx, "nope", Filter{GroupID: "team"}, unit(1, 0), 10)
	assert.ErrorIs(t, err, ErrUnknownCollection)

	err = s.Upsert(ctx, "nope", Point{ID: "x", Vector: unit(1)})
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = s.Search(ctx, "group_chats", Filter{}, unit(1, 0), 10)
	assert.Error(t, err)
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "IndividualChats", ClassName("individual_chats"))
	assert.Equal(t, "GroupChats", ClassName("group_chats"))
	assert.Equal(t, "Memories", ClassName("memories"))
}

func TestWeaviateClassDeclaresFilterIndexes(t *testing.T) {
	class := classFor("group_chats")
	assert.Equal(t, "GroupChats", class.Class)
	indexed := map[string]bool{}
	for _, p := range class.Properties {
		if p.IndexFilterable != nil && *p.IndexFilterable {
			indexed[p.Name] = true
		}
	}
	assert.True(t, indexed["participant_ids"])
	assert.True(t, indexed["group_id"])
	assert.True(t, indexed["chat_id"])
	assert.False(t, indexed["payload"])
}

func TestWeaviateFilterPropertiesMatchWholeIDs(t *testing.T) {
	tokenization := map[string]string{}
	for _, p := range classFor("individual_chats").Properties {
		tokenization[p.Name] = p.Tokenization
	}
	for _, name := range []string{"chat_id", "group_id", "participant_ids"} {
		assert.Equal(t, "field", tokenization[name], name)
	}
}

type flakyStore struct {
	Store
	failures int
	calls    int
}

func (f *flakyStore) EnsureCollections(context.Context, ...string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestBootstrapRetries(t *testing.T) {
	s := &flakyStore{failures: 2}
	err := Bootstrap(context.Background(), s, 5*time.Second, zerolog.Nop(), "individual_chats")
	require.NoError(t, err)
	assert.Equal(t, 3, s.calls)
}

func TestBootstrapGivesUp(t *testing.T) {
	s := &flakyStore{failures: 1000}
	err := Bootstrap(context.Background(), s, 300*time.Millisecond, zerolog.Nop(), "individual_chats")
	assert.Error(t, err)
}
