package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"go-chat-memory/internal/embeddings"
	"go-chat-memory/internal/metrics"
	"go-chat-memory/internal/vectorstore"
)

// Collections names the two vector-store collections.
type Collections struct {
	Individual string
	Group      string
}

func (c Collections) For(t ChatType) string {
	if t == Group {
		return c.Group
	}
	return c.Individual
}

// Store writes records to the vector store under deterministic point ids.
type Store struct {
	vectors       vectorstore.Store
	embedder      embeddings.Provider
	collections   Collections
	vectorTimeout time.Duration
	embedTimeout  time.Duration
	log           zerolog.Logger
}

func NewStore(vectors vectorstore.Store, embedder embeddings.Provider, collections Collections, vectorTimeout, embedTimeout time.Duration, log zerolog.Logger) *Store {
	return &Store{
		vectors:       vectors,
		embedder:      embedder,
		collections:   collections,
		vectorTimeout: vectorTimeout,
		embedTimeout:  embedTimeout,
		log:           log,
	}
}

// Upsert ensures both collections, embeds rec.Text and writes the point.
// Any failure is ErrVectorStoreUnavailable.
func (s *Store) Upsert(ctx context.Context, pointID string, rec Record) (int, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}

	vec, err := s.embed(ctx, rec.Text)
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(NewPayload(rec))
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	collection := s.collections.For(rec.Type)
	point := vectorstore.Point{
		ID:             pointID,
		Vector:         vec,
		Text:           rec.Text,
		ChatID:         rec.ConversationID,
		GroupID:        rec.GroupID,
		ParticipantIDs: rec.ParticipantIDs(),
		Payload:        payload,
	}

	vctx, cancel := context.WithTimeout(ctx, s.vectorTimeout)
	defer cancel()
	if err := s.vectors.Upsert(vctx, collection, point); err != nil {
		return 0, fmt.Errorf("%w: upsert %s: %v", ErrVectorStoreUnavailable, pointID, err)
	}

	metrics.MemoryUpserts.WithLabelValues(string(rec.Type)).Inc()
	s.log.Info().
		Str("collection", collection).
		Str("chat_id", rec.ConversationID).
		Str("point_id", pointID).
		Msg("memory record upserted")
	return 1, nil
}

func (s *Store) ensure(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.vectorTimeout)
	defer cancel()
	if err := s.vectors.EnsureCollections(ctx, s.collections.Individual, s.collections.Group); err != nil {
		return fmt.Errorf("%w: ensure collections: %v", ErrVectorStoreUnavailable, err)
	}
	return nil
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", ErrVectorStoreUnavailable, err)
	}
	return vec, nil
}
