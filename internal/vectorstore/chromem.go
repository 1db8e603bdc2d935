package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
)

const (
	metaChatID      = "chat_id"
	metaGroupID     = "group_id"
	metaPayload     = "payload"
	participantKey  = "participant:"
	participantFlag = "true"
)

// Chromem keeps points in an embedded chromem-go database.
// Participant membership is stored as one metadata key per id, since
// chromem filters are exact matches on metadata.
type Chromem struct {
	db          *chromem.DB
	log         zerolog.Logger
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

func NewChromem(log zerolog.Logger) *Chromem {
	return &Chromem{
		db:          chromem.NewDB(),
		log:         log,
		collections: make(map[string]*chromem.Collection),
	}
}

func (s *Chromem) EnsureCollections(_ context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if _, ok := s.collections[name]; ok {
			continue
		}
		// Embeddings are always supplied, so no embedding func.
		col, err := s.db.GetOrCreateCollection(name, nil, nil)
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		s.collections[name] = col
	}
	return nil
}

func (s *Chromem) collection(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return col, nil
}

func (s *Chromem) Upsert(ctx context.Context, collection string, p Point) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	meta := map[string]string{
		metaChatID:  p.ChatID,
		metaGroupID: p.GroupID,
		metaPayload: string(p.Payload),
	}
	for _, id := range p.ParticipantIDs {
		meta[participantKey+id] = participantFlag
	}

	// AddDocument replaces an existing document with the same ID.
	doc := chromem.Document{
		ID:        p.ID,
		Metadata:  meta,
		Embedding: p.Vector,
		Content:   p.Text,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document %s: %w", p.ID, err)
	}
	s.log.Debug().Str("collection", collection).Str("point_id", p.ID).Msg("point upserted")
	return nil
}

func (s *Chromem) Search(ctx context.Context, collection string, filter Filter, vector []float32, limit int) ([]Hit, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	n := limit
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return []Hit{}, nil
	}

	where := map[string]string{}
	if filter.ParticipantID != "" {
		where[participantKey+filter.ParticipantID] = participantFlag
	} else {
		where[metaGroupID] = filter.GroupID
	}

	results, err := col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		payload := r.Metadata[metaPayload]
		if !json.Valid([]byte(payload)) {
			s.log.Warn().Str("point_id", r.ID).Msg("skipping point with invalid payload")
			continue
		}
		hits = append(hits, Hit{ID: r.ID, Score: r.Similarity, Payload: json.RawMessage(payload)})
	}
	return hits, nil
}
