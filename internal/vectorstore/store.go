// Package vectorstore stores memory points and runs filtered similarity
// search over them. Two backends exist: chromem-go (embedded, default) and
// Weaviate.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrUnknownCollection is returned when writing to or searching a collection
// that EnsureCollections never created.
var ErrUnknownCollection = errors.New("unknown collection")

// Point is one stored record. Payload is opaque to the store; the other
// fields are indexed for filtering.
type Point struct {
	ID             string
	Vector         []float32
	Text           string
	ChatID         string
	GroupID        string
	ParticipantIDs []string
	Payload        json.RawMessage
}

// Filter restricts a search. Set exactly one field.
type Filter struct {
	ParticipantID string // membership in Point.ParticipantIDs
	GroupID       string // exact match on Point.GroupID
}

func (f Filter) Validate() error {
	switch {
	case f.ParticipantID != "" && f.GroupID != "":
		return fmt.Errorf("filter sets both participant and group")
	case f.ParticipantID == "" && f.GroupID == "":
		return fmt.Errorf("filter is empty")
	}
	return nil
}

// Hit is one search result, best first.
type Hit struct {
	ID      string
	Score   float32
	Payload json.RawMessage
}

// Store is the vector-store collaborator.
type Store interface {
	// EnsureCollections creates any missing collection and its filter
	// indexes. Safe to call repeatedly.
	EnsureCollections(ctx context.Context, names ...string) error
	// Upsert writes p, replacing any point with the same ID.
	Upsert(ctx context.Context, collection string, p Point) error
	Search(ctx context.Context, collection string, filter Filter, vector []float32, limit int) ([]Hit, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend        string // chromem | weaviate
	WeaviateScheme string
	WeaviateHost   string
	WeaviateAPIKey string
}

// New builds the backend named in opts.
func New(opts Options, log zerolog.Logger) (Store, error) {
	switch opts.Backend {
	case "chromem", "":
		return NewChromem(log), nil
	case "weaviate":
		return NewWeaviate(opts.WeaviateScheme, opts.WeaviateHost, opts.WeaviateAPIKey, log)
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", opts.Backend)
	}
}

// Bootstrap ensures the collections exist, retrying with exponential
// backoff while the store comes up.
func Bootstrap(ctx context.Context, s Store, maxWait time.Duration, log zerolog.Logger, names ...string) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = maxWait

	attempt := 0
	op := func() error {
		attempt++
		err := s.EnsureCollections(ctx, names...)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("vector store not ready")
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(exp, ctx)); err != nil {
		return fmt.Errorf("bootstrap vector store: %w", err)
	}
	log.Info().Strs("collections", names).Int("attempts", attempt).Msg("✅ Vector store ready")
	return nil
}
