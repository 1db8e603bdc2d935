package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// Weaviate stores points as objects of one class per collection.
type Weaviate struct {
	client *weaviate.Client
	log    zerolog.Logger
}

// NewWeaviate connects to host (host:port, no scheme).
func NewWeaviate(scheme, host, apiKey string, log zerolog.Logger) (*Weaviate, error) {
	if scheme == "" {
		scheme = "http"
	}
	cfg := weaviate.Config{Scheme: scheme, Host: host}
	if apiKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: apiKey}
	}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client: %w", err)
	}
	return &Weaviate{client: cl, log: log}, nil
}

// ClassName maps a collection name such as "individual_chats" to the
// Weaviate class "IndividualChats".
func ClassName(collection string) string {
	parts := strings.FieldsFunc(collection, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	var b strings.Builder
	for _, p := range parts {
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

func boolPtr(b bool) *bool { return &b }

// filterTokenization keeps ids whole and case-sensitive so filters match exactly.
const filterTokenization = "field"

func classFor(collection string) *models.Class {
	return &models.Class{
		Class:      ClassName(collection),
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "chat_id", DataType: []string{"text"}, IndexFilterable: boolPtr(true), Tokenization: filterTokenization},
			{Name: "group_id", DataType: []string{"text"}, IndexFilterable: boolPtr(true), Tokenization: filterTokenization},
			{Name: "participant_ids", DataType: []string{"text[]"}, IndexFilterable: boolPtr(true), Tokenization: filterTokenization},
			{Name: "summary_text", DataType: []string{"text"}},
			{Name: "payload", DataType: []string{"text"}, IndexFilterable: boolPtr(false), IndexSearchable: boolPtr(false)},
		},
	}
}

func (w *Weaviate) EnsureCollections(ctx context.Context, names ...string) error {
	for _, name := range names {
		class := classFor(name)
		exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(class.Class).Do(ctx)
		if err != nil {
			return fmt.Errorf("check class %s: %w", class.Class, err)
		}
		if exists {
			continue
		}
		if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("create class %s: %w", class.Class, err)
		}
		w.log.Info().Str("class", class.Class).Msg("weaviate class created")
	}
	return nil
}

func (w *Weaviate) Upsert(ctx context.Context, collection string, p Point) error {
	className := ClassName(collection)
	props := map[string]interface{}{
		"chat_id":         p.ChatID,
		"group_id":        p.GroupID,
		"participant_ids": p.ParticipantIDs,
		"summary_text":    p.Text,
		"payload":         string(p.Payload),
	}

	exists, err := w.client.Data().Checker().WithClassName(className).WithID(p.ID).Do(ctx)
	if err != nil {
		return fmt.Errorf("check object %s: %w", p.ID, err)
	}
	if exists {
		err = w.client.Data().Updater().
			WithClassName(className).
			WithID(p.ID).
			WithProperties(props).
			WithVector(p.Vector).
			Do(ctx)
	} else {
		_, err = w.client.Data().Creator().
			WithClassName(className).
			WithID(p.ID).
			WithProperties(props).
			WithVector(p.Vector).
			Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("upsert object %s: %w", p.ID, err)
	}
	w.log.Debug().Str("class", className).Str("point_id", p.ID).Bool("replaced", exists).Msg("point upserted")
	return nil
}

func (w *Weaviate) Search(ctx context.Context, collection string, filter Filter, vector []float32, limit int) ([]Hit, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	className := ClassName(collection)

	var where *filters.WhereBuilder
	if filter.ParticipantID != "" {
		where = filters.Where().WithPath([]string{"participant_ids"}).WithOperator(filters.ContainsAny).WithValueText(filter.ParticipantID)
	} else {
		where = filters.Where().WithPath([]string{"group_id"}).WithOperator(filters.Equal).WithValueText(filter.GroupID)
	}
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	resp, err := w.client.GraphQL().Get().
		WithClassName(className).
		WithWhere(where).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(
			gql.Field{Name: "payload"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "id"}, {Name: "distance"}}},
		).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}

	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return []Hit{}, nil
	}
	raw, ok := getData[className].([]interface{})
	if !ok {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		payload, _ := m["payload"].(string)
		if !json.Valid([]byte(payload)) {
			continue
		}
		hit := Hit{Payload: json.RawMessage(payload)}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			hit.ID, _ = add["id"].(string)
			if d, ok := add["distance"].(float64); ok {
				hit.Score = float32(1 - d)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
