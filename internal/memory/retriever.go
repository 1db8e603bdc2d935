package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"go-chat-memory/internal/embeddings"
	"go-chat-memory/internal/llm"
	"go-chat-memory/internal/metrics"
	"go-chat-memory/internal/vectorstore"
)

const (
	NoMemoryAnswer        = "I couldn't find any relevant memories for that question."
	SynthesisFailedAnswer = "I found related memories but couldn't generate an answer right now. See the sources for what was retrieved."
)

// Retriever runs filtered similarity search and answers from the hits.
type Retriever struct {
	vectors       vectorstore.Store
	embedder      embeddings.Provider
	llm           llm.Completer
	vectorTimeout time.Duration
	embedTimeout  time.Duration
	log           zerolog.Logger
}

func NewRetriever(vectors vectorstore.Store, embedder embeddings.Provider, completer llm.Completer, vectorTimeout, embedTimeout time.Duration, log zerolog.Logger) *Retriever {
	return &Retriever{
		vectors:       vectors,
		embedder:      embedder,
		llm:           completer,
		vectorTimeout: vectorTimeout,
		embedTimeout:  embedTimeout,
		log:           log,
	}
}

// Search returns up to limit payloads, most similar first.
func (r *Retriever) Search(ctx context.Context, collection string, filter vectorstore.Filter, query string, limit int) ([]Payload, error) {
	ectx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	vec, err := r.embedder.Embed(ectx, query)
	cancel()
	switch {
	case errors.Is(err, embeddings.ErrEmptyText):
		return nil, fmt.Errorf("%w: query has no searchable text", ErrInvalidInput)
	case err != nil:
		return nil, fmt.Errorf("%w: embed query: %v", ErrVectorStoreUnavailable, err)
	}

	vctx, cancel := context.WithTimeout(ctx, r.vectorTimeout)
	defer cancel()
	hits, err := r.vectors.Search(vctx, collection, filter, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", ErrVectorStoreUnavailable, collection, err)
	}

	out := make([]Payload, 0, len(hits))
	for _, h := range hits {
		var p Payload
		if err := json.Unmarshal(h.Payload, &p); err != nil {
			r.log.Warn().Err(err).Str("point_id", h.ID).Msg("skipping unreadable payload")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// SynthesizeAnswer answers query from results only. It never fails: an
// empty result set or an LLM failure yields a fixed answer.
func (r *Retriever) SynthesizeAnswer(ctx context.Context, query string, results []Payload) (string, []string) {
	if len(results) == 0 {
		return NoMemoryAnswer, []string{}
	}

	sources := make([]string, len(results))
	var blocks strings.Builder
	for i, p := range results {
		sources[i] = SourceLabel(i+1, p)
		fmt.Fprintf(&blocks, "%s\n%s\n\n", sources[i], p.SummaryText)
	}

	answer, err := r.llm.Complete(ctx, answerPrompt(query, strings.TrimSpace(blocks.String())))
	answer = strings.TrimSpace(answer)
	if err != nil || answer == "" {
		metrics.Fallbacks.WithLabelValues("memory_synthesis").Inc()
		r.log.Warn().Err(err).Int("sources", len(sources)).Msg("memory answer synthesis failed")
		return SynthesisFailedAnswer, sources
	}
	return answer, sources
}

// SourceLabel renders "Source N: <names> (<from> to <to>)".
func SourceLabel(n int, p Payload) string {
	names := make([]string, 0, len(p.Participants))
	for _, part := range p.Participants {
		names = append(names, part.Name)
	}
	who := strings.Join(names, ", ")
	if p.ChatType == Group && p.GroupName != "" {
		who = p.GroupName + ": " + who
	}
	return fmt.Sprintf("Source %d: %s (%s to %s)", n, who, p.TimeRange.From, p.TimeRange.To)
}

func answerPrompt(query, memories string) string {
	return fmt.Sprintf(`Answer the question using ONLY the memories below. If they do not contain the answer, say so.
Cite the source labels you used, e.g. (Source 1).

Memories:
%s

Question: %s

Answer:`, memories, query)
}
