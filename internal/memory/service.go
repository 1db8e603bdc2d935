package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"go-chat-memory/internal/chat"
	"go-chat-memory/internal/vectorstore"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// EventSource supplies the consent-eligible slice of the log.
type EventSource interface {
	ConsentFiltered() []chat.ChatEvent
}

// Service exposes the refresh and search entry points.
type Service struct {
	events      EventSource
	distiller   *Distiller
	store       *Store
	retriever   *Retriever
	collections Collections
	log         zerolog.Logger
}

func NewService(events EventSource, distiller *Distiller, store *Store, retriever *Retriever, collections Collections, log zerolog.Logger) *Service {
	return &Service{
		events:      events,
		distiller:   distiller,
		store:       store,
		retriever:   retriever,
		collections: collections,
		log:         log,
	}
}

// RefreshIndividual distills the consent-filtered log into the memory for
// the a/b conversation and returns the number of records upserted.
func (s *Service) RefreshIndividual(ctx context.Context, a, b Participant) (int, error) {
	a, b = trimParticipant(a), trimParticipant(b)
	if a.UserID == "" || a.Name == "" || b.UserID == "" || b.Name == "" {
		return 0, fmt.Errorf("%w: both participants need a user id and a name", ErrInvalidInput)
	}
	if a.UserID == b.UserID {
		return 0, fmt.Errorf("%w: participants must be different users", ErrInvalidInput)
	}

	events := s.events.ConsentFiltered()
	if len(events) == 0 {
		s.log.Info().Msg("no consented messages; skipping individual refresh")
		return 0, nil
	}

	rec, ok := s.distiller.Distill(ctx, events, Individual)
	if !ok {
		return 0, nil
	}
	lo, hi := orderByID(a, b)
	rec.ConversationID = IndividualConversationID(a.UserID, b.UserID)
	rec.Participants = []Participant{lo, hi}

	return s.store.Upsert(ctx, IndividualPointID(a, b), rec)
}

// RefreshGroup is RefreshIndividual for a group conversation.
func (s *Service) RefreshGroup(ctx context.Context, groupID, groupName string, participants []Participant) (int, error) {
	groupID, groupName = strings.TrimSpace(groupID), strings.TrimSpace(groupName)
	if groupID == "" || groupName == "" {
		return 0, fmt.Errorf("%w: group_id and group_name are required", ErrInvalidInput)
	}
	if len(participants) == 0 {
		return 0, fmt.Errorf("%w: a group needs at least one participant", ErrInvalidInput)
	}
	members := make([]Participant, 0, len(participants))
	for _, p := range participants {
		p = trimParticipant(p)
		if p.UserID == "" || p.Name == "" {
			return 0, fmt.Errorf("%w: every participant needs a user id and a name", ErrInvalidInput)
		}
		members = append(members, p)
	}

	events := s.events.ConsentFiltered()
	if len(events) == 0 {
		s.log.Info().Str("group_id", groupID).Msg("no consented messages; skipping group refresh")
		return 0, nil
	}

	rec, ok := s.distiller.Distill(ctx, events, Group)
	if !ok {
		return 0, nil
	}
	rec.ConversationID = GroupConversationID(groupID)
	rec.GroupID = groupID
	rec.GroupName = groupName
	rec.Participants = members

	return s.store.Upsert(ctx, GroupPointID(groupID, groupName), rec)
}

// SearchIndividual searches the individual memories userID takes part in.
func (s *Service) SearchIndividual(ctx context.Context, userID, query string, limit int) (SearchResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SearchResult{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.search(ctx, s.collections.Individual, vectorstore.Filter{ParticipantID: userID}, query, limit)
}

// SearchGroup searches the memories of one group.
func (s *Service) SearchGroup(ctx context.Context, groupID, query string, limit int) (SearchResult, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return SearchResult{}, fmt.Errorf("%w: group_id is required", ErrInvalidInput)
	}
	return s.search(ctx, s.collections.Group, vectorstore.Filter{GroupID: groupID}, query, limit)
}

func (s *Service) search(ctx context.Context, collection string, filter vectorstore.Filter, query string, limit int) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return SearchResult{}, err
	}

	if err := s.store.ensure(ctx); err != nil {
		return SearchResult{}, err
	}
	results, err := s.retriever.Search(ctx, collection, filter, query, limit)
	if err != nil {
		return SearchResult{}, err
	}
	answer, sources := s.retriever.SynthesizeAnswer(ctx, query, results)
	return SearchResult{Results: results, Answer: answer, Sources: sources}, nil
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultSearchLimit, nil
	case limit < 1 || limit > MaxSearchLimit:
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxSearchLimit)
	}
	return limit, nil
}

func trimParticipant(p Participant) Participant {
	return Participant{UserID: strings.TrimSpace(p.UserID), Name: strings.TrimSpace(p.Name)}
}
