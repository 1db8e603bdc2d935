// Package memory distills consent-eligible chat history into long-term
// memory records, stores them as vectors, and answers questions over them.
package memory

import (
	"errors"
)

var (
	// ErrInvalidInput marks a caller error (HTTP 400).
	ErrInvalidInput = errors.New("invalid input")
	// ErrVectorStoreUnavailable marks a vector-store or embedding failure
	// during upsert or search (HTTP 503). There is no fallback for it.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)

// ChatType is the kind of conversation a record summarizes.
type ChatType string

const (
	Individual ChatType = "individual"
	Group      ChatType = "group"
)

// MemoryTypeConversationSummary is the only memory type produced today.
const MemoryTypeConversationSummary = "conversation_summary"

type Participant struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Record is one distilled memory. It is recomputed on every refresh and
// replaces the previous record with the same point identity.
type Record struct {
	ConversationID string
	Type           ChatType
	Participants   []Participant
	GroupID        string
	GroupName      string
	MemoryType     string
	Text           string
	TimeRange      TimeRange
	Tags           []string
	Confidence     float64
}

// ParticipantIDs returns the ids in Participants order.
func (r Record) ParticipantIDs() []string {
	ids := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Payload is the document stored alongside each vector.
type Payload struct {
	ChatID         string        `json:"chat_id"`
	ChatType       ChatType      `json:"chat_type"`
	GroupID        string        `json:"group_id,omitempty"`
	GroupName      string        `json:"group_name,omitempty"`
	SenderUserID   string        `json:"sender_user_id,omitempty"`
	SenderName     string        `json:"sender_name,omitempty"`
	ReceiverUserID string        `json:"receiver_user_id,omitempty"`
	ReceiverName   string        `json:"receiver_name,omitempty"`
	ParticipantIDs []string      `json:"participant_ids"`
	Participants   []Participant `json:"participants"`
	MemoryType     string        `json:"memory_type"`
	SummaryText    string        `json:"summary_text"`
	TimeRange      TimeRange     `json:"time_range"`
	Tags           []string      `json:"tags"`
	Confidence     float64       `json:"confidence"`
}

// NewPayload flattens r into its stored form.
func NewPayload(r Record) Payload {
	p := Payload{
		ChatID:         r.ConversationID,
		ChatType:       r.Type,
		GroupID:        r.GroupID,
		GroupName:      r.GroupName,
		ParticipantIDs: r.ParticipantIDs(),
		Participants:   r.Participants,
		MemoryType:     r.MemoryType,
		SummaryText:    r.Text,
		TimeRange:      r.TimeRange,
		Tags:           r.Tags,
		Confidence:     r.Confidence,
	}
	if r.Type == Individual && len(r.Participants) == 2 {
		p.SenderUserID, p.SenderName = r.Participants[0].UserID, r.Participants[0].Name
		p.ReceiverUserID, p.ReceiverName = r.Participants[1].UserID, r.Participants[1].Name
	}
	return p
}

// SearchResult is what the search entry points return.
type SearchResult struct {
	Results []Payload `json:"results"`
	Answer  string    `json:"answer"`
	Sources []string  `json:"sources"`
}
