package chat

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-chat-memory/internal/metrics"
)

// MessageLog is the append-only, in-memory chat log with per-user read
// cursors and the global AI consent flag.
//
// A cursor is the number of events the user has marked read; it only moves
// forward and never exceeds the log length. The consent flag is stamped on
// each event at append time and is never applied retroactively.
type MessageLog struct {
	mu      sync.RWMutex
	events  []ChatEvent
	index   map[string]int
	cursors map[string]int
	enabled bool
	toggles []ConsentToggle
	now     func() time.Time
	newID   func() string
}

func NewMessageLog(aiEnabled bool) *MessageLog {
	return &MessageLog{
		index:   make(map[string]int),
		cursors: make(map[string]int),
		enabled: aiEnabled,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Append stores a new event. consentOverride, when non-nil, replaces the
// current global flag for this event only.
func (l *MessageLog) Append(sender, body string, at time.Time, consentOverride *bool) ChatEvent {
	l.mu.Lock()
	aiEnabled := l.enabled
	if consentOverride != nil {
		aiEnabled = *consentOverride
	}
	ev := ChatEvent{
		ID:        l.newID(),
		Sender:    sender,
		Body:      body,
		CreatedAt: at,
		AIEnabled: aiEnabled,
	}
	l.index[ev.ID] = len(l.events)
	l.events = append(l.events, ev)
	l.mu.Unlock()

	metrics.MessagesAppended.WithLabelValues(strconv.FormatBool(aiEnabled)).Inc()
	return ev
}

// SetConsent flips the global flag and records the toggle.
func (l *MessageLog) SetConsent(enabled bool) ConsentToggle {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := ConsentToggle{Enabled: enabled, At: l.now()}
	l.enabled = enabled
	l.toggles = append(l.toggles, t)
	return t
}

func (l *MessageLog) Consent() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

func (l *MessageLog) ConsentHistory() []ConsentToggle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ConsentToggle, len(l.toggles))
	copy(out, l.toggles)
	return out
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// All returns every event for display.
func (l *MessageLog) All() []ChatEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyFrom(0)
}

// AllForSummary returns every event regardless of consent. Only the chat
// summary feature may use it: that feature is defined over the full log.
// Every other AI feature must use ConsentFiltered.
func (l *MessageLog) AllForSummary() []ChatEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyFrom(0)
}

// ConsentFiltered returns the events stamped with consent, in log order.
func (l *MessageLog) ConsentFiltered() []ChatEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ChatEvent, 0, len(l.events))
	for _, ev := range l.events {
		if ev.AIEnabled {
			out = append(out, ev)
		}
	}
	return out
}

// Lookup finds an event by id.
func (l *MessageLog) Lookup(id string) (ChatEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return ChatEvent{}, false
	}
	return l.events[i], true
}

// Unread returns the events after user's cursor. Unknown users start at 0.
func (l *MessageLog) Unread(user string) []ChatEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyFrom(l.cursors[user])
}

// UnreadSnapshot returns the events after user's cursor together with the
// log length they were read at. Pass that length to MarkReadUpTo so events
// appended in between stay unread.
func (l *MessageLog) UnreadSnapshot(user string) ([]ChatEvent, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyFrom(l.cursors[user]), len(l.events)
}

func (l *MessageLog) UnreadCount(user string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events) - l.cursors[user]
}

// MarkRead moves user's cursor to the end of the log.
func (l *MessageLog) MarkRead(user string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cursors[user] = len(l.events)
}

// MarkReadUpTo moves user's cursor to n, clamped to the log length.
// The cursor never moves backwards.
func (l *MessageLog) MarkReadUpTo(user string, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n = min(n, len(l.events))
	if n > l.cursors[user] {
		l.cursors[user] = n
	}
}

// copyFrom must be called with the lock held.
func (l *MessageLog) copyFrom(start int) []ChatEvent {
	if start > len(l.events) {
		start = len(l.events)
	}
	out := make([]ChatEvent, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}
