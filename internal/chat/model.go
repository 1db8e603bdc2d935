package chat

import (
	"errors"
	"time"
)

// TimestampLayout is the wire format for message timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// UnknownName is returned by Registry.NameOf for sessions that are not live.
const UnknownName = "unknown"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSlowConsumer    = errors.New("send buffer full")
	ErrConnClosed      = errors.New("connection closed")
)

// ---------------------------------------------
// 🗄️ Log Models
// ---------------------------------------------

// ChatEvent is one immutable message in the log.
type ChatEvent struct {
	ID        string    `json:"message_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	// AIEnabled is the consent flag captured when the event was appended.
	AIEnabled bool `json:"ai_enabled"`
}

// Timestamp renders CreatedAt in the wire layout.
func (e ChatEvent) Timestamp() string {
	return e.CreatedAt.Format(TimestampLayout)
}

// ConsentToggle records one change of the global consent flag.
type ConsentToggle struct {
	Enabled bool      `json:"ai_enabled"`
	At      time.Time `json:"timestamp"`
}

// ---------------------------------------------
// ⚡ Session Models
// ---------------------------------------------

// Conn is the transport handle behind a session.
type Conn interface {
	Send(payload []byte) error
	Close()
}

// Session is one connected participant.
type Session struct {
	ID   string
	Name string
	Conn Conn
}

// ---------------------------------------------
// 📡 Outbound Events
// ---------------------------------------------

const (
	KindSystem    = "system"
	KindUserCount = "user_count"
	KindMessage   = "message"
)

type SystemEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewSystemEvent(message string) SystemEvent {
	return SystemEvent{Type: KindSystem, Message: message}
}

type UserCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func NewUserCountEvent(count int) UserCountEvent {
	return UserCountEvent{Type: KindUserCount, Count: count}
}

// MessageEvent is what peers receive for each chat message.
// Message carries the text as sent, which may differ from the stored body
// (audio links are stored as a placeholder).
type MessageEvent struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	MessageID string `json:"message_id"`
	AIEnabled bool   `json:"ai_enabled"`
}

func NewMessageEvent(ev ChatEvent, text string) MessageEvent {
	return MessageEvent{
		Type:      KindMessage,
		Sender:    ev.Sender,
		Message:   text,
		Timestamp: ev.Timestamp(),
		MessageID: ev.ID,
		AIEnabled: ev.AIEnabled,
	}
}
