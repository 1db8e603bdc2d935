package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AudioPrefix marks a message that links an uploaded audio clip.
// Peers get the full text; the log only keeps AudioPlaceholder.
const (
	AudioPrefix      = "[AUDIO]: "
	AudioPlaceholder = "[AUDIO]"
)

const sinkTimeout = 5 * time.Second

// Archiver persists log writes outside the process. Failures never block chat.
type Archiver interface {
	SaveEvent(ctx context.Context, ev ChatEvent) error
	SaveConsentToggle(ctx context.Context, t ConsentToggle) error
}

// Mirror republishes appended events and consent changes to other listeners.
type Mirror interface {
	Publish(ctx context.Context, ev ChatEvent) error
	PublishConsent(ctx context.Context, t ConsentToggle) error
}

// Hub ties the registry, the log and the broadcaster into the session flow:
// join, receive, leave.
type Hub struct {
	Registry    *Registry
	Log         *MessageLog
	Broadcaster *Broadcaster

	archive Archiver
	mirror  Mirror
	logger  zerolog.Logger
	now     func() time.Time
}

type HubOption func(*Hub)

func WithArchiver(a Archiver) HubOption { return func(h *Hub) { h.archive = a } }

func WithMirror(m Mirror) HubOption { return func(h *Hub) { h.mirror = m } }

func NewHub(log *MessageLog, logger zerolog.Logger, opts ...HubOption) *Hub {
	registry := NewRegistry()
	h := &Hub{
		Registry:    registry,
		Log:         log,
		Broadcaster: NewBroadcaster(registry, logger),
		logger:      logger,
		now:         time.Now,
	}
	h.Broadcaster.onEvict = h.evicted
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Join registers conn under name and runs the greeting sequence.
func (h *Hub) Join(conn Conn, name string) string {
	id := h.Registry.Connect(conn, name)
	h.logger.Info().Str("session_id", id).Str("username", name).Int("online", h.Registry.Count()).Msg("user connected")

	h.announce(NewSystemEvent(name+" joined the chat"), id)

	// The joiner may already be gone; that is tolerated.
	if err := h.Broadcaster.Unicast(NewSystemEvent("Welcome to the chat, "+name+"!"), id); err != nil {
		h.logger.Debug().Err(err).Str("session_id", id).Msg("welcome not delivered")
	}
	if err := h.Broadcaster.Unicast(NewUserCountEvent(h.Registry.Count()), id); err != nil {
		h.logger.Debug().Err(err).Str("session_id", id).Msg("user count not delivered")
	}

	h.announce(NewUserCountEvent(h.Registry.Count()), "")
	return id
}

// Receive handles one inbound frame from session id.
func (h *Hub) Receive(id string, raw []byte) {
	text := parseInbound(raw)
	if strings.TrimSpace(text) == "" {
		return
	}

	stored := text
	if strings.HasPrefix(text, AudioPrefix) {
		stored = AudioPlaceholder
	}

	sender := h.Registry.NameOf(id)
	ev := h.Log.Append(sender, stored, h.now(), nil)
	h.logger.Debug().Str("session_id", id).Str("sender", sender).Str("message_id", ev.ID).Bool("ai_enabled", ev.AIEnabled).Msg("message appended")

	h.announce(NewMessageEvent(ev, text), id)
	h.sinkEvent(ev)
}

// Leave removes session id and tells the others. Repeated calls are no-ops,
// as is a Leave for a session the broadcaster already evicted.
func (h *Hub) Leave(id string) {
	s := h.Registry.Disconnect(id)
	if s == nil {
		return
	}
	h.departed(*s, "user disconnected")
}

// evicted announces sessions dropped after a failed delivery.
func (h *Hub) evicted(removed []Session) {
	for _, s := range removed {
		h.departed(s, "user evicted")
	}
}

func (h *Hub) departed(s Session, msg string) {
	h.logger.Info().Str("session_id", s.ID).Str("username", s.Name).Int("online", h.Registry.Count()).Msg(msg)

	h.announce(NewSystemEvent(s.Name+" left the chat"), "")
	h.announce(NewUserCountEvent(h.Registry.Count()), "")
}

// SetConsent toggles the global consent flag for subsequent messages.
func (h *Hub) SetConsent(enabled bool) ConsentToggle {
	t := h.Log.SetConsent(enabled)
	h.logger.Info().Bool("ai_enabled", enabled).Msg("consent toggled")

	if h.archive == nil && h.mirror == nil {
		return t
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if h.archive != nil {
			if err := h.archive.SaveConsentToggle(ctx, t); err != nil {
				h.logger.Warn().Err(err).Msg("archive consent toggle failed")
			}
		}
		if h.mirror != nil {
			if err := h.mirror.PublishConsent(ctx, t); err != nil {
				h.logger.Warn().Err(err).Msg("mirror consent toggle failed")
			}
		}
	}()
	return t
}

func (h *Hub) announce(event any, exclude string) {
	if err := h.Broadcaster.Announce(event, exclude); err != nil {
		h.logger.Error().Err(err).Msg("broadcast failed")
	}
}

func (h *Hub) sinkEvent(ev ChatEvent) {
	if h.archive == nil && h.mirror == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if h.archive != nil {
			if err := h.archive.SaveEvent(ctx, ev); err != nil {
				h.logger.Warn().Err(err).Str("message_id", ev.ID).Msg("archive event failed")
			}
		}
		if h.mirror != nil {
			if err := h.mirror.Publish(ctx, ev); err != nil {
				h.logger.Warn().Err(err).Str("message_id", ev.ID).Msg("mirror publish failed")
			}
		}
	}()
}

// parseInbound accepts {"message": "..."} or plain text.
func parseInbound(raw []byte) string {
	var in map[string]any
	if err := json.Unmarshal(raw, &in); err == nil {
		if msg, ok := in["message"].(string); ok {
			return msg
		}
	}
	return string(raw)
}
