package chat

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"go-chat-memory/internal/metrics"
)

// Broadcaster fans events out to the sessions in a Registry.
type Broadcaster struct {
	registry *Registry
	log      zerolog.Logger
	// onEvict receives the sessions an asynchronous eviction removed.
	onEvict func(removed []Session)
}

func NewBroadcaster(registry *Registry, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// Announce delivers event to every live session except exclude (may be "").
// Recipients whose send fails are evicted once the pass is over, on their
// own goroutine, so one broken peer never stalls the others.
func (b *Broadcaster) Announce(event any, exclude string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var failed []Session
	for _, s := range b.registry.Snapshot() {
		if s.ID == exclude {
			continue
		}
		if err := s.Conn.Send(payload); err != nil {
			metrics.DeliveryFailures.Inc()
			b.log.Warn().Err(err).Str("session_id", s.ID).Str("username", s.Name).Msg("delivery failed; evicting")
			failed = append(failed, s)
		}
	}

	if len(failed) > 0 {
		go b.evict(failed)
	}
	return nil
}

// Unicast delivers event to one session. Failures go back to the caller.
func (b *Broadcaster) Unicast(event any, id string) error {
	s, ok := b.registry.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.Conn.Send(payload)
}

// evict drops the failed sessions. Sessions another path already removed
// are skipped, so each departure is reported once.
func (b *Broadcaster) evict(failed []Session) {
	removed := make([]Session, 0, len(failed))
	for _, s := range failed {
		if gone := b.registry.Disconnect(s.ID); gone != nil {
			gone.Conn.Close()
			metrics.SessionsEvicted.Inc()
			removed = append(removed, *gone)
		}
	}
	if len(removed) > 0 && b.onEvict != nil {
		b.onEvict(removed)
	}
}
