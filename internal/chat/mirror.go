package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMirror publishes every appended event to a Redis channel so other
// processes can follow the room. Nothing is read back.
type RedisMirror struct {
	client  *redis.Client
	channel string
}

func NewRedisMirror(client *redis.Client, channel string) *RedisMirror {
	return &RedisMirror{client: client, channel: channel}
}

type mirrorEnvelope struct {
	Type    string         `json:"type"`
	Event   *ChatEvent     `json:"event,omitempty"`
	Consent *ConsentToggle `json:"consent,omitempty"`
}

func (m *RedisMirror) Publish(ctx context.Context, ev ChatEvent) error {
	return m.publish(ctx, mirrorEnvelope{Type: KindMessage, Event: &ev})
}

func (m *RedisMirror) PublishConsent(ctx context.Context, t ConsentToggle) error {
	return m.publish(ctx, mirrorEnvelope{Type: "consent", Consent: &t})
}

func (m *RedisMirror) publish(ctx context.Context, env mirrorEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal mirror envelope: %w", err)
	}
	if err := m.client.Publish(ctx, m.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.channel, err)
	}
	return nil
}
