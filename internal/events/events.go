// Package events is the asynchronous channel between the transfer service
// and the fee consumer. Delivery is at-least-once: a consumer commits its
// group offset only after the whole batch was handled, so a crash replays
// the uncommitted tail.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrClosed = errors.New("events: publisher closed")

type Event struct {
	Offset    int64
	Topic     string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
}

func (e Event) Decode(v any) error { return json.Unmarshal(e.Payload, v) }

// Publisher is injected into producers. Close releases the underlying
// resources; Publish after Close returns ErrClosed.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

// Log is the consumer side of the channel.
type Log interface {
	// Fetch returns up to limit events of topic after the group's committed
	// offset, oldest first.
	Fetch(ctx context.Context, group, topic string, limit int) ([]Event, error)
	Commit(ctx context.Context, group, topic string, offset int64) error
}
