package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/baharkarakas/bankmore/internal/metrics"
)

// Bus is an in-process Publisher and Log with the same offset semantics
// as the Postgres log.
type Bus struct {
	mu      sync.Mutex
	events  []Event
	offsets map[string]int64
	closed  bool
}

func NewBus() *Bus { return &Bus{offsets: map[string]int64{}} }

func (b *Bus) Publish(_ context.Context, topic, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", topic, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.events = append(b.events, Event{
		Offset:    int64(len(b.events) + 1),
		Topic:     topic,
		Key:       key,
		Payload:   raw,
		CreatedAt: time.Now(),
	})
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func offsetKey(group, topic string) string { return group + "/" + topic }

func (b *Bus) Fetch(_ context.Context, group, topic string, limit int) ([]Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	after := b.offsets[offsetKey(group, topic)]
	var out []Event
	for _, e := range b.events {
		if e.Offset <= after || e.Topic != topic {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (b *Bus) Commit(_ context.Context, group, topic string, offset int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if k := offsetKey(group, topic); offset > b.offsets[k] {
		b.offsets[k] = offset
	}
	return nil
}

// Rewind moves a group back to offset, so everything after it is delivered
// again. Used to exercise redelivery.
func (b *Bus) Rewind(group, topic string, offset int64) {
	b.mu.Lock()
	b.offsets[offsetKey(group, topic)] = offset
	b.mu.Unlock()
}

// Events returns a copy of everything published on topic.
func (b *Bus) Events(topic string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
