// Package bus is the publish/subscribe abstraction behind realtime delivery.
// Channels carry named events; delivery is at-most-once and ordered only as
// far as the backing transport orders it.
package bus

import (
	"context"
	"encoding/json"
	"sync"
)

// Event is the wire form shared by every bus variant.
type Event struct {
	Channel   string          `json:"channel"`
	Name      string          `json:"event"`
	Payload   json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type Handler func(Event)

type Bus interface {
	Publish(ctx context.Context, channel, event string, payload any) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription delivers events for one channel. Handlers registered with On
// run on the subscription's delivery goroutine; Close stops delivery and
// releases background work.
type Subscription interface {
	On(event string, h Handler)
	Close() error
}

// Handlers is the per-subscription event-name -> callback registry shared by
// the bus variants.
type Handlers struct {
	mu sync.RWMutex
	m  map[string]Handler
}

func (h *Handlers) On(event string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[string]Handler)
	}
	h.m[event] = fn
}

// Dispatch invokes the handler registered for the event's name, falling back
// to the "*" wildcard handler if one is set.
func (h *Handlers) Dispatch(ev Event) {
	h.mu.RLock()
	fn := h.m[ev.Name]
	if fn == nil {
		fn = h.m["*"]
	}
	h.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// Marshal builds the event body for a publish call.
func Marshal(channel, event string, payload any, timestamp int64) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{
		Channel:   channel,
		Name:      event,
		Payload:   data,
		Timestamp: timestamp,
	})
}
