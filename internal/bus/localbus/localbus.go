// Package localbus is the local-development substitute for the hosted pub/sub
// service. Publish writes a timestamped event record into the shared store
// keyspace; a fixed-interval poller scans for records newer than the last-seen
// watermark, dispatches them to channel subscribers, and deletes what it
// consumed. Delivery is best-effort, at-most-once, with latency bounded below
// by the poll interval.
package localbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suPer8Hu/gopherchat/internal/bus"
	"github.com/suPer8Hu/gopherchat/internal/store"
)

const (
	eventKeyPrefix  = "event:"
	DefaultInterval = time.Second
)

type Bus struct {
	store    store.Store
	interval time.Duration

	mu        sync.Mutex
	subs      map[string]map[string]*subscription // channel -> sub id -> sub
	watermark int64
	stop      context.CancelFunc
	polling   bool
}

func New(s store.Store, interval time.Duration) *Bus {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Bus{
		store:    s,
		interval: interval,
		subs:     make(map[string]map[string]*subscription),
		// records older than bus startup are never dispatched
		watermark: time.Now().UnixMilli(),
	}
}

func (b *Bus) Publish(ctx context.Context, channel, event string, payload any) error {
	now := time.Now().UnixMilli()
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return err
	}
	key := eventKeyPrefix + channel + ":" + strconv.FormatInt(now, 10) + ":" + hex.EncodeToString(suffix)

	return b.store.HSet(ctx, key, map[string]string{
		"channel":   channel,
		"event":     event,
		"data":      string(data),
		"timestamp": strconv.FormatInt(now, 10),
	})
}

func (b *Bus) Subscribe(ctx context.Context, channel string) (bus.Subscription, error) {
	sub := &subscription{bus: b, channel: channel, id: uuid.NewString()}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[string]*subscription)
	}
	b.subs[channel][sub.id] = sub

	// first subscriber starts the poll loop
	if !b.polling {
		pollCtx, cancel := context.WithCancel(context.Background())
		b.stop = cancel
		b.polling = true
		go b.poll(pollCtx)
	}
	b.mu.Unlock()

	return sub, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
	b.polling = false
	b.subs = make(map[string]map[string]*subscription)
	return nil
}

func (b *Bus) poll(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// drain scans the shared record space once, dispatching and deleting every
// record newer than the watermark.
func (b *Bus) drain(ctx context.Context) {
	cursor := "0"
	maxSeen := int64(0)
	var consumed []string

	for {
		next, keys, err := b.store.Scan(ctx, cursor, eventKeyPrefix+"*", 100)
		if err != nil {
			log.Printf("[LocalBus] scan failed err=%v", err)
			return
		}
		for _, key := range keys {
			fields, err := b.store.HGetAll(ctx, key)
			if err != nil {
				log.Printf("[LocalBus] read failed key=%s err=%v", key, err)
				continue
			}
			if len(fields) == 0 {
				continue
			}
			ts, err := strconv.ParseInt(fields["timestamp"], 10, 64)
			if err != nil {
				continue
			}
			if ts <= b.currentWatermark() {
				continue
			}

			ev := bus.Event{
				Channel:   fields["channel"],
				Name:      fields["event"],
				Payload:   json.RawMessage(fields["data"]),
				Timestamp: ts,
			}
			b.dispatch(ev)

			if ts > maxSeen {
				maxSeen = ts
			}
			consumed = append(consumed, key)
		}
		cursor = next
		if cursor == "0" {
			break
		}
	}

	if maxSeen > 0 {
		b.advanceWatermark(maxSeen)
	}
	if len(consumed) > 0 {
		if err := b.store.Del(ctx, consumed...); err != nil {
			log.Printf("[LocalBus] delete failed err=%v", err)
		}
	}
}

func (b *Bus) dispatch(ev bus.Event) {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs[ev.Channel]))
	for _, s := range b.subs[ev.Channel] {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.handlers.Dispatch(ev)
	}
}

func (b *Bus) currentWatermark() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.watermark
}

func (b *Bus) advanceWatermark(ts int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ts > b.watermark {
		b.watermark = ts
	}
}

type subscription struct {
	bus      *Bus
	channel  string
	id       string
	handlers bus.Handlers
}

func (s *subscription) On(event string, h bus.Handler) {
	s.handlers.On(event, h)
}

func (s *subscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if subs, ok := s.bus.subs[s.channel]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.bus.subs, s.channel)
		}
	}
	return nil
}
