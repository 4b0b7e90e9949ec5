package localbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/suPer8Hu/gopherchat/internal/bus"
	"github.com/suPer8Hu/gopherchat/internal/store/memstore"
)

type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recorder) handle(ev bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) first() bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[0]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestPublishDeliveredWithinPollInterval(t *testing.T) {
	s := memstore.New()
	b := New(s, 20*time.Millisecond)
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "conversation:local_a:local_b")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	rec := &recorder{}
	sub.On("message:new", rec.handle)

	// publishes at or before the startup watermark millisecond are skipped
	time.Sleep(2 * time.Millisecond)

	if err := b.Publish(ctx, "conversation:local_a:local_b", "message:new", map[string]string{"content": "hi"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return rec.count() == 1 })

	ev := rec.first()
	if ev.Name != "message:new" {
		t.Fatalf("unexpected event name %q", ev.Name)
	}
	var payload map[string]string
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["content"] != "hi" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestConsumedEventsAreNotRedispatched(t *testing.T) {
	s := memstore.New()
	b := New(s, 20*time.Millisecond)
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "ch")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	rec := &recorder{}
	sub.On("ping", rec.handle)

	time.Sleep(2 * time.Millisecond)

	if err := b.Publish(ctx, "ch", "ping", 1); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// second publish lands before the first is consumed
	if err := b.Publish(ctx, "ch", "ping", 2); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 2 })

	// several more polls must not re-deliver consumed records
	time.Sleep(100 * time.Millisecond)
	if got := rec.count(); got != 2 {
		t.Fatalf("expected exactly 2 deliveries, got %d", got)
	}

	// consumed records are deleted from the shared keyspace
	_, keys, err := s.Scan(ctx, "0", "event:*", 100)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("consumed event records left behind: %v", keys)
	}
}

func TestEventsForOtherChannelsNotDelivered(t *testing.T) {
	s := memstore.New()
	b := New(s, 20*time.Millisecond)
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "mine")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	rec := &recorder{}
	sub.On("ping", rec.handle)

	time.Sleep(2 * time.Millisecond)

	if err := b.Publish(ctx, "theirs", "ping", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := b.Publish(ctx, "mine", "ping", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return rec.count() == 1 })

	if ev := rec.first(); ev.Channel != "mine" {
		t.Fatalf("delivered event from wrong channel %q", ev.Channel)
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	s := memstore.New()
	b := New(s, 20*time.Millisecond)
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "ch")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	rec := &recorder{}
	sub.On("ping", rec.handle)

	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	time.Sleep(2 * time.Millisecond)
	if err := b.Publish(ctx, "ch", "ping", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("closed subscription still received %d events", rec.count())
	}
}
