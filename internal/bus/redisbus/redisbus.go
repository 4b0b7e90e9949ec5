// Package redisbus implements the event bus over Redis Pub/Sub. Delivery is
// at-most-once per connected subscriber and ordered per channel by the server.
package redisbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/gopherchat/internal/bus"
)

type Bus struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Bus {
	return &Bus{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewFromClient wraps an existing client (shared with the redis store).
func NewFromClient(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

func (b *Bus) Publish(ctx context.Context, channel, event string, payload any) error {
	body, err := bus.Marshal(channel, event, payload, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, body).Err()
}

func (b *Bus) Subscribe(ctx context.Context, channel string) (bus.Subscription, error) {
	ps := b.rdb.Subscribe(ctx, channel)
	// force the SUBSCRIBE round trip so a bad connection fails here
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &subscription{ps: ps}
	go sub.read()
	return sub, nil
}

func (b *Bus) Close() error { return b.rdb.Close() }

type subscription struct {
	ps       *redis.PubSub
	handlers bus.Handlers
}

func (s *subscription) On(event string, h bus.Handler) {
	s.handlers.On(event, h)
}

func (s *subscription) Close() error {
	return s.ps.Close()
}

func (s *subscription) read() {
	for msg := range s.ps.Channel() {
		var ev bus.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("[RedisBus] bad event payload channel=%s err=%v", msg.Channel, err)
			continue
		}
		s.handlers.Dispatch(ev)
	}
}
