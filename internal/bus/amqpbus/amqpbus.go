// Package amqpbus implements the event bus over a RabbitMQ topic exchange.
// Channels map to routing keys; each subscription gets its own exclusive
// auto-delete queue bound to its channel.
package amqpbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/suPer8Hu/gopherchat/internal/bus"
)

const exchange = "chat.events"

type Bus struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func New(url string) (*Bus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Bus{conn: conn, ch: ch}, nil
}

func (b *Bus) Publish(ctx context.Context, channel, event string, payload any) error {
	now := time.Now()
	body, err := bus.Marshal(channel, event, payload, now.UnixMilli())
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return b.ch.PublishWithContext(cctx,
		exchange,
		channel, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    now,
		},
	)
}

func (b *Bus) Subscribe(ctx context.Context, channel string) (bus.Subscription, error) {
	// deliveries need their own amqp channel; the publish channel is not
	// safe for concurrent consume
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, err
	}

	queue := exchange + "." + uuid.NewString()
	if _, err := ch.QueueDeclare(
		queue,
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.QueueBind(queue, channel, exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(queue, "", false, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	sub := &subscription{ch: ch}
	go sub.read(deliveries)
	return sub, nil
}

func (b *Bus) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

type subscription struct {
	ch       *amqp.Channel
	handlers bus.Handlers
}

func (s *subscription) On(event string, h bus.Handler) {
	s.handlers.On(event, h)
}

func (s *subscription) Close() error {
	return s.ch.Close()
}

func (s *subscription) read(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		var ev bus.Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("[AmqpBus] bad event body err=%v", err)
			_ = d.Nack(false, false)
			continue
		}
		s.handlers.Dispatch(ev)
		_ = d.Ack(false)
	}
}
