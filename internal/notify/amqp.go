package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// BusFanout publishes patient-connected events to a message bus instead of
// the HTTP fan-out. Each channel name maps to a fanout exchange, so every
// operator dashboard bound to that exchange receives the event.
// It implements Notifier.
type BusFanout struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewBusFanout connects to the bus at amqpURL.
func NewBusFanout(amqpURL string) (*BusFanout, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return &BusFanout{conn: conn, channel: ch}, nil
}

// NotifyPatientConnected implements Notifier.NotifyPatientConnected.
// The context is accepted for interface symmetry; the amqp client does not
// support per-publish cancellation.
func (f *BusFanout) NotifyPatientConnected(_ context.Context, channel string, ev PatientConnected) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode channel event: %w", err)
	}

	if err := f.channel.ExchangeDeclare(
		channel,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %q: %w", channel, err)
	}

	if err := f.channel.Publish(
		channel,
		"", // routing key ignored by fanout exchanges
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Type:        patientConnectedEvent,
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish to %q: %w", channel, err)
	}
	return nil
}

// Close closes the bus connection and channel.
func (f *BusFanout) Close() {
	if f.channel != nil {
		f.channel.Close()
	}
	if f.conn != nil {
		f.conn.Close()
	}
}
