package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"devconnect/internal/event"
)

// CleanupPublisher enqueues account-cleanup events consumed by the
// cleanup worker after a user deletes their account.
type CleanupPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewCleanupPublisher(conn *amqp.Connection, queueName string) *CleanupPublisher {
	return &CleanupPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *CleanupPublisher) Publish(ctx context.Context, ev event.AccountDeleted) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal cleanup event failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish cleanup event failed: %w", err)
	}
	return nil
}
