// Package service publishes listing workflow events to RabbitMQ.  Errors are
// logged and returned so callers can ignore them without interrupting the
// request that triggered the event.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/reshamsu/dlink-colombo/internal/model"
	q "github.com/reshamsu/dlink-colombo/internal/queue"
)

// Publisher dials the broker for every message.  Listing writes are rare
// enough that a long-lived channel is not worth its reconnect handling.
type Publisher struct {
	URL string
	Log *slog.Logger
	Now func() time.Time
}

func NewPublisher(url string, log *slog.Logger) *Publisher {
	return &Publisher{URL: url, Log: log, Now: time.Now}
}

// ListingSaved publishes to listing.created or listing.updated.
func (p *Publisher) ListingSaved(ctx context.Context, l model.Listing, created bool) error {
	ev := ListingEvent(l, created, p.Now())
	queue := q.ListingUpdatedQueue
	if created {
		queue = q.ListingCreatedQueue
	}
	return p.publish(ctx, queue, ev)
}

// UploadsOrphaned asks the orphan consumer to delete keys.
func (p *Publisher) UploadsOrphaned(ctx context.Context, keys []string, reason string) error {
	return p.publish(ctx, q.UploadsOrphanedQueue, q.UploadsOrphanedEvent{
		Keys:     keys,
		Reason:   reason,
		FailedAt: p.Now().UTC(),
	})
}

// ListingEvent builds the event payload for l.
func ListingEvent(l model.Listing, created bool, at time.Time) q.ListingSavedEvent {
	action := "updated"
	if created {
		action = "created"
	}
	price := ""
	if l.Price != nil {
		price = *l.Price
	}
	return q.ListingSavedEvent{
		ListingID:    l.ID,
		Action:       action,
		Title:        l.PropertyTitle,
		PropertyType: l.PropertyType,
		ListingType:  l.ListingType,
		City:         l.City,
		Status:       l.Status,
		Price:        price,
		ImageCount:   len(l.ImageURLs),
		SavedAt:      at.UTC(),
	}
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("queue", queue)

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Warn("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// idempotent; durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Warn("rabbitmq: queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Warn("rabbitmq: publish failed", "error", err)
		return err
	}
	return nil
}
