package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"newschain/internal/logging"
	"newschain/internal/news"
)

const NewsCreatedEvent = "news.created"

type NewsCreatedMessage struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	News      news.News `json:"news"`
}

type PublishingChannel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

type RabbitPublisher struct {
	conn       *amqp.Connection
	ch         PublishingChannel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewRabbitPublisher dials the broker and declares exchange as a durable
// topic exchange. Close releases both the channel and the connection.
func NewRabbitPublisher(uri, exchange, routingKey string, logger *zap.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connection failed: %w", err)
	}

	ch, err := openTopicChannel(conn, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	p := &RabbitPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logging.OrNop(logger),
	}
	p.logger.Info("rabbitmq publisher ready",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
	)
	return p, nil
}

func openTopicChannel(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel creation failed: %w", err)
	}

	// durable, not auto-deleted, not internal, wait for the server
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("exchange declare %q failed: %w", exchange, err)
	}
	return ch, nil
}

func (p *RabbitPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishNewsCreated sends n as a persistent JSON message. The message id is
// the document id so consumers can drop redeliveries.
func (p *RabbitPublisher) PublishNewsCreated(ctx context.Context, n *news.News) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newsCreatedMessage(n, time.Now().UTC())
	if err != nil {
		return err
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return err
	}

	p.logger.Debug("published news event",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", p.routingKey),
		zap.String("id", n.ID.Hex()),
	)
	return nil
}

func newsCreatedMessage(n *news.News, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(NewsCreatedMessage{
		Event:     NewsCreatedEvent,
		Timestamp: at,
		News:      *n,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s message: %w", NewsCreatedEvent, err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         NewsCreatedEvent,
		MessageId:    n.ID.Hex(),
		Timestamp:    at,
		AppId:        "news-api",
		Body:         body,
	}, nil
}
