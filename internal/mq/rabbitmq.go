package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coursehub/apiserver/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient publishes events to a topic exchange, routed by
// "<resource>.<action>", and waits for publisher confirms.
type RabbitMQClient struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	durable  bool
	prefetch int
}

// NewRabbitMQClient connects, declares the exchange and puts the publishing
// channel in confirm mode.
func NewRabbitMQClient(cfg config.RabbitMQConfig, exchange string) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	setup := func() error {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, cfg.Durable, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
		if err := ch.Confirm(false); err != nil {
			return fmt.Errorf("enable confirms: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		durable:  cfg.Durable,
		prefetch: cfg.PrefetchCount,
	}, nil
}

// Publish sends env to the exchange and returns once the broker confirms it.
func (r *RabbitMQClient) Publish(ctx context.Context, env Envelope) (string, error) {
	messageID := uuid.NewString()
	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, r.exchange, env.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: r.deliveryMode(),
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Type:         env.RoutingKey,
		Headers:      attributesToHeaders(env.Attributes),
		Body:         env.Body,
	})
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", env.RoutingKey, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("confirm %s: %w", env.RoutingKey, err)
	}
	if !acked {
		return "", fmt.Errorf("broker rejected %s", env.RoutingKey)
	}
	return messageID, nil
}

// Subscribe binds a private queue to the exchange and consumes from it on
// its own channel. The queue goes away with the consumer.
func (r *RabbitMQClient) Subscribe(ctx context.Context, resource string, handler Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if r.prefetch > 0 {
		if err := ch.Qos(r.prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	key := bindingKey(resource)
	if err := ch.QueueBind(queue.Name, key, r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", key, r.exchange, err)
	}

	deliveries, err := ch.Consume(queue.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			d := Delivery{
				ID:         delivery.MessageId,
				Body:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, d); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the publishing channel and the connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// deliveryMode persists messages published to a durable exchange.
func (r *RabbitMQClient) deliveryMode() uint8 {
	if r.durable {
		return amqp.Persistent
	}
	return amqp.Transient
}

// bindingKey matches every action on resource, or every event.
func bindingKey(resource string) string {
	if resource == "" {
		return "#"
	}
	return resource + ".*"
}

func attributesToHeaders(attrs map[string]string) amqp.Table {
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}
	return headers
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
