// Package mq publishes and tails catalog change events over RabbitMQ or
// Google Pub/Sub.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coursehub/apiserver/config"
	"github.com/sirupsen/logrus"
)

// Backend names accepted by NewFromConfig.
const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

// Event is a committed change to a catalog resource.
type Event struct {
	Resource string    `json:"resource"`
	Action   string    `json:"action"`
	ID       int       `json:"id"`
	At       time.Time `json:"at"`
}

// RoutingKey is "<resource>.<action>".
func (e Event) RoutingKey() string {
	return e.Resource + "." + e.Action
}

// OrderingKey groups the events of one record.
func (e Event) OrderingKey() string {
	return e.Resource + "/" + strconv.Itoa(e.ID)
}

// Attributes are the headers subscribers filter on.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"resource": e.Resource,
		"action":   e.Action,
		"id":       strconv.Itoa(e.ID),
	}
}

// Envelope is an encoded event ready for a backend.
type Envelope struct {
	RoutingKey  string
	OrderingKey string
	Attributes  map[string]string
	Body        []byte
}

// Delivery is a message received from the broker.
type Delivery struct {
	ID         string
	Body       []byte
	Attributes map[string]string
}

// Handler processes a delivery. Return an error to nack it for redelivery.
type Handler func(ctx context.Context, d Delivery) error

// Backend carries envelopes over one events channel: a RabbitMQ topic
// exchange or a Pub/Sub topic. Subscribe receives the events of resource,
// or of every resource when it is empty.
type Backend interface {
	Publish(ctx context.Context, env Envelope) (string, error)
	Subscribe(ctx context.Context, resource string, handler Handler) error
	Close() error
}

// EventHandler processes a decoded event.
type EventHandler func(ctx context.Context, messageID string, ev Event) error

// MQ publishes and tails catalog change events.
type MQ struct {
	backend Backend
	logger  logrus.FieldLogger
}

// New constructs an MQ for the provided backend.
func New(backend Backend, logger logrus.FieldLogger) *MQ {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MQ{backend: backend, logger: logger}
}

// NewFromConfig connects to the configured backend. It returns a nil *MQ
// when no backend is configured.
func NewFromConfig(ctx context.Context, cfg config.MQConfig, logger logrus.FieldLogger) (*MQ, error) {
	if cfg.Backend == "" {
		return nil, nil
	}
	channel := strings.TrimSpace(cfg.EventsChannel)
	if channel == "" {
		return nil, errors.New("mq events channel is required")
	}

	switch cfg.Backend {
	case BackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ, channel)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return New(client, logger), nil
	case BackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub, channel)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return New(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// PublishEvent encodes ev and publishes it. It returns the broker's
// message id.
func (m *MQ) PublishEvent(ctx context.Context, ev Event) (string, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return m.backend.Publish(ctx, Envelope{
		RoutingKey:  ev.RoutingKey(),
		OrderingKey: ev.OrderingKey(),
		Attributes:  ev.Attributes(),
		Body:        body,
	})
}

// Tail passes events of resource, or of every resource when it is empty,
// to handler until ctx is done. Payloads that do not decode are logged and
// acknowledged so they are not redelivered.
func (m *MQ) Tail(ctx context.Context, resource string, handler EventHandler) error {
	err := m.backend.Subscribe(ctx, resource, func(ctx context.Context, d Delivery) error {
		var ev Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			m.logger.WithError(err).WithField("message_id", d.ID).Warn("dropping malformed event")
			return nil
		}
		return handler(ctx, d.ID, ev)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close closes the underlying backend. Closing a nil *MQ is a no-op.
func (m *MQ) Close() error {
	if m == nil {
		return nil
	}
	return m.backend.Close()
}
