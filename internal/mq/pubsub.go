package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/coursehub/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubClient publishes events to one Pub/Sub topic with per-record
// ordering keys. Subscribers filter by the resource attribute.
type PubSubClient struct {
	client             *pubsub.Client
	topic              *pubsub.Topic
	subscriptionSuffix string
}

// NewPubSubClient connects and makes sure the events topic exists.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig, topicID string) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	topic, err := ensureTopic(ctx, client, topicID)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topicID, err)
	}
	topic.EnableMessageOrdering = true

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &PubSubClient{
		client:             client,
		topic:              topic,
		subscriptionSuffix: suffix,
	}, nil
}

// Publish sends env and waits for the server-assigned id.
func (p *PubSubClient) Publish(ctx context.Context, env Envelope) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        env.Body,
		Attributes:  env.Attributes,
		OrderingKey: env.OrderingKey,
	})
	id, err := result.Get(ctx)
	if err != nil {
		// A failed publish pauses its ordering key until resumed.
		p.topic.ResumePublish(env.OrderingKey)
		return "", fmt.Errorf("publish %s: %w", env.RoutingKey, err)
	}
	return id, nil
}

// Subscribe receives events through a subscription named after the topic
// and resource, creating it with an attribute filter on first use.
func (p *PubSubClient) Subscribe(ctx context.Context, resource string, handler Handler) error {
	name := subscriptionName(p.topic.ID(), p.subscriptionSuffix, resource)
	sub, err := p.ensureSubscription(ctx, name, resource)
	if err != nil {
		return fmt.Errorf("ensure subscription %s: %w", name, err)
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		d := Delivery{
			ID:         msg.ID,
			Body:       msg.Data,
			Attributes: msg.Attributes,
		}
		if err := handler(ctx, d); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close flushes pending publishes and closes the client.
func (p *PubSubClient) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

func ensureTopic(ctx context.Context, client *pubsub.Client, id string) (*pubsub.Topic, error) {
	topic := client.Topic(id)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return topic, nil
	}
	return client.CreateTopic(ctx, id)
}

func (p *PubSubClient) ensureSubscription(ctx context.Context, name, resource string) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return sub, nil
	}
	return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
		Topic:                 p.topic,
		Filter:                subscriptionFilter(resource),
		EnableMessageOrdering: true,
	})
}

func subscriptionName(topicID, suffix, resource string) string {
	name := topicID + suffix
	if resource != "" {
		name += "-" + resource
	}
	return name
}

// subscriptionFilter selects one resource's events; empty matches all.
func subscriptionFilter(resource string) string {
	if resource == "" {
		return ""
	}
	return fmt.Sprintf("attributes.resource = %q", resource)
}
