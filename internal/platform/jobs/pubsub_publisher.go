package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/atelier-mirabelle/api/internal/services"
)

// PubSubLifecyclePublisher publishes order and illustration lifecycle events to a Pub/Sub topic.
type PubSubLifecyclePublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubLifecyclePublisher constructs a Pub/Sub backed lifecycle event publisher.
func NewPubSubLifecyclePublisher(topic *pubsub.Topic) (*PubSubLifecyclePublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub lifecycle publisher: topic is required")
	}
	return &PubSubLifecyclePublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishLifecycleEvent enqueues a status change event on the configured topic.
func (p *PubSubLifecyclePublisher) PublishLifecycleEvent(ctx context.Context, event services.LifecycleEventMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub lifecycle publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal lifecycle event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventId", event.EventID)
	setAttr(attrs, "entity", event.Entity)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "toStatus", event.ToStatus)
	setAttr(attrs, "triggeredBy", event.TriggeredBy)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish lifecycle event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
