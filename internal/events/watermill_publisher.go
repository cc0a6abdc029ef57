package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// WatermillPublisher publishes events to Redis streams through watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher builds a publisher on top of an existing Redis
// client. The client is shared with the rest of the service; Close only
// releases watermill's hold on it.
func NewWatermillPublisher(client *redis.Client) (*WatermillPublisher, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, fmt.Errorf("creating stream publisher: %w", err)
	}
	return &WatermillPublisher{publisher: publisher}, nil
}

func (p *WatermillPublisher) PublishIdentityRegistered(ctx context.Context, event IdentityRegistered) error {
	return p.publish(ctx, TopicIdentityRegistered, event)
}

func (p *WatermillPublisher) PublishLogin(ctx context.Context, event Login) error {
	return p.publish(ctx, TopicLogin, event)
}

func (p *WatermillPublisher) PublishLogout(ctx context.Context, event Logout) error {
	return p.publish(ctx, TopicLogout, event)
}

func (p *WatermillPublisher) PublishPremiumChanged(ctx context.Context, event PremiumChanged) error {
	return p.publish(ctx, TopicPremiumChanged, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
