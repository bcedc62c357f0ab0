// Package eventbus carries watermill messages over core NATS.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
)

const queueGroupPrefix = "lbpoints"

// EventBus is a watermill Publisher and Subscriber backed by NATS.
type EventBus struct {
	logger     watermill.LoggerAdapter
	publisher  message.Publisher
	subscriber *nats.Subscriber
}

var (
	_ message.Publisher  = (*EventBus)(nil)
	_ message.Subscriber = (*EventBus)(nil)
)

func natsOptions(logger watermill.LoggerAdapter) []nc.Option {
	return []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in subscription", err, watermill.LogFields{
					"subject": s.Subject,
					"queue":   s.Queue,
				})
			} else {
				logger.Error("Error in connection", err, nil)
			}
		}),
	}
}

// New connects a publisher and a queue-group subscriber to natsURL.
func New(natsURL string, logger *slog.Logger) (*EventBus, error) {
	wlogger := watermill.NewSlogLogger(logger)
	options := natsOptions(wlogger)

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			NatsOptions: options,
			Marshaler:   &nats.NATSMarshaler{},
			JetStream:   nats.JetStreamConfig{Disabled: true},
		},
		wlogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Watermill NATS publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              natsURL,
			QueueGroupPrefix: queueGroupPrefix,
			SubscribersCount: 1,
			CloseTimeout:     30 * time.Second,
			AckWaitTimeout:   30 * time.Second,
			NatsOptions:      options,
			Unmarshaler:      &nats.NATSMarshaler{},
			JetStream:        nats.JetStreamConfig{Disabled: true},
		},
		wlogger,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS subscriber: %w", err)
	}

	return &EventBus{
		logger:     wlogger,
		publisher:  WithMetadataTopics(publisher),
		subscriber: subscriber,
	}, nil
}

// Publish sends messages to the topic in their metadata, or to topic.
func (b *EventBus) Publish(topic string, msgs ...*message.Message) error {
	return b.publisher.Publish(topic, msgs...)
}

func (b *EventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Close stops the subscriber then the publisher.
func (b *EventBus) Close() error {
	b.logger.Info("Stopping NATS event bus", nil)
	if err := b.subscriber.Close(); err != nil {
		return fmt.Errorf("failed to close subscriber: %w", err)
	}
	if err := b.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	return nil
}
