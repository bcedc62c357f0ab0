package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
)

// TopicMetadataKey names the metadata entry holding a message's destination.
const TopicMetadataKey = "topic"

// NewMessage encodes payload as JSON into a message bound for topic.
func NewMessage(topic string, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("eventbus.NewMessage: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), body)
	msg.Metadata.Set(TopicMetadataKey, topic)
	return msg, nil
}

// NewResultMessage is NewMessage carrying parent's correlation id.
func NewResultMessage(parent *message.Message, topic string, payload any) (*message.Message, error) {
	msg, err := NewMessage(topic, payload)
	if err != nil {
		return nil, err
	}
	if id := middleware.MessageCorrelationID(parent); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	return msg, nil
}

// Decode unmarshals a JSON message payload.
func Decode[T any](msg *message.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("eventbus.Decode: %w", err)
	}
	return v, nil
}

type metadataTopicPublisher struct {
	message.Publisher
}

// WithMetadataTopics routes each message to the topic in its metadata,
// falling back to the topic passed to Publish.
func WithMetadataTopics(pub message.Publisher) message.Publisher {
	return metadataTopicPublisher{Publisher: pub}
}

func (p metadataTopicPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		dest := topic
		if t := msg.Metadata.Get(TopicMetadataKey); t != "" {
			dest = t
		}
		if dest == "" {
			return fmt.Errorf("eventbus: message %s has no topic", msg.UUID)
		}
		if err := p.Publisher.Publish(dest, msg); err != nil {
			return err
		}
	}
	return nil
}
