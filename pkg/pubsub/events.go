package pubsub // import "github.com/joincivil/civil-debate-processor/pkg/pubsub"

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// Publisher publishes messages
type Publisher interface {
	Publish(ctx context.Context, msg *GooglePubSubMsg) error
}

// NewModerationEventPublisher returns a publisher of moderation events to
// the topic
func NewModerationEventPublisher(publisher Publisher, topicName string) *ModerationEventPublisher {
	return &ModerationEventPublisher{publisher: publisher, topicName: topicName}
}

// ModerationEventPublisher publishes ledger changes as JSON messages
type ModerationEventPublisher struct {
	publisher Publisher
	topicName string
}

// PublishModerationEvent publishes the event
func (m *ModerationEventPublisher) PublishModerationEvent(ctx context.Context,
	event *model.ModerationEvent) error {
	msg, err := BuildModerationEventPayload(m.topicName, event)
	if err != nil {
		return err
	}
	return m.publisher.Publish(ctx, msg)
}

// BuildModerationEventPayload returns the message for the event. Events
// without an id are given one.
func BuildModerationEventPayload(topicName string, event *model.ModerationEvent) (*GooglePubSubMsg, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling moderation event")
	}
	return &GooglePubSubMsg{Topic: topicName, Payload: string(payload)}, nil
}

// TriggerMessage asks for a processing run for an account. An empty
// AccountID asks for a run of every account.
type TriggerMessage struct {
	AccountID string `json:"account_id"`
}

// ParseTriggerMessage parses a trigger message. An empty body is a trigger
// for every account.
func ParseTriggerMessage(data []byte) (*TriggerMessage, error) {
	msg := &TriggerMessage{}
	if strings.TrimSpace(string(data)) == "" {
		return msg, nil
	}
	err := json.Unmarshal(data, msg)
	if err != nil {
		return nil, errors.Wrap(err, "invalid trigger message")
	}
	return msg, nil
}
