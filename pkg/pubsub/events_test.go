package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/pubsub"
)

type recordingPublisher struct {
	msgs []*pubsub.GooglePubSubMsg
}

func (r *recordingPublisher) Publish(ctx context.Context, msg *pubsub.GooglePubSubMsg) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestBuildModerationEventPayload(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	event := &model.ModerationEvent{
		Type:      model.ModerationEventEntryCreated,
		AccountID: "acct1",
		EntryID:   "log_001",
		CommentID: "c1",
		Status:    model.StatusPendingReview,
		Timestamp: ts,
	}
	msg, err := pubsub.BuildModerationEventPayload("moderation-events", event)
	if err != nil {
		t.Fatalf("Should not have failed: err: %v", err)
	}
	if msg.Topic != "moderation-events" {
		t.Errorf("Topic is not what it should be: %v", msg.Topic)
	}
	if event.ID == "" {
		t.Errorf("Should have assigned an event id")
	}

	decoded := map[string]interface{}{}
	err = json.Unmarshal([]byte(msg.Payload), &decoded)
	if err != nil {
		t.Fatalf("Payload should be json: err: %v", err)
	}
	if decoded["type"] != "entry_created" || decoded["entry_id"] != "log_001" ||
		decoded["status"] != "pending_review" || decoded["posted"] != false ||
		decoded["account_id"] != "acct1" {
		t.Errorf("Payload is not what it should be: %v", msg.Payload)
	}
}

func TestModerationEventPublisher(t *testing.T) {
	recorder := &recordingPublisher{}
	publisher := pubsub.NewModerationEventPublisher(recorder, "moderation-events")

	err := publisher.PublishModerationEvent(context.Background(), &model.ModerationEvent{
		ID:      "fixed",
		Type:    model.ModerationEventEntryPosted,
		EntryID: "log_002",
		Posted:  true,
	})
	if err != nil {
		t.Fatalf("Should not have failed: err: %v", err)
	}
	if len(recorder.msgs) != 1 || recorder.msgs[0].Topic != "moderation-events" {
		t.Fatalf("Should have published one message to the topic")
	}
	decoded := &model.ModerationEvent{}
	err = json.Unmarshal([]byte(recorder.msgs[0].Payload), decoded)
	if err != nil {
		t.Fatalf("Payload should be json: err: %v", err)
	}
	if decoded.ID != "fixed" || !decoded.Posted {
		t.Errorf("Event is not what it should be: %+v", decoded)
	}
}

func TestParseTriggerMessage(t *testing.T) {
	msg, err := pubsub.ParseTriggerMessage([]byte(`{"account_id":"17841400000"}`))
	if err != nil || msg.AccountID != "17841400000" {
		t.Errorf("Trigger is not what it should be: %+v, %v", msg, err)
	}
	msg, err = pubsub.ParseTriggerMessage(nil)
	if err != nil || msg.AccountID != "" {
		t.Errorf("Empty trigger should be for the default account: %+v, %v", msg, err)
	}
	_, err = pubsub.ParseTriggerMessage([]byte("not json"))
	if err == nil {
		t.Errorf("Invalid trigger should be an error")
	}
}
