package pubsub_test

import (
	"context"
	"testing"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joincivil/civil-debate-processor/pkg/pubsub"
)

func newFakePubSub(t *testing.T) (*pubsub.GooglePubSub, *pstest.Server) {
	srv := pstest.NewServer()
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Should have connected to fake server: err: %v", err)
	}
	client, err := gpubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	if err != nil {
		t.Fatalf("Should have created client: err: %v", err)
	}
	return pubsub.NewGooglePubSubFromClient(client), srv
}

func TestPublish(t *testing.T) {
	ps, srv := newFakePubSub(t)
	defer srv.Close()
	defer ps.Close() // nolint: errcheck
	ctx := context.Background()

	err := ps.CreateTopic(ctx, "moderation-events")
	if err != nil {
		t.Fatalf("Should have created topic: err: %v", err)
	}
	err = ps.CreateTopic(ctx, "moderation-events")
	if err != nil {
		t.Errorf("Creating an existing topic should not fail: err: %v", err)
	}

	err = ps.Publish(ctx, &pubsub.GooglePubSubMsg{Topic: "moderation-events", Payload: `{"a":1}`})
	if err != nil {
		t.Fatalf("Should have published: err: %v", err)
	}
	msgs := srv.Messages()
	if len(msgs) != 1 || string(msgs[0].Data) != `{"a":1}` {
		t.Errorf("Published messages are not what they should be: %v", msgs)
	}
}

func TestSubscribe(t *testing.T) {
	ps, srv := newFakePubSub(t)
	defer srv.Close()
	defer ps.Close() // nolint: errcheck
	ctx := context.Background()

	err := ps.CreateTopic(ctx, "triggers")
	if err != nil {
		t.Fatalf("Should have created topic: err: %v", err)
	}
	err = ps.CreateSubscription(ctx, "triggers", "processor-triggers")
	if err != nil {
		t.Fatalf("Should have created subscription: err: %v", err)
	}
	err = ps.StartSubscribers("processor-triggers")
	if err != nil {
		t.Fatalf("Should have started subscribers: err: %v", err)
	}

	err = ps.Publish(ctx, &pubsub.GooglePubSubMsg{Topic: "triggers", Payload: `{"account_id":"a1"}`})
	if err != nil {
		t.Fatalf("Should have published: err: %v", err)
	}

	select {
	case msg := <-ps.SubscribeChan:
		trigger, err := pubsub.ParseTriggerMessage(msg.Data)
		if err != nil || trigger.AccountID != "a1" {
			t.Errorf("Trigger is not what it should be: %+v, %v", trigger, err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Should have received the message")
	}

	err = ps.StopSubscribers()
	if err != nil {
		t.Errorf("Should have stopped subscribers: err: %v", err)
	}
	if _, ok := <-ps.SubscribeChan; ok {
		t.Errorf("SubscribeChan should be closed")
	}
}
