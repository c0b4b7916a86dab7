// Package pubsub wraps Google Pub/Sub for publishing moderation events and
// receiving run triggers.
package pubsub // import "github.com/joincivil/civil-debate-processor/pkg/pubsub"

import (
	"context"
	"sync"

	"cloud.google.com/go/pubsub"
	log "github.com/golang/glog"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// GooglePubSubMsg is a message to publish
type GooglePubSubMsg struct {
	Topic   string
	Payload string
}

// NewGooglePubSub returns a client for the project. credentialsFile may be
// empty to use the default credentials.
func NewGooglePubSub(ctx context.Context, projectID string, credentialsFile string) (*GooglePubSub, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "error creating pubsub client")
	}
	return NewGooglePubSubFromClient(client), nil
}

// NewGooglePubSubFromClient returns a GooglePubSub using an existing client
func NewGooglePubSubFromClient(client *pubsub.Client) *GooglePubSub {
	return &GooglePubSub{
		client: client,
		topics: map[string]*pubsub.Topic{},
	}
}

// GooglePubSub publishes to topics and forwards subscription messages to
// SubscribeChan
type GooglePubSub struct {
	client        *pubsub.Client
	topics        map[string]*pubsub.Topic
	topicsMutex   sync.Mutex
	SubscribeChan chan *pubsub.Message
	cancelSub     context.CancelFunc
	subWg         sync.WaitGroup
}

// CreateTopic creates the topic if it does not exist
func (g *GooglePubSub) CreateTopic(ctx context.Context, topicName string) error {
	topic := g.client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return errors.Wrapf(err, "error checking topic %v", topicName)
	}
	if exists {
		return nil
	}
	_, err = g.client.CreateTopic(ctx, topicName)
	return errors.Wrapf(err, "error creating topic %v", topicName)
}

// CreateSubscription creates a subscription to the topic if it does not
// exist
func (g *GooglePubSub) CreateSubscription(ctx context.Context, topicName string, subName string) error {
	sub := g.client.Subscription(subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return errors.Wrapf(err, "error checking subscription %v", subName)
	}
	if exists {
		return nil
	}
	_, err = g.client.CreateSubscription(ctx, subName, pubsub.SubscriptionConfig{
		Topic: g.client.Topic(topicName),
	})
	return errors.Wrapf(err, "error creating subscription %v", subName)
}

// Publish publishes the message and waits for the server to accept it
func (g *GooglePubSub) Publish(ctx context.Context, msg *GooglePubSubMsg) error {
	result := g.topic(msg.Topic).Publish(ctx, &pubsub.Message{Data: []byte(msg.Payload)})
	_, err := result.Get(ctx)
	if err != nil {
		return errors.Wrapf(err, "error publishing to %v", msg.Topic)
	}
	return nil
}

// StartSubscribers starts receiving from the subscription. Messages are acked
// on receipt and sent on SubscribeChan.
func (g *GooglePubSub) StartSubscribers(subName string) error {
	if g.cancelSub != nil {
		return errors.New("subscribers already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancelSub = cancel
	g.SubscribeChan = make(chan *pubsub.Message)
	sub := g.client.Subscription(subName)

	g.subWg.Add(1)
	go func() {
		defer g.subWg.Done()
		err := sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			msg.Ack()
			select {
			case g.SubscribeChan <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.Errorf("Error receiving from %v: err: %v", subName, err)
		}
	}()
	return nil
}

// StopSubscribers stops receiving and closes SubscribeChan
func (g *GooglePubSub) StopSubscribers() error {
	if g.cancelSub == nil {
		return errors.New("subscribers not started")
	}
	g.cancelSub()
	g.subWg.Wait()
	close(g.SubscribeChan)
	g.cancelSub = nil
	return nil
}

// Close stops the topics and closes the client
func (g *GooglePubSub) Close() error {
	g.topicsMutex.Lock()
	for _, topic := range g.topics {
		topic.Stop()
	}
	g.topics = map[string]*pubsub.Topic{}
	g.topicsMutex.Unlock()
	return g.client.Close()
}

func (g *GooglePubSub) topic(name string) *pubsub.Topic {
	g.topicsMutex.Lock()
	defer g.topicsMutex.Unlock()
	topic, ok := g.topics[name]
	if !ok {
		topic = g.client.Topic(name)
		g.topics[name] = topic
	}
	return topic
}
