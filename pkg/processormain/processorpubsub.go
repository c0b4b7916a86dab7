package processormain

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"cloud.google.com/go/pubsub"
	log "github.com/golang/glog"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	cpubsub "github.com/joincivil/civil-debate-processor/pkg/pubsub"
	"github.com/joincivil/civil-debate-processor/pkg/utils"
)

// InitPubSub returns the pubsub client, or nil if no project is configured
func InitPubSub(ctx context.Context, config *utils.ProcessorConfig) (*cpubsub.GooglePubSub, error) {
	// If no project ID, disable
	if !config.PubSubEnabled() {
		return nil, nil
	}
	return cpubsub.NewGooglePubSub(ctx, config.PubSubProjectID, config.PubSubCredentialsFile)
}

// InitModerationEventPublisher returns the publisher for moderation events,
// or nil if no topic is configured
func InitModerationEventPublisher(ctx context.Context, config *utils.ProcessorConfig,
	ps *cpubsub.GooglePubSub) (model.ModerationEventPublisher, error) {
	// If no moderation topic name, disable
	if ps == nil || config.PubSubModerationTopicName == "" {
		return nil, nil
	}
	err := ps.CreateTopic(ctx, config.PubSubModerationTopicName)
	if err != nil {
		return nil, err
	}
	return cpubsub.NewModerationEventPublisher(ps, config.PubSubModerationTopicName), nil
}

func initPubSubSubscribers(config *utils.ProcessorConfig, ps *cpubsub.GooglePubSub) error {
	if ps == nil {
		return errors.New("Need PubSubProjectID")
	}
	// If no subscription name, quit
	if config.PubSubTriggerSubName == "" {
		return errors.New("Pubsub subscription name should be specified")
	}
	return ps.StartSubscribers(config.PubSubTriggerSubName)
}

// handleTrigger runs the account named by the trigger, or every account when
// the trigger names none
func handleTrigger(ctx context.Context, config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices, msg *pubsub.Message) error {
	trigger, err := cpubsub.ParseTriggerMessage(msg.Data)
	if err != nil {
		return err
	}
	if trigger.AccountID == "" {
		return RunProcessor(ctx, config, persisters, services)
	}

	account := &model.Account{ID: trigger.AccountID}
	registered, err := persisters.Accounts.Accounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range registered {
		if a.ID == trigger.AccountID {
			account = a
			break
		}
	}
	summary, err := RunAccount(ctx, config, persisters, services, account)
	if err != nil {
		return err
	}
	log.Infof("Triggered run for account %q: comments: %v, entries: %v, posted: %v",
		account.ID, summary.Comments, summary.Entries, summary.Posted)
	return nil
}

// RunProcessorPubSub runs the processor for each trigger message received
// until msgs is closed or quit fires
func RunProcessorPubSub(config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices, msgs <-chan *pubsub.Message, quit <-chan bool) {
Loop:
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				log.Errorf("Subscription channel closed")
				break Loop
			}
			err := handleTrigger(context.Background(), config, persisters, services, msg)
			if err != nil {
				log.Errorf("Error processing trigger message: err: %v", err)
				continue
			}
			log.Infof("Finished processing trigger message\n")
		case <-quit:
			log.Infof("Quitting")
			break Loop
		}
	}
}

func cleanup(ps *cpubsub.GooglePubSub) {
	err := ps.StopSubscribers()
	if err != nil {
		log.Errorf("Error stopping subscribers: err: %v", err)
	}
	log.Info("Subscribers stopped")
}

func setupKillNotify(quitChan chan<- bool) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		quitChan <- true
	}()
}

// ProcessorPubSubMain runs the processor for each message on the trigger
// subscription. Blocks until the process is interrupted.
func ProcessorPubSubMain(config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices, ps *cpubsub.GooglePubSub) error {
	err := initPubSubSubscribers(config, ps)
	if err != nil {
		log.Errorf("Error starting subscribers for pubsub: err: %v", err)
		return err
	}
	defer cleanup(ps)

	quitChan := make(chan bool, 1)
	setupKillNotify(quitChan)

	RunProcessorPubSub(config, persisters, services, ps.SubscribeChan, quitChan)

	log.Infof("Done running processor: %v", runtime.NumGoroutine())
	return nil
}
