// Package processor runs batches of pending comments through relevance
// filtering, response drafting, validation and the moderation ledger, then
// posts approved replies.
package processor // import "github.com/joincivil/civil-debate-processor/pkg/processor"

import (
	"context"
	"time"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/composer"
	"github.com/joincivil/civil-debate-processor/pkg/metrics"
	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/relevance"
	"github.com/joincivil/civil-debate-processor/pkg/thread"
	"github.com/joincivil/civil-debate-processor/pkg/validator"
)

// NewCommentProcessorParams are the params to NewCommentProcessor.
// Articles, Publisher and Metrics may be nil.
type NewCommentProcessorParams struct {
	AccountID       string
	BotUsername     string
	Queue           model.CommentQueuePersister
	Ledger          model.ModerationLedger
	NoMatchLog      model.NoMatchLog
	PostedIDs       model.PostedIDPersister
	Mode            model.ModePersister
	Articles        model.ArticlePersister
	DefaultArticles []*model.Article
	Gate            *relevance.Gate
	ThreadBuilder   *thread.Builder
	Composer        *composer.Composer
	Validator       *validator.ResponseValidator
	Platform        model.SocialPlatform
	Publisher       model.ModerationEventPublisher
	Metrics         *metrics.Metrics
}

// NewCommentProcessor is a convenience function to init a CommentProcessor
func NewCommentProcessor(params *NewCommentProcessorParams) *CommentProcessor {
	return &CommentProcessor{
		accountID:       params.AccountID,
		botUsername:     params.BotUsername,
		queue:           params.Queue,
		ledger:          params.Ledger,
		noMatchLog:      params.NoMatchLog,
		postedIDs:       params.PostedIDs,
		mode:            params.Mode,
		articles:        params.Articles,
		defaultArticles: params.DefaultArticles,
		gate:            params.Gate,
		threadBuilder:   params.ThreadBuilder,
		composer:        params.Composer,
		validator:       params.Validator,
		platform:        params.Platform,
		publisher:       params.Publisher,
		metrics:         params.Metrics,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// CommentProcessor drives one account's batch runs. A run processes the
// pending queue sequentially, then posts approved entries.
type CommentProcessor struct {
	accountID       string
	botUsername     string
	queue           model.CommentQueuePersister
	ledger          model.ModerationLedger
	noMatchLog      model.NoMatchLog
	postedIDs       model.PostedIDPersister
	mode            model.ModePersister
	articles        model.ArticlePersister
	defaultArticles []*model.Article
	gate            *relevance.Gate
	threadBuilder   *thread.Builder
	composer        *composer.Composer
	validator       *validator.ResponseValidator
	platform        model.SocialPlatform
	publisher       model.ModerationEventPublisher
	metrics         *metrics.Metrics
	now             func() time.Time
}

// RunSummary counts what a run did
type RunSummary struct {
	Comments     int
	Entries      int
	NoMatches    int
	Posted       int
	PostFailures int
	QueueCleared bool
}

// Process runs one batch. Collaborator failures on a single comment or post
// are recorded and the run continues. Storage failures stop the run and the
// pending queue is left as it was.
func (c *CommentProcessor) Process(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary, err := c.process(ctx)
	c.metrics.RunFinished(start, err)
	return summary, err
}

func (c *CommentProcessor) process(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}

	articles, err := c.loadArticles(ctx)
	if err != nil {
		return summary, err
	}
	comments, err := c.queue.PendingComments(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "error loading pending comments")
	}
	summary.Comments = len(comments)

	switch {
	case len(comments) == 0:
		log.Infof("No pending comments to process")
	case len(articles) == 0:
		log.Warningf("No articles configured for account %q, leaving %v comments queued",
			c.accountID, len(comments))
	default:
		autoMode, err := c.mode.AutoMode(ctx)
		if err != nil {
			return summary, errors.Wrap(err, "error reading auto post mode")
		}
		log.Infof("Processing %v pending comments against %v articles, auto mode: %v",
			len(comments), len(articles), autoMode)
		err = c.processComments(ctx, comments, articles, autoMode, summary)
		if err != nil {
			return summary, err
		}
	}

	posted, failed, err := c.PostApproved(ctx)
	summary.Posted = posted
	summary.PostFailures = failed
	if err != nil {
		return summary, err
	}

	if len(comments) > 0 && len(articles) > 0 {
		err = c.queue.ClearPendingComments(ctx)
		if err != nil {
			return summary, errors.Wrap(err, "error clearing pending comments")
		}
		summary.QueueCleared = true
	}
	return summary, nil
}

func (c *CommentProcessor) loadArticles(ctx context.Context) ([]*model.Article, error) {
	if c.articles != nil {
		articles, err := c.articles.Articles(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error loading articles")
		}
		if len(articles) > 0 {
			return articles, nil
		}
	}
	return c.defaultArticles, nil
}

func (c *CommentProcessor) publish(ctx context.Context, eventType model.ModerationEventType,
	entry *model.ModerationEntry) {
	if c.publisher == nil {
		return
	}
	err := c.publisher.PublishModerationEvent(ctx, &model.ModerationEvent{
		Type:      eventType,
		AccountID: c.accountID,
		EntryID:   entry.ID,
		CommentID: entry.CommentID,
		Status:    entry.Status,
		Posted:    entry.Posted,
		Timestamp: c.now(),
	})
	if err != nil {
		log.Errorf("Error publishing %v event for entry %v: err: %v", eventType, entry.ID, err)
	}
}
