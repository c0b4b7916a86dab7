package processor // import "github.com/joincivil/civil-debate-processor/pkg/processor"

import (
	"context"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/article"
	"github.com/joincivil/civil-debate-processor/pkg/composer"
	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/validator"
)

// runCache holds per post lookups for the duration of one run
type runCache struct {
	captions      map[string]string
	postRelevance map[string]bool
}

func newRunCache() *runCache {
	return &runCache{
		captions:      map[string]string{},
		postRelevance: map[string]bool{},
	}
}

func (c *CommentProcessor) processComments(ctx context.Context, comments []*model.Comment,
	articles []*model.Article, autoMode bool, summary *RunSummary) error {
	cache := newRunCache()
	for _, comment := range comments {
		created, err := c.processComment(ctx, comment, articles, autoMode, cache)
		if err != nil {
			return errors.Wrapf(err, "error processing comment %v", comment.CommentID)
		}
		if created {
			summary.Entries++
		} else {
			summary.NoMatches++
		}
	}
	return nil
}

// processComment returns true if a ledger entry was created and false if the
// comment was recorded as a no match. Errors are storage failures only.
func (c *CommentProcessor) processComment(ctx context.Context, comment *model.Comment,
	articles []*model.Article, autoMode bool, cache *runCache) (bool, error) {
	if comment.AuthoredBy(c.botUsername) {
		return false, c.recordNoMatch(ctx, comment, model.ReasonOwnComment)
	}
	replied, err := c.postedIDs.IsPosted(ctx, comment.CommentID)
	if err != nil {
		return false, errors.Wrap(err, "error checking posted ids")
	}
	if replied {
		return false, c.recordNoMatch(ctx, comment, model.ReasonAlreadyReplied)
	}

	caption := c.caption(ctx, comment.PostID, cache)

	var selected *model.Article
	var threadContext string
	if len(articles) == 1 {
		selected = articles[0]
		reason, err := c.checkSingleArticle(ctx, comment, selected, caption, cache)
		if err != nil {
			return false, c.recordNoMatch(ctx, comment, model.ReasonProcessingErrorPrefix+err.Error())
		}
		if reason != "" {
			return false, c.recordNoMatch(ctx, comment, reason)
		}
		threadContext = c.threadBuilder.Build(ctx, comment.CommentID)
	} else {
		threadContext = c.threadBuilder.Build(ctx, comment.CommentID)
		selected, err = c.gate.SelectArticle(ctx, articles, caption, comment.Text, threadContext)
		if selected == nil {
			if err != nil {
				return false, c.recordNoMatch(ctx, comment, model.ReasonProcessingErrorPrefix+err.Error())
			}
			return false, c.recordNoMatch(ctx, comment, model.ReasonNoArticleMatched)
		}
	}

	index := article.IndexForArticle(selected)
	numbered := index.Numbered()
	response, err := c.composer.Compose(ctx, &composer.Variables{
		Topic:         article.DisplayTitle(selected, index.Metadata()),
		ArticleText:   selected.Content,
		PostCaption:   caption,
		Username:      comment.Username,
		CommentText:   comment.Text,
		ThreadContext: threadContext,
	}, numbered)
	if err != nil {
		log.Errorf("Error composing response to comment %v: err: %v", comment.CommentID, err)
		return false, c.recordNoMatch(ctx, comment, model.ReasonProcessingErrorPrefix+err.Error())
	}

	return true, c.recordEntry(ctx, comment, selected, index, response, autoMode)
}

// checkSingleArticle runs the post then comment checks and returns the no
// match reason, or "" if the comment passed both
func (c *CommentProcessor) checkSingleArticle(ctx context.Context, comment *model.Comment,
	a *model.Article, caption string, cache *runCache) (string, error) {
	meta := article.IndexForArticle(a).Metadata()
	title := article.DisplayTitle(a, meta)

	postRelevant, ok := cache.postRelevance[comment.PostID]
	if !ok {
		var err error
		postRelevant, err = c.gate.PostRelevant(ctx, title, meta.Summary, caption)
		if err != nil {
			return "", err
		}
		cache.postRelevance[comment.PostID] = postRelevant
	}
	if !postRelevant {
		return model.ReasonPostNotRelevant, nil
	}

	commentRelevant, err := c.gate.CommentRelevant(ctx, title, meta.Summary, comment.Text)
	if err != nil {
		return "", err
	}
	if !commentRelevant {
		return model.ReasonCommentNotRelevant, nil
	}
	return "", nil
}

// caption returns the post's caption, or "" if it could not be fetched
func (c *CommentProcessor) caption(ctx context.Context, postID string, cache *runCache) string {
	if caption, ok := cache.captions[postID]; ok {
		return caption
	}
	caption := ""
	if postID != "" {
		var err error
		caption, err = c.platform.PostCaption(ctx, postID)
		if err != nil {
			log.Warningf("Error fetching caption for post %v, continuing without it: err: %v", postID, err)
			caption = ""
		}
	}
	cache.captions[postID] = caption
	return caption
}

func (c *CommentProcessor) recordEntry(ctx context.Context, comment *model.Comment, a *model.Article,
	index *article.Index, response string, autoMode bool) error {
	valid, validationErrs := c.validator.Validate(response, index)
	for _, warning := range c.validator.Warnings(response) {
		log.Warningf("Response to comment %v: %v", comment.CommentID, warning)
	}

	citations := []string{}
	if index.Numbered() {
		citations = validator.ExtractCitations(response)
	}

	now := c.now()
	entry := &model.ModerationEntry{
		CommentID:         comment.CommentID,
		PostID:            comment.PostID,
		Username:          comment.Username,
		CommentText:       comment.Text,
		GeneratedResponse: response,
		CitationsUsed:     citations,
		Timestamp:         now,
		ValidationPassed:  valid,
		ValidationErrors:  validationErrs,
		ArticleUsed:       a.Ref(),
	}
	switch {
	case !valid:
		entry.Status = model.StatusFailed
		entry.Errors = validationErrs
	case autoMode:
		entry.Status = model.StatusApproved
		entry.ApprovedAt = &now
	default:
		entry.Status = model.StatusPendingReview
	}

	id, err := c.ledger.Save(ctx, entry)
	if err != nil {
		return errors.Wrap(err, "error saving moderation entry")
	}
	log.Infof("Recorded %v entry %v for comment %v", entry.Status, id, comment.CommentID)
	if !valid {
		log.Infof("Entry %v failed validation: %v", id, validationErrs)
	}
	c.metrics.EntryCreated(entry.Status)
	c.publish(ctx, model.ModerationEventEntryCreated, entry)
	return nil
}

func (c *CommentProcessor) recordNoMatch(ctx context.Context, comment *model.Comment, reason string) error {
	record := model.NewNoMatchRecord(comment, reason, c.now())
	id, err := c.noMatchLog.Save(ctx, record)
	if err != nil {
		return errors.Wrap(err, "error saving no match record")
	}
	log.Infof("Skipped comment %v (%v): %v", comment.CommentID, id, reason)
	c.metrics.NoMatch(reason)
	return nil
}
