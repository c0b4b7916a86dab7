package processor // import "github.com/joincivil/civil-debate-processor/pkg/processor"

import (
	"context"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// errorBodyer is implemented by platform errors that carry the platform's
// error object
type errorBodyer interface {
	ErrorBody() map[string]interface{}
}

// PostApproved posts every approved and unposted entry, whatever the current
// auto post mode. A failed post is recorded on its entry and the remaining
// entries are still posted. An entry whose comment already has a reply is
// marked posted without calling the platform, so running this twice posts
// each entry once. Returns the number of posted and failed entries.
func (c *CommentProcessor) PostApproved(ctx context.Context) (int, int, error) {
	entries, err := c.ledger.Entries(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, "error loading moderation entries")
	}
	posted := 0
	failed := 0
	for _, entry := range entries {
		if !entry.Postable() {
			continue
		}
		ok, err := c.postEntry(ctx, entry)
		if err != nil {
			return posted, failed, err
		}
		if ok {
			posted++
		} else {
			failed++
		}
	}
	if posted > 0 || failed > 0 {
		log.Infof("Posted %v approved entries, %v failed", posted, failed)
	}
	return posted, failed, nil
}

// postEntry returns false if the platform rejected the post. Errors are
// storage failures.
func (c *CommentProcessor) postEntry(ctx context.Context, entry *model.ModerationEntry) (bool, error) {
	replied, err := c.postedIDs.IsPosted(ctx, entry.CommentID)
	if err != nil {
		return false, errors.Wrap(err, "error checking posted ids")
	}
	if replied {
		log.Infof("Comment %v already has a reply, marking entry %v posted", entry.CommentID, entry.ID)
		return true, c.markPosted(ctx, entry, nil)
	}

	reply, err := c.platform.PostReply(ctx, entry.CommentID, entry.GeneratedResponse)
	if err != nil {
		log.Errorf("Error posting entry %v to comment %v: err: %v", entry.ID, entry.CommentID, err)
		postErr := &model.PostError{Message: err.Error()}
		if bodyer, ok := errors.Cause(err).(errorBodyer); ok {
			postErr.GraphAPIError = bodyer.ErrorBody()
		}
		err = c.ledger.Update(ctx, entry.ID, &model.EntryUpdate{PostError: postErr})
		if err != nil {
			return false, errors.Wrap(err, "error recording post error")
		}
		entry.PostError = postErr
		c.metrics.PostFailed()
		c.publish(ctx, model.ModerationEventPostFailed, entry)
		return false, nil
	}

	// The posted id set is written first; it is what stops a second reply if
	// the ledger update below fails.
	err = c.postedIDs.AddPostedID(ctx, entry.CommentID)
	if err != nil {
		return false, errors.Wrapf(err, "error recording reply to comment %v", entry.CommentID)
	}
	err = c.markPosted(ctx, entry, reply)
	if err != nil {
		return false, err
	}
	log.Infof("Posted entry %v as reply %v", entry.ID, reply.ID)
	c.metrics.ReplyPosted()
	c.publish(ctx, model.ModerationEventEntryPosted, entry)
	return true, nil
}

func (c *CommentProcessor) markPosted(ctx context.Context, entry *model.ModerationEntry,
	reply *model.PostedReply) error {
	now := c.now()
	posted := true
	update := &model.EntryUpdate{
		Posted:         &posted,
		PostedAt:       &now,
		ClearPostError: true,
	}
	if reply != nil {
		update.ReplyID = &reply.ID
	}
	err := c.ledger.Update(ctx, entry.ID, update)
	if err != nil {
		return errors.Wrapf(err, "error marking entry %v posted", entry.ID)
	}
	update.Apply(entry)
	return nil
}
