package model // import "github.com/joincivil/civil-debate-processor/pkg/model"

import (
	"context"
	"time"
)

// CompletionRequest is a single chat completion call
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	MaxTokens    int
	Temperature  float32
}

// TextCompleter is the interface to the text completion oracle
type TextCompleter interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// SocialPlatform is the interface to the social platform API. Every call may
// fail and callers degrade instead of aborting.
type SocialPlatform interface {
	// PostCaption returns the caption of a post
	PostCaption(ctx context.Context, postID string) (string, error)
	// CommentReplies returns the replies to a comment in platform order
	CommentReplies(ctx context.Context, commentID string) ([]*Reply, error)
	// PostReply replies to a comment
	PostReply(ctx context.Context, commentID string, text string) (*PostedReply, error)
}

// ModerationEventType is the kind of ledger change published as an event
type ModerationEventType string

const (
	// ModerationEventEntryCreated is published when an entry is saved
	ModerationEventEntryCreated ModerationEventType = "entry_created"

	// ModerationEventEntryPosted is published when an entry's reply is posted
	ModerationEventEntryPosted ModerationEventType = "entry_posted"

	// ModerationEventPostFailed is published when posting an entry fails
	ModerationEventPostFailed ModerationEventType = "post_failed"
)

// ModerationEvent is a ledger change notification
type ModerationEvent struct {
	ID        string              `json:"id"`
	Type      ModerationEventType `json:"type"`
	AccountID string              `json:"account_id,omitempty"`
	EntryID   string              `json:"entry_id"`
	CommentID string              `json:"comment_id"`
	Status    ModerationStatus    `json:"status"`
	Posted    bool                `json:"posted"`
	Timestamp time.Time           `json:"timestamp"`
}

// ModerationEventPublisher is the interface to publish ledger changes
type ModerationEventPublisher interface {
	PublishModerationEvent(ctx context.Context, event *ModerationEvent) error
}
