package model // import "github.com/joincivil/civil-debate-processor/pkg/model"

import (
	"time"
)

const (
	// ReasonCommentNotRelevant is recorded when the comment level check fails
	ReasonCommentNotRelevant = "Comment not relevant to article topic"

	// ReasonNoArticleMatched is recorded when no article is selected
	ReasonNoArticleMatched = "No relevant article found for this comment"

	// ReasonPostNotRelevant is recorded when the post caption is off topic
	ReasonPostNotRelevant = "Post not relevant to article topic"

	// ReasonOwnComment is recorded for comments written by the bot account
	ReasonOwnComment = "Comment authored by bot account"

	// ReasonAlreadyReplied is recorded for comments already in the posted-id set
	ReasonAlreadyReplied = "Comment already replied to"

	// ReasonProcessingErrorPrefix prefixes the reason for comments dropped
	// because a collaborator failed
	ReasonProcessingErrorPrefix = "Processing error: "
)

// NoMatchRecord records a comment that was filtered out before a response
// was drafted
type NoMatchRecord struct {
	ID          string    `json:"id"`
	CommentID   string    `json:"comment_id"`
	PostID      string    `json:"post_id"`
	Username    string    `json:"username"`
	CommentText string    `json:"comment_text"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewNoMatchRecord returns a record for the comment with the given reason.
// The ID is assigned by the log on save.
func NewNoMatchRecord(comment *Comment, reason string, ts time.Time) *NoMatchRecord {
	return &NoMatchRecord{
		CommentID:   comment.CommentID,
		PostID:      comment.PostID,
		Username:    comment.Username,
		CommentText: comment.Text,
		Reason:      reason,
		Timestamp:   ts,
	}
}
