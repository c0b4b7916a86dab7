// Package model contains the general data models and interfaces for the
// debate processor.
package model // import "github.com/joincivil/civil-debate-processor/pkg/model"

import (
	"strings"
)

// Comment represents a comment captured from the social platform that is
// waiting in the pending queue for a batch run. Timestamps are kept as the
// strings the ingestion side wrote.
type Comment struct {
	CommentID  string `json:"comment_id"`
	PostID     string `json:"post_id"`
	Username   string `json:"username"`
	UserID     string `json:"user_id"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
	ReceivedAt string `json:"received_at"`
}

// AuthoredBy returns true if the comment was written by the given username.
// Usernames are compared case insensitively and without a leading "@".
func (c *Comment) AuthoredBy(username string) bool {
	if username == "" {
		return false
	}
	return strings.EqualFold(
		strings.TrimPrefix(c.Username, "@"),
		strings.TrimPrefix(username, "@"),
	)
}
