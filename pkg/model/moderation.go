package model // import "github.com/joincivil/civil-debate-processor/pkg/model"

import (
	"time"
)

// ModerationStatus is the review status of a moderation entry
type ModerationStatus string

const (
	// StatusPendingReview is a drafted response waiting for a moderator
	StatusPendingReview ModerationStatus = "pending_review"

	// StatusApproved is a response cleared for posting
	StatusApproved ModerationStatus = "approved"

	// StatusRejected is a response a moderator turned down
	StatusRejected ModerationStatus = "rejected"

	// StatusFailed is a response that did not pass validation
	StatusFailed ModerationStatus = "failed"
)

// Terminal returns true if no moderator action can move an entry out of
// this status
func (s ModerationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusFailed
}

// PostError describes why posting a reply failed. GraphAPIError carries the
// error object returned by the platform, if there was one.
type PostError struct {
	Message       string                 `json:"message"`
	GraphAPIError map[string]interface{} `json:"graph_api_error,omitempty"`
}

// ModerationEntry is a single record in the moderation ledger
type ModerationEntry struct {
	ID                string           `json:"id"`
	CommentID         string           `json:"comment_id"`
	PostID            string           `json:"post_id,omitempty"`
	Username          string           `json:"username,omitempty"`
	CommentText       string           `json:"comment_text"`
	GeneratedResponse string           `json:"generated_response"`
	CitationsUsed     []string         `json:"citations_used"`
	Status            ModerationStatus `json:"status"`
	Timestamp         time.Time        `json:"timestamp"`
	ValidationPassed  bool             `json:"validation_passed"`
	ValidationErrors  []string         `json:"validation_errors"`
	Errors            []string         `json:"errors,omitempty"`
	ArticleUsed       *ArticleRef      `json:"article_used,omitempty"`
	Posted            bool             `json:"posted"`
	PostedAt          *time.Time       `json:"posted_at,omitempty"`
	ReplyID           string           `json:"reply_id,omitempty"`
	PostError         *PostError       `json:"post_error,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	RejectedAt        *time.Time       `json:"rejected_at,omitempty"`
	RejectionReason   string           `json:"rejection_reason,omitempty"`
	EditedAt          *time.Time       `json:"edited_at,omitempty"`
}

// Postable returns true if the entry is approved and has not been posted
func (e *ModerationEntry) Postable() bool {
	return e.Status == StatusApproved && !e.Posted
}

// EntryUpdate is a partial update to a moderation entry. Nil fields are left
// untouched.
type EntryUpdate struct {
	Status            *ModerationStatus
	GeneratedResponse *string
	Posted            *bool
	PostedAt          *time.Time
	ReplyID           *string
	PostError         *PostError
	ClearPostError    bool
	ApprovedAt        *time.Time
	RejectedAt        *time.Time
	RejectionReason   *string
	EditedAt          *time.Time
}

// Apply merges the update into the entry. Once an entry is posted the posting
// fields are fixed, so posted never flips back to false.
func (u *EntryUpdate) Apply(entry *ModerationEntry) {
	if u.Status != nil {
		entry.Status = *u.Status
	}
	if u.GeneratedResponse != nil {
		entry.GeneratedResponse = *u.GeneratedResponse
	}
	if !entry.Posted {
		if u.Posted != nil {
			entry.Posted = *u.Posted
		}
		if u.PostedAt != nil {
			entry.PostedAt = u.PostedAt
		}
		if u.ReplyID != nil {
			entry.ReplyID = *u.ReplyID
		}
	}
	if u.ClearPostError {
		entry.PostError = nil
	}
	if u.PostError != nil {
		entry.PostError = u.PostError
	}
	if u.ApprovedAt != nil {
		entry.ApprovedAt = u.ApprovedAt
	}
	if u.RejectedAt != nil {
		entry.RejectedAt = u.RejectedAt
	}
	if u.RejectionReason != nil {
		entry.RejectionReason = *u.RejectionReason
	}
	if u.EditedAt != nil {
		entry.EditedAt = u.EditedAt
	}
}
