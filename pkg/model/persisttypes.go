// Package model contains the general data models and interfaces for the
// debate processor.
package model // import "github.com/joincivil/civil-debate-processor/pkg/model"

import (
	"context"
	"errors"
)

var (
	// ErrDocumentNotFound is returned by a StateStore when no document exists
	// for a key
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEntryNotFound is returned by moderator actions on an unknown entry id
	ErrEntryNotFound = errors.New("moderation entry not found")

	// ErrInvalidTransition is returned by moderator actions the entry's status
	// does not allow
	ErrInvalidTransition = errors.New("invalid moderation status transition")
)

// StateStore is key scoped document storage. Write fully overwrites the
// document at the key.
type StateStore interface {
	// Read returns the document at key or ErrDocumentNotFound
	Read(ctx context.Context, key string) ([]byte, error)
	// Write stores the document at key
	Write(ctx context.Context, key string, doc []byte) error
}

// CommentQueuePersister is the interface to the pending comment queue
type CommentQueuePersister interface {
	// PendingComments returns the queued comments in arrival order
	PendingComments(ctx context.Context) ([]*Comment, error)
	// AppendPendingComment adds a comment to the end of the queue
	AppendPendingComment(ctx context.Context, comment *Comment) error
	// ClearPendingComments empties the queue
	ClearPendingComments(ctx context.Context) error
}

// PostedIDPersister is the interface to the set of comment ids that have
// received a reply
type PostedIDPersister interface {
	// PostedIDs returns all posted comment ids
	PostedIDs(ctx context.Context) ([]string, error)
	// IsPosted returns true if a reply was posted to the comment
	IsPosted(ctx context.Context, commentID string) (bool, error)
	// AddPostedID records a reply to the comment
	AddPostedID(ctx context.Context, commentID string) error
}

// ModePersister is the interface to the account's auto post flag
type ModePersister interface {
	// AutoMode returns true if new entries are created approved
	AutoMode(ctx context.Context) (bool, error)
	// SetAutoMode sets the auto post flag
	SetAutoMode(ctx context.Context, auto bool) error
}

// PromptPersister is the interface to operator edited prompt templates
type PromptPersister interface {
	// Prompt returns the stored template for name, or "" if none is stored
	Prompt(ctx context.Context, name string) (string, error)
	// Prompts returns all stored templates keyed by name
	Prompts(ctx context.Context) (map[string]string, error)
	// SavePrompt stores the template for name
	SavePrompt(ctx context.Context, name string, content string) error
}

// ArticlePersister is the interface to the account's articles
type ArticlePersister interface {
	// Articles returns the articles in priority order
	Articles(ctx context.Context) ([]*Article, error)
	// ArticleByID returns the article with the id or ErrDocumentNotFound
	ArticleByID(ctx context.Context, id string) (*Article, error)
	// SaveArticle creates or replaces an article
	SaveArticle(ctx context.Context, article *Article) error
	// DeleteArticle removes an article
	DeleteArticle(ctx context.Context, id string) (bool, error)
}

// AccountPersister is the interface to the account registry
type AccountPersister interface {
	// Accounts returns all registered accounts
	Accounts(ctx context.Context) ([]*Account, error)
	// SaveAccount creates or replaces an account
	SaveAccount(ctx context.Context, account *Account) error
	// RemoveAccount removes an account
	RemoveAccount(ctx context.Context, id string) (bool, error)
}

// ModerationLedger is the append only log of drafted responses
type ModerationLedger interface {
	// Save appends the entry and returns its assigned id
	Save(ctx context.Context, entry *ModerationEntry) (string, error)
	// Update merges the update into the entry with id; unknown ids are a no-op
	Update(ctx context.Context, id string, update *EntryUpdate) error
	// Entries returns all entries in append order
	Entries(ctx context.Context) ([]*ModerationEntry, error)
}

// NoMatchLog is the append only log of skipped comments
type NoMatchLog interface {
	// Save appends the record and returns its assigned id
	Save(ctx context.Context, record *NoMatchRecord) (string, error)
	// Records returns all records in append order
	Records(ctx context.Context) ([]*NoMatchRecord, error)
}
