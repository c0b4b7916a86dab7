package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"sync"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

type pendingCommentsDocument struct {
	Version  string           `json:"version"`
	Comments []*model.Comment `json:"comments"`
}

// NewCommentQueue returns the pending comment queue kept in store
func NewCommentQueue(store model.StateStore) *CommentQueue {
	return &CommentQueue{store: store}
}

// CommentQueue is the pending comment queue
type CommentQueue struct {
	store model.StateStore
	mutex sync.Mutex
}

// PendingComments returns the queued comments in arrival order
func (q *CommentQueue) PendingComments(ctx context.Context) ([]*model.Comment, error) {
	doc, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Comments, nil
}

// AppendPendingComment adds a comment to the end of the queue. A comment
// already in the queue is not added again.
func (q *CommentQueue) AppendPendingComment(ctx context.Context, comment *model.Comment) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	doc, err := q.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range doc.Comments {
		if existing.CommentID == comment.CommentID {
			return nil
		}
	}
	doc.Comments = append(doc.Comments, comment)
	return SaveDocument(ctx, q.store, PendingCommentsKey, doc)
}

// ClearPendingComments empties the queue
func (q *CommentQueue) ClearPendingComments(ctx context.Context) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	doc := &pendingCommentsDocument{
		Version:  DocumentVersion,
		Comments: []*model.Comment{},
	}
	return SaveDocument(ctx, q.store, PendingCommentsKey, doc)
}

func (q *CommentQueue) load(ctx context.Context) (*pendingCommentsDocument, error) {
	doc := &pendingCommentsDocument{}
	_, err := LoadDocument(ctx, q.store, PendingCommentsKey, doc)
	if err != nil {
		return nil, err
	}
	if doc.Version == "" {
		doc.Version = DocumentVersion
	}
	if doc.Comments == nil {
		doc.Comments = []*model.Comment{}
	}
	return doc, nil
}
