package ledger // import "github.com/joincivil/civil-debate-processor/pkg/ledger"

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
)

type noMatchLogDocument struct {
	Version string                 `json:"version"`
	Entries []*model.NoMatchRecord `json:"entries"`
}

// NewNoMatchLog returns the no match log kept in store
func NewNoMatchLog(store model.StateStore) *NoMatchLog {
	return &NoMatchLog{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NoMatchLog is the append only log of comments skipped before a response
// was drafted. It has its own id sequence.
type NoMatchLog struct {
	store model.StateStore
	mutex sync.Mutex
	now   func() time.Time
}

// Save appends the record, assigning it the next id in the sequence
func (n *NoMatchLog) Save(ctx context.Context, record *model.NoMatchRecord) (string, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	doc, err := n.load(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(doc.Entries))
	for i, existing := range doc.Entries {
		ids[i] = existing.ID
	}
	record.ID = nextSequenceID(noMatchIDPrefix, ids)
	if record.Timestamp.IsZero() {
		record.Timestamp = n.now()
	}
	doc.Entries = append(doc.Entries, record)

	err = persistence.SaveDocument(ctx, n.store, persistence.NoMatchLogKey, doc)
	if err != nil {
		return "", errors.Wrap(err, "error saving no match log")
	}
	return record.ID, nil
}

// Records returns all records in append order
func (n *NoMatchLog) Records(ctx context.Context) ([]*model.NoMatchRecord, error) {
	doc, err := n.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func (n *NoMatchLog) load(ctx context.Context) (*noMatchLogDocument, error) {
	doc := &noMatchLogDocument{}
	_, err := persistence.LoadDocument(ctx, n.store, persistence.NoMatchLogKey, doc)
	if err != nil {
		return nil, errors.Wrap(err, "error loading no match log")
	}
	if doc.Version == "" {
		doc.Version = persistence.DocumentVersion
	}
	if doc.Entries == nil {
		doc.Entries = []*model.NoMatchRecord{}
	}
	return doc, nil
}
