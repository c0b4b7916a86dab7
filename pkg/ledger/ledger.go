// Package ledger contains the moderation ledger, the append only record of
// every drafted response and its review outcome, and the log of comments
// skipped before drafting.
package ledger // import "github.com/joincivil/civil-debate-processor/pkg/ledger"

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
)

const (
	defaultRejectionReason = "Rejected by moderator"
)

type auditLogDocument struct {
	Version string                   `json:"version"`
	Entries []*model.ModerationEntry `json:"entries"`
}

// NewModerationLedger returns the ledger kept in store
func NewModerationLedger(store model.StateStore) *ModerationLedger {
	return &ModerationLedger{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ModerationLedger is the append only store of processing outcomes. Entries
// are never deleted and ids are never reused.
type ModerationLedger struct {
	store model.StateStore
	mutex sync.Mutex
	now   func() time.Time
}

// Save appends the entry, assigning it the next id in the sequence
func (l *ModerationLedger) Save(ctx context.Context, entry *model.ModerationEntry) (string, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(doc.Entries))
	for i, existing := range doc.Entries {
		ids[i] = existing.ID
	}
	entry.ID = nextSequenceID(entryIDPrefix, ids)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	if entry.CitationsUsed == nil {
		entry.CitationsUsed = []string{}
	}
	if entry.ValidationErrors == nil {
		entry.ValidationErrors = []string{}
	}
	doc.Entries = append(doc.Entries, entry)

	err = l.save(ctx, doc)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Entries returns all entries in append order
func (l *ModerationLedger) Entries(ctx context.Context) ([]*model.ModerationEntry, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Entry returns the entry with id or ErrEntryNotFound
func (l *ModerationLedger) Entry(ctx context.Context, id string) (*model.ModerationEntry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, model.ErrEntryNotFound
}

// ApprovedUnposted returns the entries waiting to be posted
func (l *ModerationLedger) ApprovedUnposted(ctx context.Context) ([]*model.ModerationEntry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}
	postable := []*model.ModerationEntry{}
	for _, entry := range entries {
		if entry.Postable() {
			postable = append(postable, entry)
		}
	}
	return postable, nil
}

// Update merges the update into the entry with id. An unknown id is a
// no-op, so actions racing a rotated ledger do not fail.
func (l *ModerationLedger) Update(ctx context.Context, id string, update *model.EntryUpdate) error {
	err := l.modify(ctx, id, func(entry *model.ModerationEntry) error {
		update.Apply(entry)
		return nil
	})
	if errors.Is(err, model.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Approve moves a pending entry to approved
func (l *ModerationLedger) Approve(ctx context.Context, id string) error {
	return l.modify(ctx, id, func(entry *model.ModerationEntry) error {
		if entry.Status != model.StatusPendingReview {
			return errors.Wrapf(model.ErrInvalidTransition, "cannot approve %v entry %v",
				entry.Status, id)
		}
		now := l.now()
		status := model.StatusApproved
		(&model.EntryUpdate{Status: &status, ApprovedAt: &now}).Apply(entry)
		return nil
	})
}

// Reject moves a pending entry to rejected, recording the reason
func (l *ModerationLedger) Reject(ctx context.Context, id string, reason string) error {
	if reason == "" {
		reason = defaultRejectionReason
	}
	return l.modify(ctx, id, func(entry *model.ModerationEntry) error {
		if entry.Status != model.StatusPendingReview {
			return errors.Wrapf(model.ErrInvalidTransition, "cannot reject %v entry %v",
				entry.Status, id)
		}
		now := l.now()
		status := model.StatusRejected
		(&model.EntryUpdate{
			Status:          &status,
			RejectedAt:      &now,
			RejectionReason: &reason,
		}).Apply(entry)
		return nil
	})
}

// Edit replaces the response text of an entry that has not been posted.
// The status is unchanged.
func (l *ModerationLedger) Edit(ctx context.Context, id string, text string) error {
	return l.modify(ctx, id, func(entry *model.ModerationEntry) error {
		editable := entry.Status == model.StatusPendingReview || entry.Status == model.StatusApproved
		if !editable || entry.Posted {
			return errors.Wrapf(model.ErrInvalidTransition, "cannot edit %v entry %v",
				entry.Status, id)
		}
		now := l.now()
		(&model.EntryUpdate{GeneratedResponse: &text, EditedAt: &now}).Apply(entry)
		return nil
	})
}

func (l *ModerationLedger) modify(ctx context.Context, id string,
	fn func(entry *model.ModerationEntry) error) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return err
	}
	for _, entry := range doc.Entries {
		if entry.ID != id {
			continue
		}
		err = fn(entry)
		if err != nil {
			return err
		}
		return l.save(ctx, doc)
	}
	return model.ErrEntryNotFound
}

func (l *ModerationLedger) load(ctx context.Context) (*auditLogDocument, error) {
	doc := &auditLogDocument{}
	_, err := persistence.LoadDocument(ctx, l.store, persistence.AuditLogKey, doc)
	if err != nil {
		return nil, errors.Wrap(err, "error loading moderation ledger")
	}
	if doc.Version == "" {
		doc.Version = persistence.DocumentVersion
	}
	if doc.Entries == nil {
		doc.Entries = []*model.ModerationEntry{}
	}
	return doc, nil
}

func (l *ModerationLedger) save(ctx context.Context, doc *auditLogDocument) error {
	err := persistence.SaveDocument(ctx, l.store, persistence.AuditLogKey, doc)
	if err != nil {
		return errors.Wrap(err, "error saving moderation ledger")
	}
	return nil
}
