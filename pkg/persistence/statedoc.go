// Package persistence contains components to interact with the state store
package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// Keys of the documents kept in a state store
const (
	PendingCommentsKey = "pending_comments.json"
	AuditLogKey        = "audit_log.json"
	NoMatchLogKey      = "no_match_log.json"
	PostedIDsKey       = "posted_ids.txt"
	ModeKey            = "mode.json"
	PromptsKey         = "prompts.json"
	ArticlesKey        = "articles.json"
	AccountsKey        = "accounts.json"

	// DocumentVersion is written to the versioned documents
	DocumentVersion = "1.0"
)

// IsNotFound returns true if the error means there is no document at a key
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrDocumentNotFound)
}

// LoadDocument reads the JSON document at key into v. Returns false and
// leaves v untouched if there is no document. A document that cannot be
// decoded is an error.
func LoadDocument(ctx context.Context, store model.StateStore, key string,
	v interface{}) (bool, error) {
	data, err := store.Read(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "error reading %v", key)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	err = json.Unmarshal(data, v)
	if err != nil {
		return false, errors.Wrapf(err, "corrupt document %v", key)
	}
	return true, nil
}

// SaveDocument writes v as an indented JSON document at key
func SaveDocument(ctx context.Context, store model.StateStore, key string,
	v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "error encoding %v", key)
	}
	err = store.Write(ctx, key, data)
	if err != nil {
		return errors.Wrapf(err, "error writing %v", key)
	}
	return nil
}
