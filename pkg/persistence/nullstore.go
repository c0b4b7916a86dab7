package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// NullStore is a state store that holds nothing. Reads always report a
// missing document and writes are dropped.
type NullStore struct{}

// Read returns ErrDocumentNotFound
func (n *NullStore) Read(ctx context.Context, key string) ([]byte, error) {
	return nil, model.ErrDocumentNotFound
}

// Write does nothing
func (n *NullStore) Write(ctx context.Context, key string, doc []byte) error {
	return nil
}
