package postgres // import "github.com/joincivil/civil-debate-processor/pkg/persistence/postgres"

import (
	"fmt"
)

const (
	// StateDocumentTableName is the name of the state document table
	StateDocumentTableName = "state_document"
)

// StateDocumentSchema returns the query to create the state document table
func StateDocumentSchema() string {
	return StateDocumentSchemaString(StateDocumentTableName)
}

// StateDocumentSchemaString returns the query to create this table
func StateDocumentSchemaString(tableName string) string {
	schema := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s(
            doc_key TEXT PRIMARY KEY,
            body TEXT NOT NULL,
            last_updated_timestamp BIGINT
        );
    `, tableName)
	return schema
}

// StateDocument is the model definition for the state document table
type StateDocument struct {
	DocKey string `db:"doc_key"`

	Body string `db:"body"`

	LastUpdatedDateTs int64 `db:"last_updated_timestamp"`
}

// NewStateDocument creates a StateDocument model for the DB
func NewStateDocument(key string, body []byte, ts int64) *StateDocument {
	return &StateDocument{
		DocKey:            key,
		Body:              string(body),
		LastUpdatedDateTs: ts,
	}
}

// StateDocumentQuery returns the query to get a document by key
func StateDocumentQuery(tableName string) string {
	return fmt.Sprintf( // nolint: gosec
		"SELECT doc_key, body, last_updated_timestamp FROM %s WHERE doc_key=$1;",
		tableName,
	)
}

// UpsertStateDocumentQuery returns the query to insert or replace a document
func UpsertStateDocumentQuery(tableName string) string {
	return fmt.Sprintf(`
        INSERT INTO %s (doc_key, body, last_updated_timestamp)
        VALUES (:doc_key, :body, :last_updated_timestamp)
        ON CONFLICT (doc_key) DO UPDATE
        SET body = EXCLUDED.body, last_updated_timestamp = EXCLUDED.last_updated_timestamp;
    `, tableName) // nolint: gosec
}

// StateDocumentKeysQuery returns the query to list the keys matching a LIKE
// pattern
func StateDocumentKeysQuery(tableName string) string {
	return fmt.Sprintf( // nolint: gosec
		`SELECT doc_key FROM %s WHERE doc_key LIKE $1 ESCAPE '\' ORDER BY doc_key;`,
		tableName,
	)
}
