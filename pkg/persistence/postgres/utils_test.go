package postgres_test

import (
	"strings"
	"testing"

	"github.com/joincivil/civil-debate-processor/pkg/persistence/postgres"
)

func TestLikePrefixPattern(t *testing.T) {
	patterns := map[string]string{
		"":                 "%",
		"accounts/":        "accounts/%",
		"accounts/acct_1/": `accounts/acct\_1/%`,
		"100%":             `100\%%`,
		`back\slash`:       `back\\slash%`,
	}
	for prefix, expected := range patterns {
		pattern := postgres.LikePrefixPattern(prefix)
		if pattern != expected {
			t.Errorf("Pattern for %q should be %q but is %q", prefix, expected, pattern)
		}
	}
}

func TestStateDocumentSchemaString(t *testing.T) {
	schema := postgres.StateDocumentSchemaString("state_document_test")
	if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS state_document_test") {
		t.Errorf("Schema should create the named table: %v", schema)
	}
	if !strings.Contains(schema, "doc_key TEXT PRIMARY KEY") {
		t.Errorf("Schema should key on doc_key: %v", schema)
	}
}

func TestNewStateDocument(t *testing.T) {
	doc := postgres.NewStateDocument("mode.json", []byte(`{"auto_mode":true}`), 100)
	if doc.DocKey != "mode.json" {
		t.Errorf("Key is not what it should be, %v", doc.DocKey)
	}
	if doc.Body != `{"auto_mode":true}` {
		t.Errorf("Body is not what it should be, %v", doc.Body)
	}
	if doc.LastUpdatedDateTs != 100 {
		t.Errorf("Timestamp is not what it should be, %v", doc.LastUpdatedDateTs)
	}
}
