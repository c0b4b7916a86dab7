package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence/postgres"

	// driver for postgresql
	_ "github.com/lib/pq"
)

// NewPostgresPersister creates a new postgres persister
func NewPostgresPersister(host string, port int, user string, password string,
	dbname string) (*PostgresPersister, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	db, err := sqlx.Connect("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("Error connecting to sqlx: %v", err)
	}
	return NewPostgresPersisterFromSqlx(db), nil
}

// NewPostgresPersisterFromSqlx creates a new postgres persister from an
// existing sqlx.DB
func NewPostgresPersisterFromSqlx(db *sqlx.DB) *PostgresPersister {
	return &PostgresPersister{
		db:        db,
		tableName: postgres.StateDocumentTableName,
	}
}

// PostgresPersister is a state store that keeps documents in a single
// key/document table
type PostgresPersister struct {
	db        *sqlx.DB
	tableName string
}

// CreateTables creates the tables for the processor if they don't exist
func (p *PostgresPersister) CreateTables() error {
	_, err := p.db.Exec(postgres.StateDocumentSchemaString(p.tableName))
	if err != nil {
		return fmt.Errorf("Error creating %v table in postgres: %v", p.tableName, err)
	}
	return nil
}

// Read returns the document at key
func (p *PostgresPersister) Read(ctx context.Context, key string) ([]byte, error) {
	dbDoc := postgres.StateDocument{}
	err := p.db.GetContext(ctx, &dbDoc, postgres.StateDocumentQuery(p.tableName), key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrDocumentNotFound
		}
		return nil, errors.Wrapf(err, "error getting document %v", key)
	}
	return []byte(dbDoc.Body), nil
}

// Write replaces the document at key
func (p *PostgresPersister) Write(ctx context.Context, key string, doc []byte) error {
	dbDoc := postgres.NewStateDocument(key, doc, time.Now().UTC().Unix())
	_, err := p.db.NamedExecContext(ctx, postgres.UpsertStateDocumentQuery(p.tableName), dbDoc)
	if err != nil {
		return errors.Wrapf(err, "error saving document %v", key)
	}
	return nil
}

// Keys returns the stored keys that start with prefix
func (p *PostgresPersister) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := p.db.SelectContext(
		ctx,
		&keys,
		postgres.StateDocumentKeysQuery(p.tableName),
		postgres.LikePrefixPattern(prefix),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error listing document keys")
	}
	return keys, nil
}

// Close closes the db connection
func (p *PostgresPersister) Close() error {
	return p.db.Close()
}
