package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const (
	// DefaultDatastoreKind is the kind used for state documents
	DefaultDatastoreKind = "StateDocument"
)

// stateDocumentEntity is a state document as stored in Datastore. Entities
// are capped at about 1 MiB, which bounds the size of any one document,
// the moderation ledger included.
type stateDocumentEntity struct {
	Body      []byte    `datastore:"body,noindex"`
	UpdatedAt time.Time `datastore:"updated_at"`
}

// NewDatastoreStore creates a state store backed by Cloud Datastore. If
// credentialsFile is empty the default application credentials are used.
func NewDatastoreStore(ctx context.Context, projectID string, namespace string,
	kind string, credentialsFile string) (*DatastoreStore, error) {
	if projectID == "" {
		return nil, errors.New("datastore store requires a project id")
	}
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := datastore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "error creating datastore client")
	}
	return NewDatastoreStoreFromClient(client, namespace, kind), nil
}

// NewDatastoreStoreFromClient creates a state store from an existing client
func NewDatastoreStoreFromClient(client *datastore.Client, namespace string,
	kind string) *DatastoreStore {
	if kind == "" {
		kind = DefaultDatastoreKind
	}
	return &DatastoreStore{
		client:    client,
		namespace: namespace,
		kind:      kind,
	}
}

// DatastoreStore keeps each document as an entity named by its key
type DatastoreStore struct {
	client    *datastore.Client
	namespace string
	kind      string
}

// Read returns the document at key
func (d *DatastoreStore) Read(ctx context.Context, key string) ([]byte, error) {
	entity := &stateDocumentEntity{}
	err := d.client.Get(ctx, d.datastoreKey(key), entity)
	if err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, errors.Wrapf(err, "error getting %v", key)
	}
	return entity.Body, nil
}

// Write replaces the document at key
func (d *DatastoreStore) Write(ctx context.Context, key string, doc []byte) error {
	entity := &stateDocumentEntity{
		Body:      doc,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := d.client.Put(ctx, d.datastoreKey(key), entity)
	if err != nil {
		return errors.Wrapf(err, "error putting %v", key)
	}
	return nil
}

// Keys returns the stored keys that start with prefix. Keys are returned in
// key order, so iteration stops at the first key past the prefix.
func (d *DatastoreStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := datastore.NewQuery(d.kind).Namespace(d.namespace).KeysOnly()
	if prefix != "" {
		query = query.FilterField("__key__", ">=", d.datastoreKey(prefix))
	}
	it := d.client.Run(ctx, query)
	keys := []string{}
	for {
		dsKey, err := it.Next(nil)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "error iterating document keys")
		}
		if !strings.HasPrefix(dsKey.Name, prefix) {
			break
		}
		keys = append(keys, dsKey.Name)
	}
	return keys, nil
}

// Close closes the underlying datastore client
func (d *DatastoreStore) Close() error {
	return d.client.Close()
}

func (d *DatastoreStore) datastoreKey(key string) *datastore.Key {
	dsKey := datastore.NameKey(d.kind, key, nil)
	dsKey.Namespace = d.namespace
	return dsKey
}
