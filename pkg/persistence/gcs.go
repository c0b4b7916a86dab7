package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const (
	noCacheControl = "no-cache, no-store, must-revalidate"
)

// NewGCSStore creates a state store backed by a Cloud Storage bucket. Objects
// are named prefix/key. If credentialsFile is empty the default application
// credentials are used.
func NewGCSStore(ctx context.Context, bucket string, prefix string,
	credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs store requires a bucket name")
	}
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "error creating storage client")
	}
	return NewGCSStoreFromClient(client, bucket, prefix), nil
}

// NewGCSStoreFromClient creates a state store from an existing storage client
func NewGCSStoreFromClient(client *storage.Client, bucket string, prefix string) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// GCSStore keeps each document as an object in a Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// Read returns the document at key
func (g *GCSStore) Read(ctx context.Context, key string) ([]byte, error) {
	name := g.objectName(key)
	reader, err := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, errors.Wrapf(err, "error opening gs://%v/%v", g.bucket, name)
	}
	defer reader.Close() // nolint: errcheck

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading gs://%v/%v", g.bucket, name)
	}
	return data, nil
}

// Write replaces the document at key
func (g *GCSStore) Write(ctx context.Context, key string, doc []byte) error {
	name := g.objectName(key)
	writer := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = contentTypeForKey(key)
	writer.CacheControl = noCacheControl

	_, err := writer.Write(doc)
	if err != nil {
		_ = writer.Close() // nolint: gosec
		return errors.Wrapf(err, "error writing gs://%v/%v", g.bucket, name)
	}
	err = writer.Close()
	if err != nil {
		return errors.Wrapf(err, "error finalizing gs://%v/%v", g.bucket, name)
	}
	return nil
}

// Keys returns the stored keys that start with prefix
func (g *GCSStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	root := ""
	if g.prefix != "" {
		root = g.prefix + "/"
	}
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: root + prefix})
	keys := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error listing gs://%v/%v", g.bucket, root+prefix)
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, root))
	}
	return keys, nil
}

// Close closes the underlying storage client
func (g *GCSStore) Close() error {
	return g.client.Close()
}

func (g *GCSStore) objectName(key string) string {
	if g.prefix == "" {
		return key
	}
	return path.Join(g.prefix, key)
}

func contentTypeForKey(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
