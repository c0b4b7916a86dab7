package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const (
	accountNamespaceRoot = "accounts"
)

// NewAccountStore returns a store scoped to the account's namespace. An
// empty account id returns the store unchanged.
func NewAccountStore(store model.StateStore, accountID string) (model.StateStore, error) {
	if accountID == "" {
		return store, nil
	}
	if strings.ContainsAny(accountID, `/\`) || accountID == "." || accountID == ".." {
		return nil, errors.Errorf("invalid account id: %q", accountID)
	}
	return NewNamespacedStore(store, path.Join(accountNamespaceRoot, accountID)), nil
}

// NewNamespacedStore returns a store that prefixes every key with namespace
func NewNamespacedStore(store model.StateStore, namespace string) *NamespacedStore {
	return &NamespacedStore{
		store:     store,
		namespace: strings.Trim(namespace, "/"),
	}
}

// NamespacedStore scopes a state store to a key prefix
type NamespacedStore struct {
	store     model.StateStore
	namespace string
}

// Keys returns the keys under prefix with the namespace removed. The wrapped
// store must be a KeyLister.
func (n *NamespacedStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, ok := n.store.(KeyLister)
	if !ok {
		return nil, errors.New("store does not support listing keys")
	}
	root := n.namespace + "/"
	keys, err := lister.Keys(ctx, root+prefix)
	if err != nil {
		return nil, err
	}
	trimmed := make([]string, 0, len(keys))
	for _, key := range keys {
		trimmed = append(trimmed, strings.TrimPrefix(key, root))
	}
	return trimmed, nil
}

// Read returns the document at the namespaced key
func (n *NamespacedStore) Read(ctx context.Context, key string) ([]byte, error) {
	return n.store.Read(ctx, path.Join(n.namespace, key))
}

// Write replaces the document at the namespaced key
func (n *NamespacedStore) Write(ctx context.Context, key string, doc []byte) error {
	return n.store.Write(ctx, path.Join(n.namespace, key), doc)
}
