package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

type accountsDocument struct {
	Accounts []*model.Account `json:"accounts"`
}

// NewAccountRegistry returns the account registry kept in store. The
// registry is global, so store should not be account namespaced.
func NewAccountRegistry(store model.StateStore) *AccountRegistry {
	return &AccountRegistry{store: store}
}

// AccountRegistry lists the accounts the bot runs for
type AccountRegistry struct {
	store model.StateStore
	mutex sync.Mutex
}

// Accounts returns all registered accounts
func (r *AccountRegistry) Accounts(ctx context.Context) ([]*model.Account, error) {
	doc := &accountsDocument{}
	_, err := LoadDocument(ctx, r.store, AccountsKey, doc)
	if err != nil {
		return nil, err
	}
	if doc.Accounts == nil {
		return []*model.Account{}, nil
	}
	return doc.Accounts, nil
}

// SaveAccount adds or replaces an account. LoggedInAt defaults to now.
func (r *AccountRegistry) SaveAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		return errors.New("account requires an id")
	}
	if account.LoggedInAt == "" {
		account.LoggedInAt = time.Now().UTC().Format(time.RFC3339)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	accounts, err := r.Accounts(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range accounts {
		if existing.ID == account.ID {
			accounts[i] = account
			replaced = true
			break
		}
	}
	if !replaced {
		accounts = append(accounts, account)
	}
	return SaveDocument(ctx, r.store, AccountsKey, &accountsDocument{Accounts: accounts})
}

// RemoveAccount removes the account with id. Returns false if there was no
// such account.
func (r *AccountRegistry) RemoveAccount(ctx context.Context, id string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	accounts, err := r.Accounts(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]*model.Account, 0, len(accounts))
	for _, existing := range accounts {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(accounts) {
		return false, nil
	}
	err = SaveDocument(ctx, r.store, AccountsKey, &accountsDocument{Accounts: kept})
	return err == nil, err
}

// KeyLister is a state store that can list the keys it holds
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// StoredAccountIDs returns the sorted ids of accounts that have documents in
// their namespace, registered or not
func StoredAccountIDs(ctx context.Context, lister KeyLister) ([]string, error) {
	root := accountNamespaceRoot + "/"
	keys, err := lister.Keys(ctx, root)
	if err != nil {
		return nil, errors.Wrap(err, "error listing account keys")
	}
	seen := map[string]bool{}
	ids := []string{}
	for _, key := range keys {
		parts := strings.SplitN(strings.TrimPrefix(key, root), "/", 2)
		if len(parts) != 2 || parts[0] == "" || seen[parts[0]] {
			continue
		}
		seen[parts[0]] = true
		ids = append(ids, parts[0])
	}
	sort.Strings(ids)
	return ids, nil
}
