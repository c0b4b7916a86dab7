package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// NewPostedIDSet returns the posted comment id set kept in store
func NewPostedIDSet(store model.StateStore) *PostedIDSet {
	return &PostedIDSet{store: store}
}

// PostedIDSet is the set of comment ids that have received a reply. It is
// stored as newline separated, sorted ids.
type PostedIDSet struct {
	store model.StateStore
	mutex sync.Mutex
}

// PostedIDs returns all posted comment ids in sorted order
func (p *PostedIDSet) PostedIDs(ctx context.Context) ([]string, error) {
	ids, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return sortedIDs(ids), nil
}

// IsPosted returns true if the comment id is in the set
func (p *PostedIDSet) IsPosted(ctx context.Context, commentID string) (bool, error) {
	ids, err := p.load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := ids[commentID]
	return ok, nil
}

// AddPostedID adds the comment id to the set
func (p *PostedIDSet) AddPostedID(ctx context.Context, commentID string) error {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return errors.New("cannot add an empty comment id")
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	ids, err := p.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := ids[commentID]; ok {
		return nil
	}
	ids[commentID] = struct{}{}

	data := strings.Join(sortedIDs(ids), "\n") + "\n"
	err = p.store.Write(ctx, PostedIDsKey, []byte(data))
	if err != nil {
		return errors.Wrapf(err, "error writing %v", PostedIDsKey)
	}
	return nil
}

func (p *PostedIDSet) load(ctx context.Context) (map[string]struct{}, error) {
	ids := map[string]struct{}{}
	data, err := p.store.Read(ctx, PostedIDsKey)
	if err != nil {
		if IsNotFound(err) {
			return ids, nil
		}
		return nil, errors.Wrapf(err, "error reading %v", PostedIDsKey)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids[line] = struct{}{}
		}
	}
	return ids, nil
}

func sortedIDs(ids map[string]struct{}) []string {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return sorted
}
