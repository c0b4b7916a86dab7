package persistence_test

import (
	"context"
	"testing"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
)

func testStateStore(p model.StateStore) {
}

func testCommentQueuePersister(p model.CommentQueuePersister) {
}

func testPostedIDPersister(p model.PostedIDPersister) {
}

func testModePersister(p model.ModePersister) {
}

func testPromptPersister(p model.PromptPersister) {
}

func testArticlePersister(p model.ArticlePersister) {
}

func testAccountPersister(p model.AccountPersister) {
}

func TestNullInterface(t *testing.T) {
	p := &persistence.NullStore{}

	testStateStore(p)
	testStateStore(&persistence.LocalDiskStore{})
	testStateStore(&persistence.GCSStore{})
	testStateStore(&persistence.DatastoreStore{})
	testStateStore(&persistence.PostgresPersister{})
	testStateStore(&persistence.NamespacedStore{})
	testCommentQueuePersister(persistence.NewCommentQueue(p))
	testPostedIDPersister(persistence.NewPostedIDSet(p))
	testModePersister(persistence.NewModeFlag(p, false))
	testPromptPersister(persistence.NewPromptRepository(p))
	testArticlePersister(persistence.NewArticleRepository(p))
	testAccountPersister(persistence.NewAccountRegistry(p))
}

func TestNullStore(t *testing.T) {
	p := &persistence.NullStore{}
	ctx := context.Background()

	err := p.Write(ctx, persistence.ModeKey, []byte(`{"auto_mode":true}`))
	if err != nil {
		t.Errorf("Should not have failed to write: err: %v", err)
	}
	_, err = p.Read(ctx, persistence.ModeKey)
	if !persistence.IsNotFound(err) {
		t.Errorf("Should have returned not found, got: %v", err)
	}

	comments, err := persistence.NewCommentQueue(p).PendingComments(ctx)
	if err != nil {
		t.Errorf("Should not have failed to load comments: err: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("Should have no comments, got %v", len(comments))
	}
}
