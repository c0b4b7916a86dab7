package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

type articlesDocument struct {
	Articles []*model.Article `json:"articles"`
}

// NewArticleRepository returns the article repository kept in store
func NewArticleRepository(store model.StateStore) *ArticleRepository {
	return &ArticleRepository{store: store}
}

// ArticleRepository holds an account's articles in priority order
type ArticleRepository struct {
	store model.StateStore
	mutex sync.Mutex
}

// Articles returns the stored articles in priority order
func (a *ArticleRepository) Articles(ctx context.Context) ([]*model.Article, error) {
	doc := &articlesDocument{}
	_, err := LoadDocument(ctx, a.store, ArticlesKey, doc)
	if err != nil {
		return nil, err
	}
	if doc.Articles == nil {
		return []*model.Article{}, nil
	}
	return doc.Articles, nil
}

// ArticleByID returns the article with id or ErrDocumentNotFound
func (a *ArticleRepository) ArticleByID(ctx context.Context, id string) (*model.Article, error) {
	articles, err := a.Articles(ctx)
	if err != nil {
		return nil, err
	}
	for _, article := range articles {
		if article.ID == id {
			return article, nil
		}
	}
	return nil, model.ErrDocumentNotFound
}

// SaveArticle replaces the article with the same id or appends it
func (a *ArticleRepository) SaveArticle(ctx context.Context, article *model.Article) error {
	if article.ID == "" {
		return errors.New("article requires an id")
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	articles, err := a.Articles(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range articles {
		if existing.ID == article.ID {
			articles[i] = article
			replaced = true
			break
		}
	}
	if !replaced {
		articles = append(articles, article)
	}
	return SaveDocument(ctx, a.store, ArticlesKey, &articlesDocument{Articles: articles})
}

// DeleteArticle removes the article with id. Returns false if there was no
// such article.
func (a *ArticleRepository) DeleteArticle(ctx context.Context, id string) (bool, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	articles, err := a.Articles(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]*model.Article, 0, len(articles))
	for _, existing := range articles {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(articles) {
		return false, nil
	}
	err = SaveDocument(ctx, a.store, ArticlesKey, &articlesDocument{Articles: kept})
	return err == nil, err
}
