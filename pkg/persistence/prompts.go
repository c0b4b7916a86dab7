package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

type promptsDocument struct {
	Prompts map[string]string `json:"prompts"`
}

// PromptName returns the key a template is stored under: the name without
// a ".txt" extension
func PromptName(name string) string {
	name = strings.TrimSpace(name)
	if path.Ext(name) == ".txt" {
		return strings.TrimSuffix(name, ".txt")
	}
	return name
}

// NewPromptRepository returns the prompt override store kept in store
func NewPromptRepository(store model.StateStore) *PromptRepository {
	return &PromptRepository{store: store}
}

// PromptRepository holds operator edited prompt templates
type PromptRepository struct {
	store model.StateStore
	mutex sync.Mutex
}

// Prompt returns the stored template for name or "" if none is stored
func (p *PromptRepository) Prompt(ctx context.Context, name string) (string, error) {
	prompts, err := p.Prompts(ctx)
	if err != nil {
		return "", err
	}
	return prompts[PromptName(name)], nil
}

// Prompts returns all stored templates
func (p *PromptRepository) Prompts(ctx context.Context) (map[string]string, error) {
	doc := &promptsDocument{}
	_, err := LoadDocument(ctx, p.store, PromptsKey, doc)
	if err != nil {
		return nil, err
	}
	if doc.Prompts == nil {
		doc.Prompts = map[string]string{}
	}
	return doc.Prompts, nil
}

// SavePrompt stores the template for name
func (p *PromptRepository) SavePrompt(ctx context.Context, name string, content string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	prompts, err := p.Prompts(ctx)
	if err != nil {
		return err
	}
	prompts[PromptName(name)] = content
	return SaveDocument(ctx, p.store, PromptsKey, &promptsDocument{Prompts: prompts})
}
