// Package prompt resolves prompt templates and fills their placeholders.
// Operator edited overrides take precedence over the bundled defaults.
package prompt // import "github.com/joincivil/civil-debate-processor/pkg/prompt"

import (
	"context"
	"embed"
	"io/fs"
	"strings"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
)

// Names of the bundled templates
const (
	DebateTemplate           = "debate_prompt.txt"
	DebateUnnumberedTemplate = "debate_prompt_unnumbered.txt"
	PostRelevanceTemplate    = "post_relevance_prompt.txt"
	CommentRelevanceTemplate = "comment_relevance_prompt.txt"
	TopicRelevanceTemplate   = "topic_relevance_prompt.txt"
)

//go:embed templates/*.txt
var bundledTemplates embed.FS

// DefaultTemplates returns the bundled templates
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(bundledTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewLoader returns a loader that checks overrides before the bundled
// templates. overrides may be nil.
func NewLoader(overrides model.PromptPersister) *Loader {
	return NewLoaderWithDefaults(overrides, DefaultTemplates())
}

// NewLoaderWithDefaults returns a loader with its own set of default templates
func NewLoaderWithDefaults(overrides model.PromptPersister, defaults fs.FS) *Loader {
	return &Loader{
		overrides: overrides,
		defaults:  defaults,
	}
}

// Loader resolves templates by name
type Loader struct {
	overrides model.PromptPersister
	defaults  fs.FS
}

// Load returns the template for name. An override stored under the name
// without its extension wins; an empty override falls back to the default.
func (l *Loader) Load(ctx context.Context, name string) (string, error) {
	if l.overrides != nil {
		content, err := l.overrides.Prompt(ctx, persistence.PromptName(name))
		if err != nil {
			return "", errors.Wrapf(err, "error loading prompt override %v", name)
		}
		if strings.TrimSpace(content) != "" {
			return content, nil
		}
	}
	return l.Default(name)
}

// Default returns the bundled template for name
func (l *Loader) Default(name string) (string, error) {
	file := persistence.PromptName(name) + ".txt"
	data, err := fs.ReadFile(l.defaults, file)
	if err != nil {
		return "", errors.Wrapf(err, "no template named %v", name)
	}
	return string(data), nil
}
