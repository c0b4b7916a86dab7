// Package composer drafts debate replies from an article and a comment
package composer // import "github.com/joincivil/civil-debate-processor/pkg/composer"

import (
	"context"
	"strings"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/prompt"
)

const (
	systemPrompt = "You are a debate assistant. You reply to social media comments with " +
		"well reasoned arguments grounded only in the provided article."
)

// Variables are the values substituted into the debate template
type Variables struct {
	Topic         string
	ArticleText   string
	PostCaption   string
	Username      string
	CommentText   string
	ThreadContext string
}

func (v *Variables) templateVars() map[string]string {
	return map[string]string{
		"TOPIC":             v.Topic,
		"FULL_ARTICLE_TEXT": v.ArticleText,
		"POST_CAPTION":      v.PostCaption,
		"USERNAME":          v.Username,
		"COMMENT_TEXT":      v.CommentText,
		"THREAD_CONTEXT":    v.ThreadContext,
	}
}

// TemplateLoader resolves a prompt template by name
type TemplateLoader interface {
	Load(ctx context.Context, name string) (string, error)
}

// NewComposerParams are the params to NewComposer
type NewComposerParams struct {
	Completer   model.TextCompleter
	Templates   TemplateLoader
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewComposer returns a new response composer
func NewComposer(params *NewComposerParams) *Composer {
	return &Composer{
		completer:   params.Completer,
		templates:   params.Templates,
		model:       params.Model,
		maxTokens:   params.MaxTokens,
		temperature: params.Temperature,
	}
}

// Composer fills the debate template and asks the oracle for a reply
type Composer struct {
	completer   model.TextCompleter
	templates   TemplateLoader
	model       string
	maxTokens   int
	temperature float32
}

// TemplateName returns the debate template used for numbered or
// unnumbered articles
func TemplateName(numbered bool) string {
	if numbered {
		return prompt.DebateTemplate
	}
	return prompt.DebateUnnumberedTemplate
}

// Compose drafts a reply. The returned text is trimmed of surrounding
// whitespace.
func (c *Composer) Compose(ctx context.Context, vars *Variables, numbered bool) (string, error) {
	name := TemplateName(numbered)
	template, err := c.templates.Load(ctx, name)
	if err != nil {
		return "", errors.Wrapf(err, "error loading %v", name)
	}
	userPrompt := prompt.Fill(template, vars.templateVars())
	log.V(2).Infof("Composing reply to @%v with %v", vars.Username, name)

	response, err := c.completer.Complete(ctx, &model.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Model:        c.model,
		MaxTokens:    c.maxTokens,
		Temperature:  c.temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "error generating response")
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", errors.New("generated response was empty")
	}
	return response, nil
}
