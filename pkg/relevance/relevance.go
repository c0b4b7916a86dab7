// Package relevance decides whether a post or comment is worth a reply and
// which article a comment should be answered from.
package relevance // import "github.com/joincivil/civil-debate-processor/pkg/relevance"

import (
	"context"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/article"
	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/prompt"
)

const (
	systemPrompt = "You are a content relevance checker. Answer YES or NO."

	// oracleMaxTokens only needs room for the verdict and a short reason
	oracleMaxTokens = 50
)

// TemplateLoader resolves a prompt template by name
type TemplateLoader interface {
	Load(ctx context.Context, name string) (string, error)
}

// NewGateParams are the params to NewGate
type NewGateParams struct {
	Completer model.TextCompleter
	Templates TemplateLoader
	Model     string
}

// NewGate returns a new relevance gate
func NewGate(params *NewGateParams) *Gate {
	return &Gate{
		completer: params.Completer,
		templates: params.Templates,
		model:     params.Model,
	}
}

// Gate filters posts and comments with yes/no oracle calls. It holds no
// state between calls.
type Gate struct {
	completer model.TextCompleter
	templates TemplateLoader
	model     string
}

// PostRelevant returns true if the post caption is on the article's topic.
// An empty caption is treated as relevant so a failed caption fetch does not
// block the comment.
func (g *Gate) PostRelevant(ctx context.Context, title string, summary string,
	caption string) (bool, error) {
	if caption == "" {
		return true, nil
	}
	return g.ask(ctx, prompt.PostRelevanceTemplate, map[string]string{
		"ARTICLE_TITLE":   title,
		"ARTICLE_SUMMARY": summary,
		"POST_CAPTION":    caption,
	})
}

// CommentRelevant returns true if the comment is on the article's topic
func (g *Gate) CommentRelevant(ctx context.Context, title string, summary string,
	commentText string) (bool, error) {
	return g.ask(ctx, prompt.CommentRelevanceTemplate, map[string]string{
		"ARTICLE_TITLE":   title,
		"ARTICLE_SUMMARY": summary,
		"COMMENT_TEXT":    commentText,
	})
}

// SelectArticle returns the first article, in the given order, judged on
// topic for the comment, or nil if none is. Articles after the first match
// are never checked. An oracle error on one article is logged and the scan
// moves on; if no article matches, the last such error is returned.
func (g *Gate) SelectArticle(ctx context.Context, articles []*model.Article, caption string,
	commentText string, threadContext string) (*model.Article, error) {
	var lastErr error
	for _, a := range articles {
		meta := article.IndexForArticle(a).Metadata()
		relevant, err := g.ask(ctx, prompt.TopicRelevanceTemplate, map[string]string{
			"ARTICLE_TITLE":   article.DisplayTitle(a, meta),
			"ARTICLE_SUMMARY": meta.Summary,
			"POST_CAPTION":    caption,
			"THREAD_CONTEXT":  threadContext,
			"COMMENT_TEXT":    commentText,
		})
		if err != nil {
			log.Errorf("Error checking relevance of article %v: err: %v", a.ID, err)
			lastErr = err
			continue
		}
		if relevant {
			return a, nil
		}
	}
	return nil, lastErr
}

func (g *Gate) ask(ctx context.Context, templateName string, vars map[string]string) (bool, error) {
	template, err := g.templates.Load(ctx, templateName)
	if err != nil {
		return false, errors.Wrapf(err, "error loading %v", templateName)
	}
	answer, err := g.completer.Complete(ctx, &model.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt.Fill(template, vars),
		Model:        g.model,
		MaxTokens:    oracleMaxTokens,
		Temperature:  0,
	})
	if err != nil {
		return false, errors.Wrapf(err, "relevance check %v failed", templateName)
	}
	verdict := ParseYesNo(answer)
	log.V(2).Infof("Relevance check %v answered %q: %v", templateName, answer, verdict)
	return verdict, nil
}
