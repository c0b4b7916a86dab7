package prompt_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/joincivil/civil-debate-processor/pkg/persistence"
	"github.com/joincivil/civil-debate-processor/pkg/prompt"
	"github.com/joincivil/civil-debate-processor/pkg/testutils"
)

func TestFill(t *testing.T) {
	template := "Topic: {{TOPIC}}\nUser: @{{USERNAME}}\nMissing: {{NOT_SET}}\nSpaced: {{ TOPIC }}"
	filled := prompt.Fill(template, map[string]string{
		"TOPIC":    "Climate",
		"USERNAME": "alice",
	})
	expected := "Topic: Climate\nUser: @alice\nMissing: {{NOT_SET}}\nSpaced: Climate"
	if filled != expected {
		t.Errorf("Filled template is not what it should be:\n%v", filled)
	}
}

func TestFillSinglePass(t *testing.T) {
	filled := prompt.Fill("{{COMMENT_TEXT}} / {{TOPIC}}", map[string]string{
		"COMMENT_TEXT": "I typed {{TOPIC}} on purpose",
		"TOPIC":        "Climate",
	})
	if filled != "I typed {{TOPIC}} on purpose / Climate" {
		t.Errorf("Values should not be substituted again: %v", filled)
	}
}

func TestPlaceholders(t *testing.T) {
	names := prompt.Placeholders("{{A}} {{B}} {{A}} {{ C }}")
	if diff := cmp.Diff([]string{"A", "B", "C"}, names); diff != "" {
		t.Errorf("Placeholders are not what they should be (-want +got):\n%s", diff)
	}
}

func TestBundledTemplates(t *testing.T) {
	loader := prompt.NewLoader(nil)
	ctx := context.Background()
	debateVars := []string{"TOPIC", "FULL_ARTICLE_TEXT", "POST_CAPTION", "THREAD_CONTEXT",
		"USERNAME", "COMMENT_TEXT"}

	for _, name := range []string{prompt.DebateTemplate, prompt.DebateUnnumberedTemplate} {
		content, err := loader.Load(ctx, name)
		if err != nil {
			t.Fatalf("Should have loaded %v: err: %v", name, err)
		}
		if diff := cmp.Diff(debateVars, prompt.Placeholders(content)); diff != "" {
			t.Errorf("%v placeholders are not what they should be (-want +got):\n%s", name, diff)
		}
	}
	for _, name := range []string{prompt.PostRelevanceTemplate, prompt.CommentRelevanceTemplate,
		prompt.TopicRelevanceTemplate} {
		content, err := loader.Load(ctx, name)
		if err != nil {
			t.Fatalf("Should have loaded %v: err: %v", name, err)
		}
		if !strings.Contains(content, "YES") || !strings.Contains(content, "{{ARTICLE_TITLE}}") {
			t.Errorf("%v should ask for YES/NO about the article", name)
		}
	}
}

func TestLoaderPrefersOverride(t *testing.T) {
	store := testutils.NewMemoryStore()
	repo := persistence.NewPromptRepository(store)
	ctx := context.Background()
	err := repo.SavePrompt(ctx, "comment_relevance_prompt", "Custom relevance check")
	if err != nil {
		t.Fatalf("Should not have failed: err: %v", err)
	}
	err = repo.SavePrompt(ctx, "debate_prompt_unnumbered", "Unnumbered version")
	if err != nil {
		t.Fatalf("Should not have failed: err: %v", err)
	}
	err = repo.SavePrompt(ctx, "debate_prompt", "   ")
	if err != nil {
		t.Fatalf("Should not have failed: err: %v", err)
	}

	loader := prompt.NewLoaderWithDefaults(repo, fstest.MapFS{
		"comment_relevance_prompt.txt": {Data: []byte("Default relevance")},
		"debate_prompt.txt":            {Data: []byte("Default debate")},
	})

	content, err := loader.Load(ctx, "comment_relevance_prompt.txt")
	if err != nil || content != "Custom relevance check" {
		t.Errorf("Override should win after stripping the extension: %q, %v", content, err)
	}
	content, err = loader.Load(ctx, "debate_prompt_unnumbered.txt")
	if err != nil || content != "Unnumbered version" {
		t.Errorf("Override should be found for the unnumbered variant: %q, %v", content, err)
	}
	content, err = loader.Load(ctx, "debate_prompt.txt")
	if err != nil || content != "Default debate" {
		t.Errorf("Blank override should fall back to the default: %q, %v", content, err)
	}
	_, err = loader.Load(ctx, "unknown.txt")
	if err == nil {
		t.Errorf("Unknown template should fail")
	}
}

func TestLoaderPropagatesOverrideErrors(t *testing.T) {
	store := testutils.NewMemoryStore()
	store.ReadErrs[persistence.PromptsKey] = errors.New("bucket unavailable")
	loader := prompt.NewLoader(persistence.NewPromptRepository(store))

	_, err := loader.Load(context.Background(), prompt.DebateTemplate)
	if err == nil {
		t.Errorf("Unreadable override store should be an error")
	}
}
