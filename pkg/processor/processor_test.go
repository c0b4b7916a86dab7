package processor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/joincivil/civil-debate-processor/pkg/composer"
	"github.com/joincivil/civil-debate-processor/pkg/instagram"
	"github.com/joincivil/civil-debate-processor/pkg/ledger"
	"github.com/joincivil/civil-debate-processor/pkg/metrics"
	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
	"github.com/joincivil/civil-debate-processor/pkg/processor"
	"github.com/joincivil/civil-debate-processor/pkg/prompt"
	"github.com/joincivil/civil-debate-processor/pkg/relevance"
	"github.com/joincivil/civil-debate-processor/pkg/testutils"
	"github.com/joincivil/civil-debate-processor/pkg/thread"
	"github.com/joincivil/civil-debate-processor/pkg/validator"
)

const (
	climateArticle = "# Climate Change Report\n\nA summary of the latest climate findings.\n\n" +
		"## §1 Overview\n\nThe overview.\n\n### §1.2 Emissions\n\nEmissions are rising.\n"

	groundedResponse = "As §1.2 of the report shows, emissions are still rising, so policy " +
		"matters more than ever."

	fabricatedResponse = "As §9.9 of the report shows, emissions are still rising, so policy " +
		"matters more than ever."
)

type testProcessor struct {
	store     *testutils.MemoryStore
	completer *testutils.ScriptedCompleter
	platform  *testutils.FakePlatform
	publisher *testutils.RecordingPublisher
	metrics   *metrics.Metrics
	queue     *persistence.CommentQueue
	ledger    *ledger.ModerationLedger
	noMatch   *ledger.NoMatchLog
	postedIDs *persistence.PostedIDSet
	mode      *persistence.ModeFlag
	articles  *persistence.ArticleRepository
	proc      *processor.CommentProcessor
}

// debateResponder answers relevance checks with YES and drafts with response
func debateResponder(response string) func(req *model.CompletionRequest) (string, error) {
	return func(req *model.CompletionRequest) (string, error) {
		if strings.Contains(req.SystemPrompt, "debate assistant") {
			return response, nil
		}
		return "YES - on topic", nil
	}
}

func newTestProcessor(t *testing.T, defaultArticles []*model.Article) *testProcessor {
	store := testutils.NewMemoryStore()
	tp := &testProcessor{
		store:     store,
		completer: &testutils.ScriptedCompleter{Responder: debateResponder(groundedResponse)},
		platform:  testutils.NewFakePlatform(),
		publisher: &testutils.RecordingPublisher{},
		metrics:   metrics.NewMetrics(prometheus.NewRegistry()),
		queue:     persistence.NewCommentQueue(store),
		ledger:    ledger.NewModerationLedger(store),
		noMatch:   ledger.NewNoMatchLog(store),
		postedIDs: persistence.NewPostedIDSet(store),
		mode:      persistence.NewModeFlag(store, false),
		articles:  persistence.NewArticleRepository(store),
	}
	templates := prompt.NewLoader(persistence.NewPromptRepository(store))
	tp.proc = processor.NewCommentProcessor(&processor.NewCommentProcessorParams{
		AccountID:       "acct1",
		BotUsername:     "debatebot",
		Queue:           tp.queue,
		Ledger:          tp.ledger,
		NoMatchLog:      tp.noMatch,
		PostedIDs:       tp.postedIDs,
		Mode:            tp.mode,
		Articles:        tp.articles,
		DefaultArticles: defaultArticles,
		Gate: relevance.NewGate(&relevance.NewGateParams{
			Completer: tp.completer,
			Templates: templates,
			Model:     "test-model",
		}),
		ThreadBuilder: thread.NewBuilder(tp.platform),
		Composer: composer.NewComposer(&composer.NewComposerParams{
			Completer:   tp.completer,
			Templates:   templates,
			Model:       "test-model",
			MaxTokens:   2000,
			Temperature: 0.7,
		}),
		Validator: validator.NewResponseValidator(),
		Platform:  tp.platform,
		Publisher: tp.publisher,
		Metrics:   tp.metrics,
	})
	return tp
}

func (tp *testProcessor) queueComment(t *testing.T, id string, postID string, username string, text string) {
	err := tp.queue.AppendPendingComment(context.Background(), &model.Comment{
		CommentID: id,
		PostID:    postID,
		Username:  username,
		UserID:    "u-" + username,
		Text:      text,
	})
	if err != nil {
		t.Fatalf("Should have queued comment: err: %v", err)
	}
}

func (tp *testProcessor) entries(t *testing.T) []*model.ModerationEntry {
	entries, err := tp.ledger.Entries(context.Background())
	if err != nil {
		t.Fatalf("Should have loaded entries: err: %v", err)
	}
	return entries
}

func (tp *testProcessor) noMatches(t *testing.T) []*model.NoMatchRecord {
	records, err := tp.noMatch.Records(context.Background())
	if err != nil {
		t.Fatalf("Should have loaded no match records: err: %v", err)
	}
	return records
}

func (tp *testProcessor) pending(t *testing.T) []*model.Comment {
	comments, err := tp.queue.PendingComments(context.Background())
	if err != nil {
		t.Fatalf("Should have loaded pending comments: err: %v", err)
	}
	return comments
}

func (tp *testProcessor) process(t *testing.T) *processor.RunSummary {
	summary, err := tp.proc.Process(context.Background())
	if err != nil {
		t.Fatalf("Should not have failed processing: err: %v", err)
	}
	return summary
}

func climate() []*model.Article {
	return []*model.Article{{ID: "climate", Title: "Climate Change Report", Content: climateArticle}}
}

func TestProcessEndToEndPendingReview(t *testing.T) {
	tp := newTestProcessor(t, climate())
	tp.platform.Captions["P"] = "Climate policy debate"
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")

	summary := tp.process(t)

	entries := tp.entries(t)
	if len(entries) != 1 {
		t.Fatalf("Should have created one entry: %v", spew.Sdump(entries))
	}
	entry := entries[0]
	if entry.ID != "log_001" || entry.Status != model.StatusPendingReview || entry.Posted {
		t.Errorf("Entry is not what it should be: %v", spew.Sdump(entry))
	}
	if diff := cmp.Diff([]string{"§1.2"}, entry.CitationsUsed); diff != "" {
		t.Errorf("Citations are not what they should be (-want +got):\n%s", diff)
	}
	if !entry.ValidationPassed || len(entry.ValidationErrors) != 0 {
		t.Errorf("Entry should have passed validation: %v", entry.ValidationErrors)
	}
	if entry.ArticleUsed == nil || entry.ArticleUsed.Title != "Climate Change Report" {
		t.Errorf("Entry should reference the article: %v", entry.ArticleUsed)
	}
	if len(tp.pending(t)) != 0 {
		t.Errorf("Pending queue should be empty")
	}
	if len(tp.platform.PostCalls) != 0 {
		t.Errorf("Pending review entries should not be posted")
	}
	if summary.Entries != 1 || summary.NoMatches != 0 || !summary.QueueCleared {
		t.Errorf("Summary is not what it should be: %+v", summary)
	}

	// post check, comment check, then the draft
	if len(tp.completer.Requests) != 3 {
		t.Fatalf("Should have made 3 oracle calls, got %v", len(tp.completer.Requests))
	}
	if !strings.Contains(tp.completer.Requests[0].UserPrompt, "Climate policy debate") {
		t.Errorf("First call should be the post check")
	}
	if !strings.Contains(tp.completer.Requests[2].UserPrompt, "Climate change is exaggerated") {
		t.Errorf("Draft prompt should contain the comment")
	}

	if len(tp.publisher.Events) != 1 || tp.publisher.Events[0].Type != model.ModerationEventEntryCreated ||
		tp.publisher.Events[0].AccountID != "acct1" {
		t.Errorf("Should have published an entry created event: %v", spew.Sdump(tp.publisher.Events))
	}
	if testutil.ToFloat64(tp.metrics.Entries.WithLabelValues("pending_review")) != 1 {
		t.Errorf("Should have counted the entry")
	}
}

func TestProcessValidationFailureNotPosted(t *testing.T) {
	tp := newTestProcessor(t, climate())
	tp.completer.Responder = debateResponder(fabricatedResponse)
	tp.platform.Captions["P"] = "Climate policy debate"
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")
	err := tp.mode.SetAutoMode(context.Background(), true)
	if err != nil {
		t.Fatalf("Should have set auto mode: err: %v", err)
	}

	tp.process(t)

	entries := tp.entries(t)
	if len(entries) != 1 {
		t.Fatalf("Should have created one entry")
	}
	entry := entries[0]
	if entry.Status != model.StatusFailed || entry.ValidationPassed {
		t.Errorf("Entry should have failed: %v", spew.Sdump(entry))
	}
	if len(entry.ValidationErrors) == 0 {
		t.Errorf("Failed entry should carry its errors")
	}
	if !cmp.Equal(entry.Errors, entry.ValidationErrors) {
		t.Errorf("Failed entry errors should match validation errors: %v", entry.Errors)
	}
	doc, _ := tp.store.Get(persistence.AuditLogKey)
	if !strings.Contains(doc, `"errors":`) {
		t.Errorf("Stored failed entry should have errors: %v", doc)
	}
	if entry.Posted || len(tp.platform.PostCalls) != 0 {
		t.Errorf("Failed entries should never be posted")
	}
}

func TestProcessAutoModePostsOnce(t *testing.T) {
	tp := newTestProcessor(t, climate())
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")
	err := tp.mode.SetAutoMode(context.Background(), true)
	if err != nil {
		t.Fatalf("Should have set auto mode: err: %v", err)
	}

	summary := tp.process(t)
	if summary.Posted != 1 {
		t.Errorf("Should have posted one reply: %+v", summary)
	}
	entry := tp.entries(t)[0]
	if entry.Status != model.StatusApproved || !entry.Posted || entry.PostedAt == nil ||
		entry.ApprovedAt == nil || entry.ReplyID != "reply-1" {
		t.Errorf("Entry should be posted: %v", spew.Sdump(entry))
	}
	posted, err := tp.postedIDs.IsPosted(context.Background(), "c1")
	if err != nil || !posted {
		t.Errorf("Comment should be in the posted id set")
	}

	posted2, failed, err := tp.proc.PostApproved(context.Background())
	if err != nil || posted2 != 0 || failed != 0 {
		t.Errorf("Second post pass should do nothing: %v, %v, %v", posted2, failed, err)
	}
	if len(tp.platform.PostCalls) != 1 {
		t.Errorf("Should have called the platform once, got %v", len(tp.platform.PostCalls))
	}
	if tp.platform.PostCalls[0].Text != groundedResponse {
		t.Errorf("Posted text is not what it should be: %v", tp.platform.PostCalls[0].Text)
	}
	if len(tp.publisher.Events) != 2 || tp.publisher.Events[1].Type != model.ModerationEventEntryPosted {
		t.Errorf("Should have published created and posted events: %v", spew.Sdump(tp.publisher.Events))
	}
}

func TestPostApprovedIgnoresMode(t *testing.T) {
	tp := newTestProcessor(t, climate())
	ctx := context.Background()
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")
	tp.process(t)

	err := tp.ledger.Approve(ctx, "log_001")
	if err != nil {
		t.Fatalf("Should have approved: err: %v", err)
	}

	summary := tp.process(t)
	if summary.Posted != 1 || len(tp.platform.PostCalls) != 1 {
		t.Errorf("Manually approved entry should be posted in manual mode: %+v", summary)
	}
	if !tp.entries(t)[0].Posted {
		t.Errorf("Entry should be marked posted")
	}
}

func TestPostApprovedCapturesErrors(t *testing.T) {
	tp := newTestProcessor(t, nil)
	ctx := context.Background()
	for _, id := range []string{"c1", "c2"} {
		_, err := tp.ledger.Save(ctx, &model.ModerationEntry{
			CommentID:         id,
			GeneratedResponse: "reply to " + id,
			Status:            model.StatusApproved,
			ValidationPassed:  true,
		})
		if err != nil {
			t.Fatalf("Should have saved entry: err: %v", err)
		}
	}
	tp.platform.PostReplyErr["c1"] = &instagram.APIError{
		StatusCode: 400,
		Message:    "Invalid request",
		Body:       map[string]interface{}{"message": "Invalid request", "code": float64(100)},
	}

	posted, failed, err := tp.proc.PostApproved(ctx)
	if err != nil {
		t.Fatalf("Should not have failed: err: %v", err)
	}
	if posted != 1 || failed != 1 {
		t.Errorf("Should have posted one and failed one: %v, %v", posted, failed)
	}

	entries := tp.entries(t)
	if entries[0].Posted || entries[0].PostError == nil {
		t.Fatalf("First entry should carry a post error: %v", spew.Sdump(entries[0]))
	}
	if entries[0].PostError.GraphAPIError["message"] != "Invalid request" {
		t.Errorf("Post error should carry the graph api error: %v", spew.Sdump(entries[0].PostError))
	}
	if !entries[1].Posted {
		t.Errorf("Second entry should still have been posted")
	}

	// The failed entry is retried on the next pass and the error cleared
	delete(tp.platform.PostReplyErr, "c1")
	posted, failed, err = tp.proc.PostApproved(ctx)
	if err != nil || posted != 1 || failed != 0 {
		t.Errorf("Retry should have posted the entry: %v, %v, %v", posted, failed, err)
	}
	entries = tp.entries(t)
	if !entries[0].Posted || entries[0].PostError != nil {
		t.Errorf("Retried entry should be posted with no error: %v", spew.Sdump(entries[0]))
	}
	if len(tp.platform.PostCalls) != 3 {
		t.Errorf("Should have made 3 platform calls, got %v", len(tp.platform.PostCalls))
	}
}

func TestPostApprovedSkipsAlreadyReplied(t *testing.T) {
	tp := newTestProcessor(t, nil)
	ctx := context.Background()
	_, err := tp.ledger.Save(ctx, &model.ModerationEntry{
		CommentID:         "c1",
		GeneratedResponse: "reply",
		Status:            model.StatusApproved,
	})
	if err != nil {
		t.Fatalf("Should have saved entry: err: %v", err)
	}
	err = tp.postedIDs.AddPostedID(ctx, "c1")
	if err != nil {
		t.Fatalf("Should have added posted id: err: %v", err)
	}

	posted, _, err := tp.proc.PostApproved(ctx)
	if err != nil || posted != 1 {
		t.Errorf("Entry should be counted as posted: %v, %v", posted, err)
	}
	if len(tp.platform.PostCalls) != 0 {
		t.Errorf("Should not have replied to the comment again")
	}
	if !tp.entries(t)[0].Posted {
		t.Errorf("Entry should be marked posted")
	}
}

func TestProcessSkips(t *testing.T) {
	tp := newTestProcessor(t, climate())
	ctx := context.Background()
	tp.completer.Responder = func(req *model.CompletionRequest) (string, error) {
		if strings.Contains(req.UserPrompt, "shoes") {
			return "NO - off topic", nil
		}
		return "YES", nil
	}
	err := tp.postedIDs.AddPostedID(ctx, "c2")
	if err != nil {
		t.Fatalf("Should have added posted id: err: %v", err)
	}
	tp.queueComment(t, "c1", "P", "DebateBot", "My own reply")
	tp.queueComment(t, "c2", "P", "alice", "Already answered")
	tp.queueComment(t, "c3", "P", "bob", "Nice shoes")

	summary := tp.process(t)

	if len(tp.entries(t)) != 0 {
		t.Errorf("Should not have created entries")
	}
	reasons := []string{}
	for _, record := range tp.noMatches(t) {
		reasons = append(reasons, record.Reason)
	}
	expected := []string{model.ReasonOwnComment, model.ReasonAlreadyReplied, model.ReasonCommentNotRelevant}
	if diff := cmp.Diff(expected, reasons); diff != "" {
		t.Errorf("Reasons are not what they should be (-want +got):\n%s", diff)
	}
	if summary.NoMatches != 3 || !summary.QueueCleared {
		t.Errorf("Summary is not what it should be: %+v", summary)
	}
	if len(tp.completer.RequestsContaining("My own reply")) != 0 ||
		len(tp.completer.RequestsContaining("Already answered")) != 0 {
		t.Errorf("Skipped comments should not reach the oracle")
	}
}

func TestProcessPostNotRelevantChecksPostOnce(t *testing.T) {
	tp := newTestProcessor(t, climate())
	tp.platform.Captions["P"] = "My new sneakers"
	tp.completer.Responder = func(req *model.CompletionRequest) (string, error) {
		if strings.Contains(req.UserPrompt, "sneakers") {
			return "NO", nil
		}
		return "YES", nil
	}
	tp.queueComment(t, "c1", "P", "alice", "Love them")
	tp.queueComment(t, "c2", "P", "bob", "Where from?")

	tp.process(t)

	records := tp.noMatches(t)
	if len(records) != 2 || records[0].Reason != model.ReasonPostNotRelevant ||
		records[1].ID != "nomatch_002" {
		t.Errorf("Both comments should be skipped for the post: %v", spew.Sdump(records))
	}
	if len(tp.completer.Requests) != 1 || tp.platform.CaptionCalls != 1 {
		t.Errorf("Post should be checked once: %v oracle calls, %v caption calls",
			len(tp.completer.Requests), tp.platform.CaptionCalls)
	}
}

func TestProcessCaptionFailureDegrades(t *testing.T) {
	tp := newTestProcessor(t, climate())
	tp.platform.CaptionErr = errors.New("timeout")
	tp.platform.RepliesErr = errors.New("timeout")
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")

	tp.process(t)

	if len(tp.entries(t)) != 1 {
		t.Errorf("Fetch failures should not stop the comment")
	}
	// no caption means no post check
	if len(tp.completer.Requests) != 2 {
		t.Errorf("Should have made 2 oracle calls, got %v", len(tp.completer.Requests))
	}
}

func TestProcessOracleErrorIsNoMatch(t *testing.T) {
	tp := newTestProcessor(t, climate())
	tp.completer.Responder = func(req *model.CompletionRequest) (string, error) {
		if strings.Contains(req.SystemPrompt, "debate assistant") {
			return "", errors.New("upstream timeout")
		}
		return "YES", nil
	}
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")

	summary := tp.process(t)

	records := tp.noMatches(t)
	if len(records) != 1 || !strings.HasPrefix(records[0].Reason, model.ReasonProcessingErrorPrefix) {
		t.Errorf("Oracle failure should be recorded as a processing error: %v", spew.Sdump(records))
	}
	if !summary.QueueCleared {
		t.Errorf("Queue should still be cleared")
	}
}

func TestProcessMultiArticleSelection(t *testing.T) {
	articles := []*model.Article{
		{ID: "a", Title: "Housing", Content: "# Housing\n\nRents.\n\n## §1 Rents\n"},
		{ID: "b", Title: "Climate Change Report", Content: climateArticle},
		{ID: "c", Title: "Energy", Content: "# Energy\n\nGrid.\n"},
	}
	tp := newTestProcessor(t, nil)
	ctx := context.Background()
	for _, a := range articles {
		err := tp.articles.SaveArticle(ctx, a)
		if err != nil {
			t.Fatalf("Should have saved article: err: %v", err)
		}
	}
	tp.platform.Replies["c1"] = []*model.Reply{{Username: "carol", Text: "Totally agree"}}
	tp.completer.Responder = func(req *model.CompletionRequest) (string, error) {
		if strings.Contains(req.SystemPrompt, "debate assistant") {
			return groundedResponse, nil
		}
		if strings.Contains(req.UserPrompt, "Housing") {
			return "NO", nil
		}
		return "YES", nil
	}
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")

	tp.process(t)

	entries := tp.entries(t)
	if len(entries) != 1 || entries[0].ArticleUsed.ID != "b" {
		t.Fatalf("Should have drafted from the first matching article: %v", spew.Sdump(entries))
	}
	if len(tp.completer.RequestsContaining("ARTICLE TITLE: Energy")) != 0 {
		t.Errorf("Should never have checked the third article")
	}
	if len(tp.completer.RequestsContaining("@carol: Totally agree")) != 3 {
		t.Errorf("Thread context should reach both selection checks and the draft")
	}
}

func TestProcessMultiArticleNoMatch(t *testing.T) {
	tp := newTestProcessor(t, []*model.Article{
		{ID: "a", Title: "Housing", Content: "# Housing\n"},
		{ID: "b", Title: "Energy", Content: "# Energy\n"},
	})
	tp.completer.Responder = func(req *model.CompletionRequest) (string, error) {
		return "NO", nil
	}
	tp.queueComment(t, "c1", "P", "alice", "Hello")

	tp.process(t)

	records := tp.noMatches(t)
	if len(records) != 1 || records[0].Reason != model.ReasonNoArticleMatched {
		t.Errorf("Should have recorded no article matched: %v", spew.Sdump(records))
	}
}

func TestProcessUnnumberedArticle(t *testing.T) {
	tp := newTestProcessor(t, []*model.Article{
		{ID: "essay", Title: "Essay", Content: "# Essay\n\nNo sections here.\n"},
	})
	tp.completer.Responder = debateResponder(fabricatedResponse)
	tp.queueComment(t, "c1", "P", "alice", "Hello")

	tp.process(t)

	entries := tp.entries(t)
	if len(entries) != 1 || entries[0].Status != model.StatusPendingReview {
		t.Fatalf("Unnumbered articles should not fail on citations: %v", spew.Sdump(entries))
	}
	if len(entries[0].CitationsUsed) != 0 {
		t.Errorf("Unnumbered articles should record no citations")
	}
	if len(tp.completer.RequestsContaining("The article has no numbered sections")) != 1 {
		t.Errorf("Should have drafted with the unnumbered template")
	}
}

func TestProcessNoArticlesKeepsQueue(t *testing.T) {
	tp := newTestProcessor(t, nil)
	ctx := context.Background()
	tp.queueComment(t, "c1", "P", "alice", "Hello")
	_, err := tp.ledger.Save(ctx, &model.ModerationEntry{
		CommentID:         "c0",
		GeneratedResponse: "earlier reply",
		Status:            model.StatusApproved,
	})
	if err != nil {
		t.Fatalf("Should have saved entry: err: %v", err)
	}

	summary := tp.process(t)

	if len(tp.pending(t)) != 1 || summary.QueueCleared {
		t.Errorf("Queue should be kept when there are no articles")
	}
	if summary.Posted != 1 {
		t.Errorf("Approved entries should still be posted: %+v", summary)
	}
	if len(tp.completer.Requests) != 0 {
		t.Errorf("No oracle calls should be made without articles")
	}
}

func TestProcessNoComments(t *testing.T) {
	tp := newTestProcessor(t, climate())
	summary := tp.process(t)
	if summary.Comments != 0 || summary.QueueCleared {
		t.Errorf("Summary is not what it should be: %+v", summary)
	}
}

func TestProcessCorruptLedgerFails(t *testing.T) {
	tp := newTestProcessor(t, climate())
	tp.queueComment(t, "c1", "P", "alice", "Climate change is exaggerated")
	tp.store.Put(persistence.AuditLogKey, "{not json")

	_, err := tp.proc.Process(context.Background())
	if err == nil {
		t.Fatalf("Corrupt ledger should fail the run")
	}
	if len(tp.pending(t)) != 1 {
		t.Errorf("Queue should be kept when the run fails")
	}
	if testutil.ToFloat64(tp.metrics.Runs.WithLabelValues("error")) != 1 {
		t.Errorf("Should have counted the failed run")
	}
}
