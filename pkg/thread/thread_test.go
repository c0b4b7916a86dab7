package thread_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/testutils"
	"github.com/joincivil/civil-debate-processor/pkg/thread"
)

func TestBuildCapsRepliesInPlatformOrder(t *testing.T) {
	platform := testutils.NewFakePlatform()
	replies := []*model.Reply{}
	for i := 7; i > 0; i-- {
		replies = append(replies, &model.Reply{
			ID:       fmt.Sprintf("r%v", i),
			Username: fmt.Sprintf("user%v", i),
			Text:     fmt.Sprintf("reply %v", i),
		})
	}
	platform.Replies["c1"] = replies

	threadContext := thread.NewBuilder(platform).Build(context.Background(), "c1")
	expected := "@user7: reply 7\n@user6: reply 6\n@user5: reply 5\n@user4: reply 4\n@user3: reply 3"
	if threadContext != expected {
		t.Errorf("Thread context is not what it should be:\n%v", threadContext)
	}
}

func TestBuildEmpty(t *testing.T) {
	platform := testutils.NewFakePlatform()
	builder := thread.NewBuilder(platform)

	if got := builder.Build(context.Background(), "none"); got != "" {
		t.Errorf("No replies should give an empty context, got %q", got)
	}

	platform.RepliesErr = errors.New("rate limited")
	platform.Replies["c1"] = []*model.Reply{{Username: "alice", Text: "hi"}}
	if got := builder.Build(context.Background(), "c1"); got != "" {
		t.Errorf("Fetch error should give an empty context, got %q", got)
	}
}
