// Package thread builds the reply context given to the response composer
package thread // import "github.com/joincivil/civil-debate-processor/pkg/thread"

import (
	"context"
	"fmt"
	"strings"

	log "github.com/golang/glog"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const (
	// MaxReplies is the number of prior replies included in the context
	MaxReplies = 5
)

// NewBuilder returns a new thread context builder
func NewBuilder(platform model.SocialPlatform) *Builder {
	return &Builder{platform: platform, maxReplies: MaxReplies}
}

// Builder summarizes the replies to a comment
type Builder struct {
	platform   model.SocialPlatform
	maxReplies int
}

// Build returns up to the first MaxReplies replies to the comment, in the
// order the platform returned them, as "@username: text" lines. A fetch
// error yields an empty context.
func (b *Builder) Build(ctx context.Context, commentID string) string {
	replies, err := b.platform.CommentReplies(ctx, commentID)
	if err != nil {
		log.Warningf("Error fetching replies for comment %v, continuing without thread context: err: %v",
			commentID, err)
		return ""
	}
	if len(replies) > b.maxReplies {
		replies = replies[:b.maxReplies]
	}
	lines := make([]string, 0, len(replies))
	for _, reply := range replies {
		if reply == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("@%v: %v", reply.Username, reply.Text))
	}
	return strings.Join(lines, "\n")
}
