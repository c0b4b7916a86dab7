// Package article parses reference articles into section indexes and
// metadata, and loads articles from manifests.
package article // import "github.com/joincivil/civil-debate-processor/pkg/article"

import (
	"strings"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// Metadata is the title and summary of an article
type Metadata struct {
	Title   string
	Summary string
}

// ParseMetadata returns the article's title and summary. The title is the
// first "# " heading and the summary is the first non-empty, non-heading line
// after it. Missing values are empty strings.
func ParseMetadata(content string) Metadata {
	meta := Metadata{}
	lines := strings.Split(content, "\n")

	start := 0
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if isTitleLine(line) {
			meta.Title = strings.TrimSpace(line[1:])
			start = i + 1
			break
		}
	}

	for _, raw := range lines[start:] {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		meta.Summary = line
		break
	}
	return meta
}

func isTitleLine(line string) bool {
	return len(line) > 1 && line[0] == '#' && (line[1] == ' ' || line[1] == '\t')
}

// DisplayTitle returns the article's stored title, falling back to the
// parsed heading and then the id
func DisplayTitle(a *model.Article, meta Metadata) string {
	if a.Title != "" {
		return a.Title
	}
	if meta.Title != "" {
		return meta.Title
	}
	return a.ID
}
