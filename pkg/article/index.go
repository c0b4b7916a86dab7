package article // import "github.com/joincivil/civil-debate-processor/pkg/article"

import (
	"regexp"
	"strings"
	"sync"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

var (
	// sectionHeadingRe matches a heading line that opens with a section
	// marker, e.g. "## §1.2 Scope" or "### **§2.3.1** Detail"
	sectionHeadingRe = regexp.MustCompile(`^#{1,6}[ \t]+(?:\*\*|__)?(§\d+(?:\.\d+)*)`)
)

// NewIndex returns an index over content that detects numbering from the
// content: it is numbered if it has at least one section heading
func NewIndex(content string) *Index {
	return &Index{content: content}
}

// NewIndexWithNumbering returns an index over content with numbering set
// explicitly
func NewIndexWithNumbering(content string, numbered bool) *Index {
	return &Index{content: content, numbered: &numbered}
}

// IndexForArticle returns an index over the article, honouring its
// numbering flag if set
func IndexForArticle(a *model.Article) *Index {
	if a.Numbered != nil {
		return NewIndexWithNumbering(a.Content, *a.Numbered)
	}
	return NewIndex(a.Content)
}

// Index is the section structure and metadata of an article. Parsing is
// done on first use.
type Index struct {
	content  string
	numbered *bool

	once       sync.Once
	sections   []string
	sectionSet map[string]struct{}
	metadata   Metadata
}

// Content returns the full article text
func (i *Index) Content() string {
	return i.content
}

// Metadata returns the parsed title and summary
func (i *Index) Metadata() Metadata {
	i.parse()
	return i.metadata
}

// Sections returns the section markers in document order
func (i *Index) Sections() []string {
	i.parse()
	sections := make([]string, len(i.sections))
	copy(sections, i.sections)
	return sections
}

// Numbered returns true if citations are checked against the index
func (i *Index) Numbered() bool {
	if i.numbered != nil {
		return *i.numbered
	}
	i.parse()
	return len(i.sections) > 0
}

// CitationExists returns true if a section heading carries exactly this
// marker. In an unnumbered index every citation exists.
func (i *Index) CitationExists(token string) bool {
	if !i.Numbered() {
		return true
	}
	i.parse()
	_, ok := i.sectionSet[strings.TrimSpace(token)]
	return ok
}

func (i *Index) parse() {
	i.once.Do(func() {
		i.metadata = ParseMetadata(i.content)
		i.sectionSet = map[string]struct{}{}
		for _, raw := range strings.Split(i.content, "\n") {
			match := sectionHeadingRe.FindStringSubmatch(strings.TrimSpace(raw))
			if match == nil {
				continue
			}
			marker := match[1]
			if _, ok := i.sectionSet[marker]; ok {
				continue
			}
			i.sectionSet[marker] = struct{}{}
			i.sections = append(i.sections, marker)
		}
	})
}
