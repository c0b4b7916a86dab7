package model // import "github.com/joincivil/civil-debate-processor/pkg/model"

// Article is a reference document that responses are drafted from.
// Content uses the heading convention "# Title" and section headings such as
// "## §1.2 Subsection". Numbered is nil when numbering should be detected from
// the content.
type Article struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Link     string `json:"link"`
	Numbered *bool  `json:"is_numbered,omitempty"`
}

// Ref returns the reference stored on a moderation entry for this article
func (a *Article) Ref() *ArticleRef {
	return &ArticleRef{
		ID:    a.ID,
		Title: a.Title,
		Link:  a.Link,
	}
}

// ArticleRef identifies the article a moderation entry was drafted from
type ArticleRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}
