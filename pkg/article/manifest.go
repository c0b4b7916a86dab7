package article // import "github.com/joincivil/civil-debate-processor/pkg/article"

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	log "github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

// ManifestEntry configures an article read from disk
type ManifestEntry struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Path     string `json:"path" yaml:"path"`
	Link     string `json:"link,omitempty" yaml:"link,omitempty"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Numbered *bool  `json:"is_numbered,omitempty" yaml:"is_numbered,omitempty"`
}

type yamlManifest struct {
	Articles []*ManifestEntry `yaml:"articles"`
}

// ParseManifestJSON parses a JSON list of manifest entries
func ParseManifestJSON(data []byte) ([]*ManifestEntry, error) {
	entries := []*ManifestEntry{}
	if strings.TrimSpace(string(data)) == "" {
		return entries, nil
	}
	err := json.Unmarshal(data, &entries)
	if err != nil {
		return nil, errors.Wrap(err, "invalid article manifest json")
	}
	return entries, validateEntries(entries)
}

// ParseManifestYAML parses a YAML manifest, either a list of entries or a
// document with an "articles" list
func ParseManifestYAML(data []byte) ([]*ManifestEntry, error) {
	entries := []*ManifestEntry{}
	node := &yaml.Node{}
	err := yaml.Unmarshal(data, node)
	if err != nil {
		return nil, errors.Wrap(err, "invalid article manifest yaml")
	}
	if len(node.Content) == 0 {
		return entries, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		err = root.Decode(&entries)
	} else {
		manifest := &yamlManifest{}
		err = root.Decode(manifest)
		entries = manifest.Articles
	}
	if err != nil {
		return nil, errors.Wrap(err, "invalid article manifest yaml")
	}
	return entries, validateEntries(entries)
}

// ReadManifestFile reads a YAML or JSON manifest file, chosen by extension
func ReadManifestFile(path string) ([]*ManifestEntry, error) {
	data, err := os.ReadFile(path) // nolint: gosec
	if err != nil {
		return nil, errors.Wrapf(err, "error reading article manifest %v", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseManifestJSON(data)
	}
	return ParseManifestYAML(data)
}

// LoadArticles reads the article files named by the entries. Relative paths
// are resolved against baseDir. Entries whose file cannot be read are logged
// and skipped.
func LoadArticles(entries []*ManifestEntry, baseDir string) []*model.Article {
	articles := []*model.Article{}
	for _, entry := range entries {
		path := entry.Path
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path) // nolint: gosec
		if err != nil {
			log.Errorf("Error reading article %v: err: %v", path, err)
			continue
		}
		articles = append(articles, entry.toArticle(string(data)))
	}
	return articles
}

func (e *ManifestEntry) toArticle(content string) *model.Article {
	id := e.ID
	if id == "" {
		base := filepath.Base(e.Path)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	title := ParseMetadata(content).Title
	if title == "" {
		title = e.Title
	}
	if title == "" {
		title = id
	}
	return &model.Article{
		ID:       id,
		Title:    title,
		Content:  content,
		Link:     e.Link,
		Numbered: e.Numbered,
	}
}

func validateEntries(entries []*ManifestEntry) error {
	for i, entry := range entries {
		if entry == nil || strings.TrimSpace(entry.Path) == "" {
			return errors.Errorf("article manifest entry %v has no path", i)
		}
	}
	return nil
}
