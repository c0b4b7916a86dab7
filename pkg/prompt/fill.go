package prompt // import "github.com/joincivil/civil-debate-processor/pkg/prompt"

import (
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Fill replaces {{NAME}} placeholders with values from vars in a single
// pass. Placeholders with no value are left as they are.
func Fill(template string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := placeholderRe.FindStringSubmatch(placeholder)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return placeholder
	})
}

// Placeholders returns the distinct placeholder names in template in order
// of first appearance
func Placeholders(template string) []string {
	names := []string{}
	seen := map[string]struct{}{}
	for _, match := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		names = append(names, match[1])
	}
	return names
}
