package relevance // import "github.com/joincivil/civil-debate-processor/pkg/relevance"

import (
	"strings"
	"unicode"
)

// ParseYesNo reads the verdict from an oracle answer. Leading whitespace,
// markdown emphasis and quotes are ignored and case does not matter. Only an
// answer whose first word is YES is true.
func ParseYesNo(answer string) bool {
	trimmed := strings.TrimLeftFunc(answer, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("*_`\"'>#", r)
	})
	if len(trimmed) < 3 || !strings.EqualFold(trimmed[:3], "yes") {
		return false
	}
	rest := trimmed[3:]
	if rest == "" {
		return true
	}
	next := []rune(rest)[0]
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}
