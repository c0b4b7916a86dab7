package postgres // import "github.com/joincivil/civil-debate-processor/pkg/persistence/postgres"

import (
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePrefixPattern returns a LIKE pattern matching strings that start with
// prefix. Wildcard characters in prefix are escaped.
func LikePrefixPattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
