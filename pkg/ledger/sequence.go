package ledger // import "github.com/joincivil/civil-debate-processor/pkg/ledger"

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	entryIDPrefix   = "log_"
	noMatchIDPrefix = "nomatch_"
)

// nextSequenceID returns the id after the highest numbered id with prefix.
// Ids are zero padded to three digits and never reused.
func nextSequenceID(prefix string, ids []string) string {
	highest := 0
	for _, id := range ids {
		n, ok := sequenceNumber(prefix, id)
		if ok && n > highest {
			highest = n
		}
	}
	if len(ids) > highest {
		highest = len(ids)
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}

func sequenceNumber(prefix string, id string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
