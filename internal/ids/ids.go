// Package ids generates the identifiers and timestamp strings shared by the
// stores. Timestamps are ISO-8601 in UTC so lexicographic order on a sort key
// equals chronological order.
package ids

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewToken returns a collision-resistant opaque identifier.
func NewToken() string {
	return uuid.NewString()
}

// NewInsightID returns a composite identifier of the form
// "{epochMillis}-{uuid}". The epoch prefix makes ascending key order
// chronological; the random suffix guarantees uniqueness without
// coordination, even within the same millisecond.
func NewInsightID(t time.Time) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), uuid.NewString())
}

// Timestamp formats t as an RFC 3339 UTC string, second precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// MessageTimestamp formats t with sub-second precision for chat sort keys,
// where two messages in the same second must still order correctly.
func MessageTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
