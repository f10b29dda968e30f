package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/autotrack"
)

// timeLayout is a fixed-width UTC layout so that stored timestamps sort
// lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// formatTime formats a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp.
// Returns an error if parsing fails with a descriptive message including the field name.
func parseTime(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// appendPagination appends LIMIT and OFFSET clauses to a query builder if values are > 0.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	} else if offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET.
		query.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}

// likePattern returns a LIKE pattern matching s as a lowercase substring.
// Wildcards in s are escaped with a backslash.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// placeholders returns n comma-separated "?" placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// encodeChanges serializes changes for storage.
func encodeChanges(changes autotrack.Changes) (string, error) {
	if changes == nil {
		changes = autotrack.Changes{}
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return "", fmt.Errorf("failed to encode changes: %w", err)
	}
	return string(b), nil
}

// decodeChanges deserializes stored changes.
func decodeChanges(value string) (autotrack.Changes, error) {
	var changes autotrack.Changes
	if err := json.Unmarshal([]byte(value), &changes); err != nil {
		return nil, fmt.Errorf("failed to decode changes: %w", err)
	}
	return changes, nil
}
