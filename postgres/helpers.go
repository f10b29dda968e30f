package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fwojciec/autotrack"
)

// uniqueViolation is the SQLSTATE reported for unique constraint violations.
const uniqueViolation = "23505"

// queryArgs accumulates positional query arguments.
type queryArgs []any

// add appends v and returns its placeholder.
func (a *queryArgs) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

// appendPagination appends LIMIT and OFFSET clauses to a query builder if values are > 0.
func appendPagination(query *strings.Builder, args *queryArgs, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT " + args.add(limit))
	}
	if offset > 0 {
		query.WriteString(" OFFSET " + args.add(offset))
	}
}

// likePattern returns an ILIKE pattern matching s as a substring.
// Wildcards in s are escaped with a backslash.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// statusStrings converts statuses for use with = ANY($n).
func statusStrings(statuses []autotrack.Status) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
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
func decodeChanges(value []byte) (autotrack.Changes, error) {
	var changes autotrack.Changes
	if err := json.Unmarshal(value, &changes); err != nil {
		return nil, fmt.Errorf("failed to decode changes: %w", err)
	}
	return changes, nil
}
