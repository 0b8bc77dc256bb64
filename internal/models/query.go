package models

import "strings"

// SearchQuery is a nearest-neighbour search request over all document versions.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Normalize trims the query and clamps the limit. It returns false when the
// query text is empty, in which case no search should be performed.
func (q *SearchQuery) Normalize(defaultLimit, maxLimit int) bool {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return false
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return true
}
