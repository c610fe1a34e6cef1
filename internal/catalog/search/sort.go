package search

import "strings"

// SortDirection is an explicit sort order. The documented default is
// ascending: any value other than "desc" parses as SortAsc, so callers that
// omit a direction always get the same ordering.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return SortDesc
	}
	return SortAsc
}
