package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/greenmarket/catalog-service/internal/model"
)

// maxNameSuggestions caps the result of MatchingNames.
const maxNameSuggestions = 10

// NameMatch reports whether candidate should be treated as a price-record
// match for query. Rules fire first-match-wins:
//
//  1. exact equality of the trimmed names
//  2. substring containment in either direction
//  3. a shared whitespace-delimited token longer than one character
//
// The policy is deliberately permissive (high recall, low precision);
// callers that need precision must post-filter.
func NameMatch(query, candidate string) bool {
	q := strings.TrimSpace(query)
	c := strings.TrimSpace(candidate)
	if q == "" || c == "" {
		return false
	}

	if q == c {
		return true
	}
	if strings.Contains(c, q) || strings.Contains(q, c) {
		return true
	}

	for _, qt := range strings.Fields(q) {
		if utf8.RuneCountInString(qt) <= 1 {
			continue
		}
		for _, ct := range strings.Fields(c) {
			if utf8.RuneCountInString(ct) <= 1 {
				continue
			}
			if qt == ct {
				return true
			}
		}
	}
	return false
}

// Matches filters a candidate pool down to the records whose product name
// matches productName. The pool may come from any source: a feed snapshot,
// the historical dataset, or stored records.
func Matches(productName string, pool []model.PriceRecord) []model.PriceRecord {
	var out []model.PriceRecord
	for _, rec := range pool {
		if NameMatch(productName, rec.ProductName) {
			out = append(out, rec)
		}
	}
	return out
}

// MatchingNames returns the distinct candidate names matching term, sorted
// and capped at ten entries.
func MatchingNames(term string, names []string) []string {
	seen := make(map[string]struct{})
	for _, name := range names {
		if NameMatch(term, name) {
			seen[strings.TrimSpace(name)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	if len(out) > maxNameSuggestions {
		out = out[:maxNameSuggestions]
	}
	return out
}

// RecordID derives the idempotency key for a price record: normalized name,
// unit, grade and date code joined with "_". The syncer relies on this being
// deterministic so re-running a sync cannot mint a second id for the same
// observation.
func RecordID(name, unit, grade, dateCode string) string {
	return strings.Join([]string{
		strings.TrimSpace(name),
		strings.TrimSpace(unit),
		strings.TrimSpace(grade),
		strings.TrimSpace(dateCode),
	}, "_")
}
