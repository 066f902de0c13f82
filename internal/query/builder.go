package query

import (
	"fmt"
	"strconv"
	"strings"
)

// CutoffDate is the fixed historical boundary used when a filter locks its
// results to the pre-acquisition era. It always wins over a user-supplied
// until date.
const CutoffDate = "2022-10-27"

// AllowedMaxResults are the page sizes the UI offers; anything else is
// snapped to the nearest entry.
var AllowedMaxResults = []int{20, 40, 60, 100, 200}

// MinLikesUnset marks an absent likes threshold in a FilterSpec.
const MinLikesUnset = -1

// FilterSpec is the structured search input for one request. It is never
// persisted directly; history keeps a serialized snapshot.
type FilterSpec struct {
	Phrase          string   `json:"phrase"`
	Authors         []string `json:"authors,omitempty"`
	SinceDate       string   `json:"since_date,omitempty"` // YYYY-MM-DD or empty
	UntilDate       string   `json:"until_date,omitempty"` // YYYY-MM-DD or empty
	LockedPreCutoff bool     `json:"locked_pre_cutoff,omitempty"`
	MinLikes        int      `json:"min_likes"` // -1 = unset
	MaxResults      int      `json:"max_results"`
}

// NormalizeHandle strips a leading @ and surrounding space. Comparison is
// case-insensitive but the first spelling seen is kept for display.
func NormalizeHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

// Build renders a FilterSpec as a twitterapi.io advanced-search query string.
// It is pure and total: malformed values are clamped, never rejected, and
// structurally equal specs always produce byte-identical output. Term order
// is fixed: phrase, author disjunction, since, until, min_faves.
func Build(spec FilterSpec) string {
	var terms []string

	if phrase := quotePhrase(spec.Phrase); phrase != "" {
		terms = append(terms, phrase)
	}

	if from := authorTerm(spec.Authors); from != "" {
		terms = append(terms, from)
	}

	if spec.SinceDate != "" {
		terms = append(terms, "since:"+spec.SinceDate)
	}

	until := spec.UntilDate
	if spec.LockedPreCutoff {
		// hard override, not a default
		until = CutoffDate
	}
	if until != "" {
		terms = append(terms, "until:"+until)
	}

	if likes := spec.MinLikes; likes != MinLikesUnset {
		if likes < 0 {
			likes = 0
		}
		terms = append(terms, "min_faves:"+strconv.Itoa(likes))
	}

	return strings.Join(terms, " ")
}

// quotePhrase wraps a phrase in double quotes for exact matching. Already
// quoted input passes through unchanged, so re-building from a prior output
// never double-wraps.
func quotePhrase(phrase string) string {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return ""
	}
	if len(phrase) >= 2 && strings.HasPrefix(phrase, `"`) && strings.HasSuffix(phrase, `"`) {
		return phrase
	}
	return `"` + phrase + `"`
}

// authorTerm renders the poison-list scope as a from: disjunction. Handles
// are deduplicated case-insensitively after normalization.
func authorTerm(authors []string) string {
	if len(authors) == 0 {
		return ""
	}

	seen := make(map[string]bool, len(authors))
	parts := make([]string, 0, len(authors))
	for _, a := range authors {
		h := NormalizeHandle(a)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, "from:"+h)
	}

	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " OR "))
}

// ClampMaxResults snaps n to the nearest allowed page size, preferring the
// smaller size on ties.
func ClampMaxResults(n int) int {
	best := AllowedMaxResults[0]
	for _, allowed := range AllowedMaxResults {
		if abs(n-allowed) < abs(n-best) {
			best = allowed
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
