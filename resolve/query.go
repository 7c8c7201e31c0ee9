package resolve

import (
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 1000

	biolinkPrefix = "biolink:"
)

// Query holds the parameters of a single lookup.
type Query struct {
	Text string
	// Autocomplete marks Text as a possibly incomplete fragment. It is
	// accepted for compatibility and does not change results.
	Autocomplete bool
	// Offset is accepted for compatibility and does not change results.
	Offset int
	// Limit bounds the number of raw index hits, and so the result length.
	Limit int
	// BiolinkType keeps concepts of this type, with or without the
	// "biolink:" prefix.
	BiolinkType     string
	OnlyPrefixes    []string
	ExcludePrefixes []string
}

// NewQuery returns a query for text with the default settings.
func NewQuery(text string) Query {
	return Query{
		Text:         text,
		Autocomplete: true,
		Limit:        DefaultLimit,
	}
}

// Validate checks the numeric bounds.
func (q *Query) Validate() error {
	if q.Limit < 0 || q.Limit > MaxLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidOffset, q.Offset)
	}
	return nil
}

// ParsePrefixes splits a pipe-separated prefix list such as "MONDO|EFO".
// Blank entries are dropped; an empty string gives nil.
func ParsePrefixes(s string) []string {
	var prefixes []string
	for _, p := range strings.Split(s, "|") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

// bareType strips the biolink: prefix.
func bareType(t string) string {
	return strings.TrimPrefix(strings.TrimSpace(t), biolinkPrefix)
}

// hasType reports whether any of types names want, ignoring the prefix.
func hasType(types []string, want string) bool {
	want = bareType(want)
	return slices.ContainsFunc(types, func(t string) bool {
		return bareType(t) == want
	})
}
