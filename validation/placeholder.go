package validation

import (
	"fmt"
	"strings"
)

// PlaceholderToken is the single opaque token the model must emit where the
// server-side filter predicate belongs. The model never sees filter values.
const PlaceholderToken = "__ORDERLENS_FILTERS__"

type PlaceholderError struct {
	Count int
}

func (e *PlaceholderError) Error() string {
	if e.Count == 0 {
		return "generated SQL is missing the filter placeholder"
	}
	return fmt.Sprintf("generated SQL contains the filter placeholder %d times, expected exactly one", e.Count)
}

// occurrencesOutsideLiterals finds the byte offsets of needle in sql,
// ignoring hits inside string literals, quoted identifiers and comments.
func occurrencesOutsideLiterals(sql, needle string) []int {
	masked := maskLiterals(sql)
	var offs []int
	start := 0
	for {
		idx := strings.Index(masked[start:], needle)
		if idx < 0 {
			return offs
		}
		idx += start
		offs = append(offs, idx)
		start = idx + len(needle)
	}
}

// CountPlaceholders counts real placeholder occurrences. A token quoted
// inside a string literal does not count.
func CountPlaceholders(sql string) int {
	return len(occurrencesOutsideLiterals(sql, PlaceholderToken))
}

// EnforcePlaceholder requires exactly one placeholder outside literals.
func EnforcePlaceholder(sql string) error {
	if n := CountPlaceholders(sql); n != 1 {
		return &PlaceholderError{Count: n}
	}
	return nil
}

// InjectPredicate substitutes the placeholder with the predicate fragment,
// parenthesized so surrounding AND/OR keep their intended precedence.
// EnforcePlaceholder must have passed first.
func InjectPredicate(sql, predicateSQL string) (string, error) {
	offs := occurrencesOutsideLiterals(sql, PlaceholderToken)
	if len(offs) != 1 {
		return "", &PlaceholderError{Count: len(offs)}
	}
	off := offs[0]
	return sql[:off] + "(" + predicateSQL + ")" + sql[off+len(PlaceholderToken):], nil
}
