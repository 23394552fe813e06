package ai

import (
	"regexp"
	"strings"
)

var (
	thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceRe    = regexp.MustCompile("(?is)```(?:sql)?\n?")
)

// ExtractSQL pulls a single SQL statement out of a model reply. Models wrap
// answers in markdown fences, prepend reasoning tags or chat filler, and
// sometimes append commentary after the statement, all of which is dropped.
func ExtractSQL(response string) string {
	s := thinkTagRe.ReplaceAllString(response, "")
	s = fenceRe.ReplaceAllString(s, "\n")
	s = strings.TrimSpace(s)

	start := firstStatementStart(s)
	if start < 0 {
		return ""
	}
	s = s[start:]

	// cut at the first statement-terminating semicolon
	if end := semicolonOutsideLiterals(s); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// firstStatementStart finds the first SELECT or WITH as a whole word.
func firstStatementStart(s string) int {
	upper := strings.ToUpper(s)
	best := -1
	for _, kw := range []string{"SELECT", "WITH"} {
		from := 0
		for {
			idx := strings.Index(upper[from:], kw)
			if idx < 0 {
				break
			}
			idx += from
			before := idx == 0 || !isWordByte(upper[idx-1])
			afterIdx := idx + len(kw)
			after := afterIdx >= len(upper) || !isWordByte(upper[afterIdx])
			if before && after {
				if best < 0 || idx < best {
					best = idx
				}
				break
			}
			from = idx + 1
		}
	}
	return best
}

// semicolonOutsideLiterals returns the offset of the first semicolon that
// is not inside a quoted string, or -1.
func semicolonOutsideLiterals(s string) int {
	inSingle := false
	inDouble := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			if inSingle && i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				return i
			}
		}
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
