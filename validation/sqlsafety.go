package validation

import (
	"fmt"
	"strings"
)

// SafetyError reports why a SQL statement was rejected before execution.
type SafetyError struct {
	Reason  string
	Keyword string
}

func (e *SafetyError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("unsafe SQL: %s (keyword %q)", e.Reason, e.Keyword)
	}
	return "unsafe SQL: " + e.Reason
}

// bannedKeywords are rejected anywhere in the statement, even inside
// subqueries. INTO also blocks SELECT ... INTO.
var bannedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "UPSERT",
	"CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME",
	"GRANT", "REVOKE",
	"EXEC", "EXECUTE", "CALL", "INTO",
	"VACUUM", "PRAGMA", "ATTACH", "DETACH", "COPY",
}

// maskLiterals blanks out string literals, quoted identifiers and comments
// with spaces, keeping offsets stable, so keyword scans cannot be fooled by
// quoted text such as 'DROP TABLE' appearing in a label.
func maskLiterals(sql string) string {
	out := []byte(sql)
	i := 0
	n := len(sql)
	for i < n {
		switch {
		case sql[i] == '\'':
			// single-quoted string, '' escapes a quote
			out[i] = '\''
			i++
			for i < n {
				if sql[i] == '\'' {
					if i+1 < n && sql[i+1] == '\'' {
						out[i] = ' '
						out[i+1] = ' '
						i += 2
						continue
					}
					out[i] = '\''
					i++
					break
				}
				out[i] = ' '
				i++
			}
		case sql[i] == '"':
			out[i] = '"'
			i++
			for i < n {
				if sql[i] == '"' {
					out[i] = '"'
					i++
					break
				}
				out[i] = ' '
				i++
			}
		case sql[i] == '[':
			// bracketed identifier, SQL Server style
			out[i] = '['
			i++
			for i < n {
				if sql[i] == ']' {
					out[i] = ']'
					i++
					break
				}
				out[i] = ' '
				i++
			}
		case sql[i] == '-' && i+1 < n && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				out[i] = ' '
				i++
			}
		case sql[i] == '/' && i+1 < n && sql[i+1] == '*':
			out[i] = ' '
			out[i+1] = ' '
			i += 2
			for i < n {
				if sql[i] == '*' && i+1 < n && sql[i+1] == '/' {
					out[i] = ' '
					out[i+1] = ' '
					i += 2
					break
				}
				out[i] = ' '
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// containsKeyword reports whether masked contains word as a whole word,
// case-insensitively. masked must already have literals blanked out.
func containsKeyword(masked, word string) bool {
	upper := strings.ToUpper(masked)
	start := 0
	for {
		idx := strings.Index(upper[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !isWordByte(upper[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(upper) || !isWordByte(upper[afterIdx])
		if before && after {
			return true
		}
		start = idx + 1
	}
}

// firstKeyword returns the first word of masked, uppercased.
func firstKeyword(masked string) string {
	s := strings.TrimSpace(masked)
	end := 0
	for end < len(s) && isWordByte(s[end]) {
		end++
	}
	return strings.ToUpper(s[:end])
}

// ValidateSQL rejects anything that is not a single read-only SELECT or
// WITH statement. It operates on text only and never touches the database.
func ValidateSQL(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &SafetyError{Reason: "empty statement"}
	}
	masked := maskLiterals(trimmed)

	// one statement only: a semicolon is allowed solely as the trailer
	if idx := strings.Index(masked, ";"); idx >= 0 {
		if strings.TrimSpace(masked[idx+1:]) != "" {
			return &SafetyError{Reason: "multiple statements are not allowed"}
		}
	}

	switch firstKeyword(masked) {
	case "SELECT", "WITH":
	default:
		return &SafetyError{Reason: "only SELECT statements are allowed", Keyword: firstKeyword(masked)}
	}

	for _, kw := range bannedKeywords {
		if containsKeyword(masked, kw) {
			return &SafetyError{Reason: "forbidden keyword", Keyword: kw}
		}
	}
	return nil
}

// ParamRefs returns the distinct @name parameter references of the
// statement, outside string literals and comments, in first-seen order.
// System variables written with @@ are not parameters and are skipped.
func ParamRefs(sqlText string) []string {
	masked := maskLiterals(sqlText)
	seen := map[string]struct{}{}
	var names []string
	for i := 0; i < len(masked); i++ {
		if masked[i] != '@' {
			continue
		}
		if i+1 < len(masked) && masked[i+1] == '@' {
			i++
			for i+1 < len(masked) && isWordByte(masked[i+1]) {
				i++
			}
			continue
		}
		j := i + 1
		for j < len(masked) && isWordByte(masked[j]) {
			j++
		}
		if j > i+1 {
			name := sqlText[i+1 : j]
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
		i = j - 1
	}
	return names
}
