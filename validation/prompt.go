package validation

import (
	"strings"
	"unicode"
)

// IsValidPrompt checks if a question makes sense (not gibberish).
// Returns true if the prompt appears to be valid, false if it's likely gibberish.
func IsValidPrompt(prompt string) bool {
	trimmed := strings.TrimSpace(prompt)

	if len(trimmed) < 3 {
		return false
	}
	if len(trimmed) > 10000 {
		return false
	}

	words := strings.Fields(trimmed)
	if len(words) < 2 {
		// A single word might still be valid if it's long enough and not
		// just one character repeated.
		if len(words) == 1 && len(words[0]) >= 3 && !isRepeatedCharacters(words[0]) {
			return true
		}
		return false
	}

	if hasExcessiveRepetition(trimmed) {
		return false
	}
	if hasKeyboardMashing(trimmed) {
		return false
	}

	// Should have some letters (at least 30% of non-space characters).
	letterCount := 0
	digitCount := 0
	punctCount := 0
	totalChars := 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		totalChars++
		switch {
		case unicode.IsLetter(r):
			letterCount++
		case unicode.IsDigit(r):
			digitCount++
		case unicode.IsPunct(r):
			punctCount++
		}
	}
	if totalChars == 0 {
		return false
	}
	if float64(letterCount)/float64(totalChars) < 0.3 {
		return false
	}
	if float64(digitCount)/float64(totalChars) > 0.5 {
		return false
	}
	if float64(punctCount)/float64(totalChars) > 0.3 {
		return false
	}

	// Lenient by default - better to process an odd question than reject a valid one.
	return true
}

// isRepeatedCharacters checks if a string is just one character repeated.
func isRepeatedCharacters(s string) bool {
	if len(s) < 3 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// hasExcessiveRepetition checks for runs like "aaaa" or "1111".
func hasExcessiveRepetition(s string) bool {
	if len(s) < 4 {
		return false
	}
	for i := 0; i <= len(s)-4; i++ {
		if s[i] == s[i+1] && s[i] == s[i+2] && s[i] == s[i+3] {
			return true
		}
	}
	return false
}

// hasKeyboardMashing checks for keyboard mashing patterns.
func hasKeyboardMashing(s string) bool {
	lower := strings.ToLower(s)
	mashingPatterns := []string{
		"asdfghjkl", "qwertyuiop", "zxcvbnm",
		"asdf", "qwer", "zxcv", "hjkl",
	}
	for _, pattern := range mashingPatterns {
		if strings.Contains(lower, pattern) && len(s) < 30 {
			return true
		}
	}
	return false
}
