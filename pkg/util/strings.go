package util

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseInt parses a form value, ignoring surrounding whitespace.
func ParseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	v, err := ParseInt(s)
	if err != nil {
		return def
	}
	return v
}

// Humanize splits a CamelCase identifier into words: "CreditHistory" -> "Credit History".
func Humanize(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SnakeCase converts a CamelCase identifier to snake_case: "CreditHistory" -> "credit_history".
func SnakeCase(s string) string {
	return strings.ToLower(strings.ReplaceAll(Humanize(s), " ", "_"))
}
