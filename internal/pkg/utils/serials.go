package utils

import "strings"

// SplitSerials splits pasted serial numbers on newlines, commas and semicolons,
// trimming whitespace and dropping blank entries. Input order is kept.
func SplitSerials(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Duplicates returns the values that occur more than once, in first-repeat order.
func Duplicates(values []string) []string {
	seen := make(map[string]int, len(values))
	var dups []string
	for _, v := range values {
		seen[v]++
		if seen[v] == 2 {
			dups = append(dups, v)
		}
	}
	return dups
}
