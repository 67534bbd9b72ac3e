package utils

import (
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

func ExtractContentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// TruncateRunes cuts s to at most n runes after collapsing whitespace.
func TruncateRunes(s string, n int) string {
	s = CollapseSpace(s)
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// CollapseSpace joins all whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AppendUnique appends items not already in list, skipping blanks.
func AppendUnique(list []string, items ...string) []string {
	seen := make(map[string]bool, len(list)+len(items))
	for _, v := range list {
		seen[v] = true
	}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		list = append(list, item)
	}
	return list
}
