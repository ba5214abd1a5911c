package utils

import (
	"regexp"
	"sort"
)

var emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractEmail returns the first address-shaped substring of text, or ""
func ExtractEmail(text string) string {
	return emailRE.FindString(text)
}

// ExtractEmails returns the distinct first addresses found in each text, sorted
func ExtractEmails(texts ...string) []string {
	seen := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		if addr := ExtractEmail(text); addr != "" {
			seen[addr] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
