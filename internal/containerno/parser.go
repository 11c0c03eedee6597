// Package containerno extracts ISO 6346 container identifiers from free text.
package containerno

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

var pattern = regexp.MustCompile(`^[A-Z]{4}[0-9]{7}$`)

// Valid reports whether s is a syntactically valid container number after
// trimming and upper-casing. The check digit is not verified.
func Valid(s string) bool {
	return pattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// Parse splits text on whitespace, commas, and semicolons and returns the
// valid container numbers upper-cased, in first-seen order, without
// duplicates. Invalid tokens are dropped.
func Parse(text string) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r', '\v', '\f':
			return true
		default:
			return false
		}
	})
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToUpper(tok)
		if !pattern.MatchString(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Expand turns watches into work items, one per distinct container of each
// watch. The same container on two watches yields two items.
func Expand(watches []tracker.Watch) []tracker.WorkItem {
	var items []tracker.WorkItem
	for _, w := range watches {
		for _, c := range Parse(w.ContainerRefs) {
			items = append(items, tracker.WorkItem{Watch: w, ContainerNo: c})
		}
	}
	return items
}
