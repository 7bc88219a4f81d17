package eventsearch

import (
	"fmt"
	"strings"
)

// FormatResults renders candidates as a numbered plain-text listing suitable for a
// chat reply. Returns a "no match" message for empty results.
func FormatResults(query string, candidates []Candidate) string {
	if len(candidates) == 0 {
		return fmt.Sprintf("No match found for %q.", query)
	}

	var b strings.Builder
	if candidates[0].IsSemantic() {
		fmt.Fprintf(&b, "Results similar to %q:\n\n", query)
	} else {
		fmt.Fprintf(&b, "Keyword matches for %q:\n\n", query)
	}

	for i, c := range candidates {
		writeEntry(&b, i+1, c)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, num int, c Candidate) {
	fmt.Fprintf(b, "%d. %s\n", num, c.Name)
	if c.Description != "" {
		fmt.Fprintf(b, "   %s\n", c.Description)
	}

	var meta []string
	if c.Source != "" {
		meta = append(meta, "source: "+c.Source)
	}
	if c.ReferenceID != nil {
		meta = append(meta, fmt.Sprintf("id: %d", *c.ReferenceID))
	}
	if c.Distance != nil {
		meta = append(meta, fmt.Sprintf("distance: %.4f", *c.Distance))
	} else {
		meta = append(meta, "keyword match")
	}
	fmt.Fprintf(b, "   %s\n\n", strings.Join(meta, " | "))
}
