// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/picozot/pkg/types"
)

// BibTeX renders citations as @article entries keyed
// <FirstAuthorSurname><Year>. Colliding keys get a, b, ... suffixes.
func BibTeX(citations []types.CitationMetadata) string {
	var b strings.Builder
	used := make(map[string]int)
	for _, c := range citations {
		key := citationKey(c)
		if n := used[key]; n > 0 {
			used[key]++
			key += string(rune('a' + n - 1))
		} else {
			used[key] = 1
		}

		fmt.Fprintf(&b, "@article{%s,\n", key)
		fmt.Fprintf(&b, "  title = {%s},\n", c.Title)
		if authors := splitAuthors(c.Authors); len(authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(authors, " and "))
		}
		if year := yearOf(c.Year); year != "" {
			fmt.Fprintf(&b, "  year = {%s},\n", year)
		}
		if c.Journal != "" {
			fmt.Fprintf(&b, "  journal = {%s},\n", c.Journal)
		}
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}

func splitAuthors(authors string) []string {
	var out []string
	for _, a := range strings.Split(authors, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// yearOf returns the first four-digit run in s.
func yearOf(s string) string {
	run := 0
	for i, r := range s {
		if r >= '0' && r <= '9' {
			run++
			if run == 4 {
				return s[i-3 : i+1]
			}
			continue
		}
		run = 0
	}
	return ""
}

func citationKey(c types.CitationMetadata) string {
	surname := "Anon"
	if authors := splitAuthors(c.Authors); len(authors) > 0 {
		if fields := strings.Fields(authors[0]); len(fields) > 0 {
			surname = fields[0]
		}
	}
	var key strings.Builder
	for _, r := range surname {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			key.WriteRune(r)
		}
	}
	if key.Len() == 0 {
		key.WriteString("Anon")
	}
	key.WriteString(yearOf(c.Year))
	return key.String()
}
