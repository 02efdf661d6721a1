package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// GenerateID derives a researcher id from cohort and display name:
// "<cohort>-<slug>", where slug is the NFC-normalized, lower-cased name with
// every whitespace run replaced by a single "-". An empty cohort yields the
// bare slug.
//
// GenerateID is pure: equal inputs always give equal ids.
func GenerateID(name, cohort string) string {
	slug := slugify(name)
	if cohort == "" {
		return slug
	}
	return cohort + "-" + slug
}

func slugify(name string) string {
	lowered := cases.Lower(language.Und).String(norm.NFC.String(name))

	var b strings.Builder
	inSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
