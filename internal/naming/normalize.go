package naming

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// umlauts folds the German letters whose plain-vowel spelling is expected in
// identifiers. It runs after lower-casing, so upper-case forms are covered.
var umlauts = strings.NewReplacer(
	"ä", "a",
	"ö", "o",
	"ü", "u",
	"ß", "ss",
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize turns a display name into a slug token.
//
// The result contains only [a-z0-9_], never starts or ends with an
// underscore and never contains two in a row. Normalize is total and
// idempotent.
//
//	Normalize("Büro")          == "buro"
//	Normalize("Straße")        == "strasse"
//	Normalize("Living Room 2") == "living_room_2"
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	s := umlauts.Replace(strings.ToLower(name))
	s = stripMarks(s)
	s = nonSlugRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// stripMarks removes combining marks left after canonical decomposition,
// so letters such as é or ñ fold to their base letter.
// Transformers are stateful, so a fresh chain is built per call.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// TitleCase upper-cases the first letter of every word and leaves the rest
// untouched, so "living room" becomes "Living Room" and "TV Room" stays.
func TitleCase(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}

// HumanizeToken turns a slug token into a label: "ceiling_light" becomes
// "Ceiling Light".
func HumanizeToken(token string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(token, "_", " "))
}
