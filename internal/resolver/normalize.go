package resolver

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s, drops apostrophes and turns punctuation into single
// spaces. Diacritics are kept so transliteration still sees й, ї and є.
func fold(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case isApostrophe(r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', 'ʼ', '`', '´', 'ʹ':
		return true
	}
	return false
}

// stripMarks removes combining marks after canonical decomposition.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Key is the case- and diacritic-insensitive form used for exact matching.
func Key(s string) string {
	return stripMarks(fold(s))
}

// LatinKey is Key applied to the Latin transliteration of s.
func LatinKey(s string) string {
	return stripMarks(Transliterate(fold(s)))
}
