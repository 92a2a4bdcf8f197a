package resolver

import (
	"strings"
	"unicode"
)

// Ukrainian national romanization (2010). Letters with a separate
// word-initial form are handled in Transliterate.
var ukToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g", 'д': "d", 'е': "e",
	'є': "ie", 'ж': "zh", 'з': "z", 'и': "y", 'і': "i", 'ї': "i", 'й': "i",
	'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ь': "", 'ю': "iu", 'я': "ia",
	// Russian letters that still show up in old signage and user input.
	'ы': "y", 'э': "e", 'ё': "io", 'ъ': "",
}

var ukInitial = map[rune]string{
	'є': "ye", 'ї': "yi", 'й': "y", 'ю': "yu", 'я': "ya",
}

// Transliterate romanizes Cyrillic letters of a lowercase string and leaves
// everything else untouched.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	prev := ' '
	for _, r := range s {
		lower := unicode.ToLower(r)
		initial := !unicode.IsLetter(prev)
		switch {
		case lower == 'г' && prev == 'з':
			b.WriteString("gh")
		case initial && ukInitial[lower] != "":
			b.WriteString(ukInitial[lower])
		default:
			if latin, ok := ukToLatin[lower]; ok {
				b.WriteString(latin)
			} else {
				b.WriteRune(r)
			}
		}
		prev = lower
	}
	return b.String()
}
