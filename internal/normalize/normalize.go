// Package normalize provides text folding used to compare loosely typed model output.
package normalize

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips diacritics and collapses whitespace.
// "Rosé  Brut" -> "rose brut".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Words folds s and splits it on anything that is not a letter or a digit.
// "Barrel-matured Rosé" -> ["barrel" "matured" "rose"].
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContainsAnyWord reports whether words holds any of the phrases as a run of
// whole words. Phrases are expected to be folded already and may span
// several words ("vin santo").
func ContainsAnyWord(words []string, phrases ...string) bool {
	for _, p := range phrases {
		needle := strings.Fields(p)
		if len(needle) == 0 {
			continue
		}
		for i := 0; i+len(needle) <= len(words); i++ {
			if slices.Equal(words[i:i+len(needle)], needle) {
				return true
			}
		}
	}
	return false
}
