package normalizers

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// fold decomposes the string, drops combining marks and control characters
// and case-folds the result
func fold(s string) string {
	// transformers carry state, so a fresh chain is built per call
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return unicode.IsControl(r) && !unicode.IsSpace(r)
		})),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// clean collapses whitespace and trims punctuation from both ends
func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return isPunct(r) || unicode.IsSpace(r)
	})
}

// splitAffix separates a token into leading punctuation, core and trailing
// punctuation. A token made only of punctuation is returned whole as core.
func splitAffix(token string) (string, string, string) {
	start := strings.IndexFunc(token, func(r rune) bool { return !isPunct(r) })
	if start < 0 {
		return "", token, ""
	}
	end := strings.LastIndexFunc(token, func(r rune) bool { return !isPunct(r) })
	_, size := utf8.DecodeRuneInString(token[end:])
	return token[:start], token[start : end+size], token[end+size:]
}

// stripPunct deletes every punctuation and symbol character
func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if isPunct(r) {
			return -1
		}
		return r
	}, s)
}
