// Package phonetic encodes name tokens into sound-alike keys and compares them
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// PartialCreditWeight caps the score for keys that only share a prefix
	PartialCreditWeight = 0.5
	// MinSharedPrefix is the shortest shared metaphone prefix that earns credit
	MinSharedPrefix = 2
	// SoundexCredit is the score for tokens whose only exact match is Soundex
	SoundexCredit = 0.5
)

// Codes holds every phonetic key computed for a single token
type Codes struct {
	Soundex   string `json:"soundex"`
	Primary   string `json:"primary"`
	Alternate string `json:"alternate,omitempty"`
}

// Empty reports whether the token produced no keys at all
func (c Codes) Empty() bool {
	return c.Soundex == "" && c.Primary == ""
}

// metaphoneKeys returns the non-empty double metaphone keys
func (c Codes) metaphoneKeys() []string {
	keys := make([]string, 0, 2)
	if c.Primary != "" {
		keys = append(keys, c.Primary)
	}
	if c.Alternate != "" {
		keys = append(keys, c.Alternate)
	}
	return keys
}

// letters keeps the ASCII letters of a token, upper-cased
func letters(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		}
	}
	return b.String()
}

// Soundex returns the four character Soundex code of a token
func Soundex(token string) string {
	s := letters(token)
	if s == "" {
		return ""
	}
	return matchr.Soundex(s)
}

// DoubleMetaphone returns the primary and alternate Double Metaphone keys.
// The alternate is empty when it equals the primary.
func DoubleMetaphone(token string) (string, string) {
	s := letters(token)
	if s == "" {
		return "", ""
	}
	primary, alternate := matchr.DoubleMetaphone(s)
	if alternate == primary {
		alternate = ""
	}
	return primary, alternate
}

// Metaphone returns the primary Double Metaphone key
func Metaphone(token string) string {
	primary, _ := DoubleMetaphone(token)
	return primary
}

// Encode computes all codes for a token
func Encode(token string) Codes {
	primary, alternate := DoubleMetaphone(token)
	return Codes{
		Soundex:   Soundex(token),
		Primary:   primary,
		Alternate: alternate,
	}
}

// Similarity scores how alike two tokens sound, in [0, 1]
func Similarity(a, b string) float64 {
	if a != "" && strings.EqualFold(a, b) {
		return 1.0
	}
	return CodesSimilarity(Encode(a), Encode(b))
}

// CodesSimilarity scores two precomputed code sets. An exact primary or
// alternate metaphone match scores 1.0; otherwise a shared Soundex code or
// the longest shared metaphone prefix earns partial credit.
func CodesSimilarity(a, b Codes) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}

	keysA, keysB := a.metaphoneKeys(), b.metaphoneKeys()
	for _, ka := range keysA {
		for _, kb := range keysB {
			if ka == kb {
				return 1.0
			}
		}
	}

	best := 0.0
	if a.Soundex != "" && a.Soundex == b.Soundex {
		best = SoundexCredit
	}
	for _, ka := range keysA {
		for _, kb := range keysB {
			prefix := sharedPrefix(ka, kb)
			if prefix < MinSharedPrefix {
				continue
			}
			score := PartialCreditWeight * float64(prefix) / float64(max(len(ka), len(kb)))
			if score > best {
				best = score
			}
		}
	}
	return best
}

// MaxPartialCredit is the highest score two tokens can reach without an
// exact metaphone match
func MaxPartialCredit() float64 {
	return max(SoundexCredit, PartialCreditWeight)
}

// Keys returns the metaphone keys two tokens must share to score 1.0
func (c Codes) Keys() []string {
	return c.metaphoneKeys()
}

func sharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
