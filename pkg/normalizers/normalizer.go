// Package normalizers turns free-text organization names into canonical forms
// used for indexing and fuzzy matching
package normalizers

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

var designatorPattern = regexp.MustCompile(`\b(?:local|lodge|chapter|unit)(?:\s+union)?\s*(?:no\.?\s*|number\s*)?#?\s*(\d+[a-z]?)\b`)

type phrase struct {
	tokens []string
	code   string
}

// Normalizer applies the normalization pipeline using a fixed set of tables.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	tables   *Tables
	acronyms map[string][]string
	phrases  []phrase
}

// NewNormalizer creates a Normalizer over the given tables. Nil tables fall
// back to the defaults.
func NewNormalizer(tables *Tables) *Normalizer {
	if tables == nil {
		tables = DefaultTables()
	}
	n := &Normalizer{
		tables:   tables,
		acronyms: make(map[string][]string),
	}

	seen := make(map[string]struct{})
	addPhrase := func(tokens []string, code string) {
		if len(tokens) == 0 {
			return
		}
		key := strings.Join(tokens, " ")
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		n.phrases = append(n.phrases, phrase{tokens: tokens, code: code})
	}

	for _, alias := range tables.Aliases() {
		aliasTokens := n.tokens(KindUnion, alias.Alias)
		nameTokens := n.tokens(KindUnion, alias.Name)
		addPhrase(aliasTokens, alias.Code)
		addPhrase(nameTokens, alias.Code)
		if len(aliasTokens) == 1 && len(nameTokens) > 0 && !slices.Equal(aliasTokens, nameTokens) {
			n.acronyms[aliasTokens[0]] = nameTokens
		}
	}

	// longest phrase wins when several match
	sort.SliceStable(n.phrases, func(i, j int) bool {
		return len(n.phrases[i].tokens) > len(n.phrases[j].tokens)
	})
	return n
}

// Tables returns the tables this normalizer was built with
func (n *Normalizer) Tables() *Tables {
	return n.tables
}

// Expansion returns the canonical tokens an acronym or alias token stands for
func (n *Normalizer) Expansion(token string) ([]string, bool) {
	tokens, ok := n.acronyms[token]
	return tokens, ok
}

// Normalize canonicalizes a raw name. Only an absent name is an error; any
// present string, including an empty one, normalizes.
func (n *Normalizer) Normalize(raw RawName) (NormalizedName, error) {
	if raw.Name == nil {
		return NormalizedName{}, ErrInvalidInput
	}

	kind := raw.Kind
	if kind != KindUnion {
		kind = KindEmployer
	}

	text := n.expand(kind, clean(fold(*raw.Name)))

	var local string
	if kind == KindUnion {
		local, text = extractDesignators(text)
		if local == "" {
			local = normalizeDesignator(raw.Designator)
		}
	}

	tokens := n.aggressive(kind, text)
	name := NormalizedName{
		Kind:        kind,
		Standard:    text,
		Aggressive:  strings.Join(tokens, " "),
		LocalNumber: local,
		Tokens:      tokens,
		City:        clean(fold(raw.City)),
		State:       strings.ToUpper(strings.TrimSpace(raw.State)),
	}
	if kind == KindUnion {
		name.Affiliation = n.affiliation(tokens)
	}
	return name, nil
}

// NormalizeEmployer normalizes a present employer name
func (n *Normalizer) NormalizeEmployer(raw string) NormalizedName {
	name, _ := n.Normalize(NewRawName(raw, KindEmployer))
	return name
}

// NormalizeUnion normalizes a present union name, extracting its designator
func (n *Normalizer) NormalizeUnion(raw string) NormalizedName {
	name, _ := n.Normalize(NewRawName(raw, KindUnion))
	return name
}

// NormalizeAggressive returns the aggressive form of an employer name
func (n *Normalizer) NormalizeAggressive(raw string) string {
	return n.NormalizeEmployer(raw).Aggressive
}

// ExtractLocalNumber pulls the first local/lodge/chapter/unit number out of a
// name. The remainder is the cleaned name with every designator removed.
func (n *Normalizer) ExtractLocalNumber(raw string) (string, string) {
	return extractDesignators(clean(fold(raw)))
}

// expand replaces whole tokens found in the kind's abbreviation table.
// Surrounding punctuation is kept except the trailing abbreviation period.
func (n *Normalizer) expand(kind Kind, text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		lead, core, trail := splitAffix(word)
		expansion, ok := n.tables.Abbreviation(kind, core)
		if !ok {
			continue
		}
		words[i] = lead + expansion + strings.TrimPrefix(trail, ".")
	}
	return strings.Join(words, " ")
}

// aggressive reduces a standard form to its matching tokens: punctuation and
// stopwords are dropped, then trailing legal suffixes are stripped while more
// than one token remains
func (n *Normalizer) aggressive(kind Kind, standard string) []string {
	tokens := make([]string, 0, 8)
	for _, word := range strings.Fields(standard) {
		word = stripPunct(word)
		if word == "" || n.tables.IsStopword(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	for len(tokens) > 1 && n.tables.IsLegalSuffix(kind, tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// tokens runs the pipeline on a table entry, designators excluded
func (n *Normalizer) tokens(kind Kind, s string) []string {
	text := n.expand(kind, clean(fold(s)))
	_, text = extractDesignators(text)
	return n.aggressive(kind, text)
}

func (n *Normalizer) affiliation(tokens []string) string {
	for _, p := range n.phrases {
		if containsRun(tokens, p.tokens) {
			return p.code
		}
	}
	return ""
}

// containsRun reports whether needle appears contiguously in haystack
func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

// extractDesignators removes every designator and returns the first number.
// Removing one can leave the words around it forming another, so it repeats
// until nothing matches.
func extractDesignators(text string) (string, string) {
	number := ""
	for {
		matches := designatorPattern.FindAllStringSubmatchIndex(text, -1)
		if len(matches) == 0 {
			return number, text
		}
		if number == "" {
			number = text[matches[0][2]:matches[0][3]]
		}

		var b strings.Builder
		last := 0
		for _, m := range matches {
			b.WriteString(text[last:m[0]])
			b.WriteString(" ")
			last = m[1]
		}
		b.WriteString(text[last:])
		text = clean(b.String())
	}
}

func normalizeDesignator(hint string) string {
	hint = clean(fold(hint))
	if hint == "" {
		return ""
	}
	if m := designatorPattern.FindStringSubmatch(hint); m != nil {
		return m[1]
	}
	return stripPunct(strings.ReplaceAll(hint, " ", ""))
}
