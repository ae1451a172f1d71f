package normalizers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sort"
	"strings"

	"github.com/Gobusters/ectolinq"
)

// Affiliation is a canonical national or international union with the
// acronyms and variant spellings that refer to it
type Affiliation struct {
	Code    string   `yaml:"code" json:"code"`
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// AffiliationAlias maps one acronym or variant spelling to its affiliation
type AffiliationAlias struct {
	Alias string `json:"alias"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

// TableSpec is the serializable content of a Tables value
type TableSpec struct {
	EmployerAbbreviations map[string]string `yaml:"employer_abbreviations,omitempty" json:"employer_abbreviations"`
	UnionAbbreviations    map[string]string `yaml:"union_abbreviations,omitempty" json:"union_abbreviations"`
	EmployerSuffixes      []string          `yaml:"employer_suffixes,omitempty" json:"employer_suffixes"`
	UnionSuffixes         []string          `yaml:"union_suffixes,omitempty" json:"union_suffixes"`
	Stopwords             []string          `yaml:"stopwords,omitempty" json:"stopwords"`
	Synonyms              map[string]string `yaml:"synonyms,omitempty" json:"synonyms"`
	Affiliations          []Affiliation     `yaml:"affiliations,omitempty" json:"affiliations"`
}

type set map[string]struct{}

func newSet(items []string) set {
	s := make(set, len(items))
	for _, item := range items {
		if item = cleanKey(item); item != "" {
			s[item] = struct{}{}
		}
	}
	return s
}

func (s set) has(item string) bool {
	_, ok := s[item]
	return ok
}

// Tables holds the reference tables used by the normalizer and scorer.
// A Tables value is never modified after construction and may be shared
// between goroutines.
type Tables struct {
	spec          TableSpec
	abbreviations map[Kind]map[string]string
	suffixes      map[Kind]set
	allSuffixes   set
	stopwords     set
	synonyms      map[string]string
	aliases       []AffiliationAlias
	fingerprint   string
}

// NewTables builds an immutable Tables from a spec. Keys and values are
// lower-cased and trimmed.
func NewTables(spec TableSpec) *Tables {
	spec = canonicalSpec(spec)

	t := &Tables{
		spec: spec,
		abbreviations: map[Kind]map[string]string{
			KindEmployer: spec.EmployerAbbreviations,
			KindUnion:    spec.UnionAbbreviations,
		},
		suffixes: map[Kind]set{
			KindEmployer: newSet(spec.EmployerSuffixes),
			KindUnion:    newSet(spec.UnionSuffixes),
		},
		allSuffixes: newSet(ectolinq.Union(slices.Clone(spec.EmployerSuffixes), spec.UnionSuffixes)),
		stopwords:   newSet(spec.Stopwords),
		synonyms:    spec.Synonyms,
	}

	for _, aff := range spec.Affiliations {
		t.aliases = append(t.aliases, AffiliationAlias{Alias: strings.ToLower(aff.Code), Code: aff.Code, Name: aff.Name})
		for _, alias := range aff.Aliases {
			t.aliases = append(t.aliases, AffiliationAlias{Alias: alias, Code: aff.Code, Name: aff.Name})
		}
	}
	t.aliases = ectolinq.DistinctBy(t.aliases, func(a AffiliationAlias) string { return a.Alias })

	t.fingerprint = fingerprint(spec)
	return t
}

// Snapshot returns a deep copy of the table content, suitable for audit
// tooling and serialization
func (t *Tables) Snapshot() TableSpec {
	return canonicalSpec(t.spec)
}

// Merge returns a new Tables with the override layered over this one.
// Map entries in the override win, lists are unioned and affiliations are
// replaced by code.
func (t *Tables) Merge(override TableSpec) *Tables {
	override = canonicalSpec(override)
	base := t.Snapshot()

	affiliations := ectolinq.KeyWhere(base.Affiliations, func(a Affiliation) string { return a.Code })
	for _, aff := range override.Affiliations {
		affiliations[aff.Code] = aff
	}

	return NewTables(TableSpec{
		EmployerAbbreviations: ectolinq.Merge(base.EmployerAbbreviations, override.EmployerAbbreviations),
		UnionAbbreviations:    ectolinq.Merge(base.UnionAbbreviations, override.UnionAbbreviations),
		EmployerSuffixes:      ectolinq.Union(base.EmployerSuffixes, override.EmployerSuffixes),
		UnionSuffixes:         ectolinq.Union(base.UnionSuffixes, override.UnionSuffixes),
		Stopwords:             ectolinq.Union(base.Stopwords, override.Stopwords),
		Synonyms:              ectolinq.Merge(base.Synonyms, override.Synonyms),
		Affiliations:          ectolinq.Values(affiliations),
	})
}

// Fingerprint is a short stable hash of the table content. Two Tables with
// the same content have the same fingerprint.
func (t *Tables) Fingerprint() string {
	return t.fingerprint
}

// Abbreviation looks up the expansion of a single token for a kind
func (t *Tables) Abbreviation(kind Kind, token string) (string, bool) {
	table, ok := t.abbreviations[kind]
	if !ok {
		table = t.abbreviations[KindEmployer]
	}
	expansion, ok := table[token]
	return expansion, ok
}

// IsLegalSuffix reports whether the token is a legal suffix for the kind
func (t *Tables) IsLegalSuffix(kind Kind, token string) bool {
	suffixes, ok := t.suffixes[kind]
	if !ok {
		suffixes = t.suffixes[KindEmployer]
	}
	return suffixes.has(token)
}

// IsAnyLegalSuffix reports whether the token is a legal suffix for any kind
func (t *Tables) IsAnyLegalSuffix(token string) bool {
	return t.allSuffixes.has(token)
}

func (t *Tables) IsStopword(token string) bool {
	return t.stopwords.has(token)
}

// Synonym returns the representative of the token's synonym group
func (t *Tables) Synonym(token string) (string, bool) {
	rep, ok := t.synonyms[token]
	return rep, ok
}

// Aliases lists every affiliation alias, codes included
func (t *Tables) Aliases() []AffiliationAlias {
	return slices.Clone(t.aliases)
}

func cleanKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cleanMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k = cleanKey(k); k != "" {
			out[k] = cleanKey(v)
		}
	}
	return out
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = cleanKey(item); item != "" {
			out = append(out, item)
		}
	}
	out = ectolinq.Distinct(out)
	sort.Strings(out)
	return out
}

// canonicalSpec deep copies a spec with cleaned keys and sorted lists
func canonicalSpec(spec TableSpec) TableSpec {
	affiliations := make([]Affiliation, 0, len(spec.Affiliations))
	for _, aff := range spec.Affiliations {
		code := strings.ToUpper(strings.TrimSpace(aff.Code))
		if code == "" {
			continue
		}
		affiliations = append(affiliations, Affiliation{
			Code:    code,
			Name:    strings.TrimSpace(aff.Name),
			Aliases: cleanList(aff.Aliases),
		})
	}
	sort.Slice(affiliations, func(i, j int) bool { return affiliations[i].Code < affiliations[j].Code })

	return TableSpec{
		EmployerAbbreviations: cleanMap(spec.EmployerAbbreviations),
		UnionAbbreviations:    cleanMap(spec.UnionAbbreviations),
		EmployerSuffixes:      cleanList(spec.EmployerSuffixes),
		UnionSuffixes:         cleanList(spec.UnionSuffixes),
		Stopwords:             cleanList(spec.Stopwords),
		Synonyms:              cleanMap(spec.Synonyms),
		Affiliations:          affiliations,
	}
}

func fingerprint(spec TableSpec) string {
	// encoding/json sorts map keys, so equal content hashes equally
	data, _ := json.Marshal(spec)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
