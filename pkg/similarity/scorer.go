// Package similarity scores how likely two normalized organization names are
// to refer to the same entity
package similarity

import (
	"errors"
	"math"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/antzucaro/matchr"

	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/phonetic"
)

// ErrInvalidWeights is returned for negative weights or weights summing to zero
var ErrInvalidWeights = errors.New("invalid weights: must be non-negative with a positive sum")

// phoneticKeyPrefix keeps metaphone blocking keys apart from token keys
const phoneticKeyPrefix = "~"

// Weights controls the blend of token and phonetic similarity
type Weights struct {
	Token    float64 `json:"token" yaml:"token"`
	Phonetic float64 `json:"phonetic" yaml:"phonetic"`
}

// DefaultWeights returns the standard 0.7 token / 0.3 phonetic blend
func DefaultWeights() Weights {
	return Weights{Token: 0.7, Phonetic: 0.3}
}

// Validate checks the weights can be blended
func (w Weights) Validate() error {
	if w.Token < 0 || w.Phonetic < 0 || w.Token+w.Phonetic <= 0 {
		return ErrInvalidWeights
	}
	return nil
}

// Options tunes the scorer
type Options struct {
	// SubsetBonus is the share of the remaining distance granted when one
	// token set contains the other
	SubsetBonus float64
	// DesignatorVeto zeroes the score of names with different local numbers
	DesignatorVeto bool
}

// DefaultOptions returns the standard scorer options
func DefaultOptions() Options {
	return Options{SubsetBonus: 0.5, DesignatorVeto: true}
}

// Score is the breakdown of a single comparison
type Score struct {
	Token    float64 `json:"token_score"`
	Phonetic float64 `json:"phonetic_score"`
	Edit     float64 `json:"edit_score"`
	Combined float64 `json:"combined_score"`
	Vetoed   bool    `json:"vetoed"`
}

// Scorer compares normalized names. It is stateless and safe for concurrent use.
type Scorer struct {
	normalizer *normalizers.Normalizer
	opts       Options
}

// NewScorer creates a Scorer that expands tokens with the normalizer's tables
func NewScorer(normalizer *normalizers.Normalizer, opts Options) *Scorer {
	if normalizer == nil {
		normalizer = normalizers.NewNormalizer(nil)
	}
	return &Scorer{normalizer: normalizer, opts: opts}
}

// Options returns the options the scorer was built with
func (s *Scorer) Options() Options {
	return s.opts
}

// WithDesignatorVeto returns a copy of the scorer with the veto policy set
func (s *Scorer) WithDesignatorVeto(veto bool) *Scorer {
	cp := *s
	cp.opts.DesignatorVeto = veto
	return &cp
}

// TokenScore is the order independent overlap of two token lists after
// synonym and acronym expansion, with a bonus when one side contains the other
func (s *Scorer) TokenScore(a, b []string) float64 {
	setA := s.tokenSet(a)
	setB := s.tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	jaccard := float64(shared) / float64(union)

	properSubset := shared == min(len(setA), len(setB)) && len(setA) != len(setB)
	if properSubset {
		jaccard += s.opts.SubsetBonus * (1 - jaccard)
	}
	return clamp(jaccard)
}

// PhoneticScore pairs every token with its best sounding counterpart on the
// other side and averages both directions
func (s *Scorer) PhoneticScore(a, b []string) float64 {
	ea, eb := s.expand(a), s.expand(b)
	if len(ea) == 0 || len(eb) == 0 {
		return 0
	}
	codesA := ectolinq.Map(ea, phonetic.Encode)
	codesB := ectolinq.Map(eb, phonetic.Encode)
	return clamp((bestPairing(ea, eb, codesA, codesB) + bestPairing(eb, ea, codesB, codesA)) / 2)
}

// EditScore is the Jaro-Winkler similarity of the aggressive forms. It is
// reported for review but does not feed the combined score.
func (s *Scorer) EditScore(a, b normalizers.NormalizedName) float64 {
	if a.Aggressive == "" || b.Aggressive == "" {
		return 0
	}
	if a.Aggressive == b.Aggressive {
		return 1
	}
	// Jaro-Winkler is not bit-for-bit symmetric in floating point
	return clamp(math.Max(
		matchr.JaroWinkler(a.Aggressive, b.Aggressive, false),
		matchr.JaroWinkler(b.Aggressive, a.Aggressive, false),
	))
}

// CombinedScore blends token and phonetic similarity with the given weights
func (s *Scorer) CombinedScore(a, b normalizers.NormalizedName, w Weights) float64 {
	return s.Compare(a, b, w).Combined
}

// Compare returns the full score breakdown for two names
func (s *Scorer) Compare(a, b normalizers.NormalizedName, w Weights) Score {
	if w.Validate() != nil {
		w = DefaultWeights()
	}

	var score Score
	if designatorOnly(a) && designatorOnly(b) {
		// nothing but the designator to compare
		if a.LocalNumber == b.LocalNumber {
			score.Combined = 1
		}
	} else if len(a.Tokens) == 0 || len(b.Tokens) == 0 {
		score.Phonetic = s.PhoneticScore(strings.Fields(a.Standard), strings.Fields(b.Standard))
		score.Combined = score.Phonetic
	} else {
		score.Token = s.TokenScore(a.Tokens, b.Tokens)
		score.Phonetic = s.PhoneticScore(a.Tokens, b.Tokens)
		score.Combined = clamp((w.Token*score.Token + w.Phonetic*score.Phonetic) / (w.Token + w.Phonetic))
	}
	score.Edit = s.EditScore(a, b)

	if s.opts.DesignatorVeto && a.HasLocalNumber() && b.HasLocalNumber() && a.LocalNumber != b.LocalNumber {
		score.Combined = 0
		score.Vetoed = true
	}
	return score
}

// BlockingKeys lists the expanded tokens of a name and their metaphone keys.
// Two names share a key whenever their token score is above zero or a pair
// of their tokens sounds exactly alike.
func (s *Scorer) BlockingKeys(name normalizers.NormalizedName) []string {
	tokens := s.expand(name.Tokens)
	keys := make([]string, 0, len(tokens)*3)
	keys = append(keys, tokens...)
	for _, token := range tokens {
		for _, key := range phonetic.Encode(token).Keys() {
			keys = append(keys, phoneticKeyPrefix+key)
		}
	}
	return ectolinq.Distinct(keys)
}

// UnblockedCeiling is the highest combined score two names with tokens can
// reach without sharing a blocking key. Such a pair has no token overlap and
// only partial phonetic credit.
func (s *Scorer) UnblockedCeiling(w Weights) float64 {
	if w.Validate() != nil {
		w = DefaultWeights()
	}
	return clamp(phonetic.MaxPartialCredit() * w.Phonetic / (w.Token + w.Phonetic))
}

// expand replaces acronyms with their canonical tokens and synonyms with
// their group representative. Order is kept and duplicates dropped.
func (s *Scorer) expand(tokens []string) []string {
	tables := s.normalizer.Tables()
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if expansion, ok := s.normalizer.Expansion(token); ok {
			for _, e := range expansion {
				out = append(out, synonym(tables, e))
			}
			continue
		}
		out = append(out, synonym(tables, token))
	}
	return ectolinq.Distinct(out)
}

// tokenSet expands tokens and drops legal suffixes, unless that would leave
// nothing
func (s *Scorer) tokenSet(tokens []string) map[string]struct{} {
	expanded := s.expand(tokens)
	kept := ectolinq.Filter(expanded, func(t string) bool {
		return !s.normalizer.Tables().IsAnyLegalSuffix(t)
	})
	if len(kept) == 0 {
		kept = expanded
	}
	set := make(map[string]struct{}, len(kept))
	for _, t := range kept {
		set[t] = struct{}{}
	}
	return set
}

func synonym(tables *normalizers.Tables, token string) string {
	if rep, ok := tables.Synonym(token); ok {
		return rep
	}
	return token
}

func bestPairing(from, to []string, codesFrom, codesTo []phonetic.Codes) float64 {
	total := 0.0
	for i, token := range from {
		best := 0.0
		for j, other := range to {
			var sim float64
			if token == other {
				sim = 1
			} else {
				sim = phonetic.CodesSimilarity(codesFrom[i], codesTo[j])
			}
			if sim > best {
				best = sim
			}
			if best == 1 {
				break
			}
		}
		total += best
	}
	return total / float64(len(from))
}

// designatorOnly reports whether a union name reduced to its local number
func designatorOnly(n normalizers.NormalizedName) bool {
	return n.HasLocalNumber() && len(n.Tokens) == 0 && n.Standard == ""
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
