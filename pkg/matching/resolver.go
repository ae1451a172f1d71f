// Package matching ranks reference names against a query and classifies the
// results
package matching

import (
	"errors"
	"sort"

	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
)

// ErrInvalidThresholds is returned unless 0 <= Review <= AutoAccept <= 1
var ErrInvalidThresholds = errors.New("invalid thresholds: require 0 <= review <= auto_accept <= 1")

// Decision is the outcome of classifying a candidate score
type Decision string

const (
	DecisionAutoAccept  Decision = "auto_accept"
	DecisionNeedsReview Decision = "needs_review"
	DecisionReject      Decision = "reject"
)

// Thresholds are the inclusive lower bounds of the accept and review bands
type Thresholds struct {
	AutoAccept float64 `json:"auto_accept" yaml:"auto_accept"`
	Review     float64 `json:"review" yaml:"review"`
}

// DefaultThresholds returns the standard 0.90 / 0.60 bands
func DefaultThresholds() Thresholds {
	return Thresholds{AutoAccept: 0.90, Review: 0.60}
}

// Validate checks the bands are ordered and in range
func (t Thresholds) Validate() error {
	if t.Review < 0 || t.AutoAccept > 1 || t.Review > t.AutoAccept {
		return ErrInvalidThresholds
	}
	return nil
}

// Classify maps a score onto a decision. Both bounds are inclusive.
func Classify(score float64, t Thresholds) Decision {
	switch {
	case score >= t.AutoAccept:
		return DecisionAutoAccept
	case score >= t.Review:
		return DecisionNeedsReview
	default:
		return DecisionReject
	}
}

// Reference is a normalized name from the reference set
type Reference struct {
	ID   string                     `json:"id"`
	Name normalizers.NormalizedName `json:"name"`
}

// MatchCandidate pairs the query with one reference
type MatchCandidate struct {
	ReferenceID   string                     `json:"reference_id"`
	Reference     normalizers.NormalizedName `json:"reference"`
	TokenScore    float64                    `json:"token_score"`
	PhoneticScore float64                    `json:"phonetic_score"`
	EditScore     float64                    `json:"edit_score"`
	CombinedScore float64                    `json:"combined_score"`
	Vetoed        bool                       `json:"vetoed"`
	Decision      Decision                   `json:"decision"`
	Rank          int                        `json:"rank"`
}

// Options customizes a single ranking
type Options struct {
	Thresholds Thresholds
	Weights    similarity.Weights
	// DesignatorVeto overrides the scorer's veto policy when set
	DesignatorVeto *bool
	// Limit keeps only the first Limit candidates when positive
	Limit int
	// MinScore drops candidates scoring below it
	MinScore float64
}

// Resolver ranks candidates for a query. It is safe for concurrent use.
type Resolver struct {
	scorer  *similarity.Scorer
	weights similarity.Weights
}

// NewResolver creates a Resolver using the scorer and default weights
func NewResolver(scorer *similarity.Scorer, weights similarity.Weights) *Resolver {
	return &Resolver{scorer: scorer, weights: weights}
}

// Scorer returns the resolver's scorer
func (r *Resolver) Scorer() *similarity.Scorer {
	return r.scorer
}

// FindBestMatch scores every candidate against the query and returns them
// best first, classified against the thresholds
func (r *Resolver) FindBestMatch(query normalizers.NormalizedName, candidates []Reference, thresholds Thresholds) ([]MatchCandidate, error) {
	return r.Rank(query, candidates, Options{Thresholds: thresholds, Weights: r.weights})
}

// Rank is FindBestMatch with per-call options
func (r *Resolver) Rank(query normalizers.NormalizedName, candidates []Reference, opts Options) ([]MatchCandidate, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	weights := r.EffectiveWeights(opts.Weights)
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	scorer := r.scorer
	if opts.DesignatorVeto != nil {
		scorer = scorer.WithDesignatorVeto(*opts.DesignatorVeto)
	}

	type ranked struct {
		MatchCandidate
		sizeGap   int
		sameState bool
		index     int
	}

	results := make([]ranked, 0, len(candidates))
	for i, ref := range candidates {
		score := scorer.Compare(query, ref.Name, weights)
		if score.Combined < opts.MinScore {
			continue
		}
		results = append(results, ranked{
			MatchCandidate: MatchCandidate{
				ReferenceID:   ref.ID,
				Reference:     ref.Name,
				TokenScore:    score.Token,
				PhoneticScore: score.Phonetic,
				EditScore:     score.Edit,
				CombinedScore: score.Combined,
				Vetoed:        score.Vetoed,
				Decision:      Classify(score.Combined, opts.Thresholds),
			},
			sizeGap:   abs(len(ref.Name.Tokens) - len(query.Tokens)),
			sameState: query.State != "" && query.State == ref.Name.State,
			index:     i,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.sizeGap != b.sizeGap {
			return a.sizeGap < b.sizeGap
		}
		if a.sameState != b.sameState {
			return a.sameState
		}
		return a.index < b.index
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	out := make([]MatchCandidate, len(results))
	for i, r := range results {
		out[i] = r.MatchCandidate
		out[i].Rank = i + 1
	}
	return out, nil
}

// Classify maps a candidate's combined score onto a decision
func (r *Resolver) Classify(c MatchCandidate, t Thresholds) Decision {
	return Classify(c.CombinedScore, t)
}

// EffectiveWeights returns w, or the resolver's weights when w is unset
func (r *Resolver) EffectiveWeights(w similarity.Weights) similarity.Weights {
	if w == (similarity.Weights{}) {
		return r.weights
	}
	return w
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
