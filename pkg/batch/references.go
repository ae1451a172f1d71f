package batch

import (
	"slices"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
)

// ReferenceEntry is a normalized reference name with its source text
type ReferenceEntry struct {
	ID   string                     `json:"id"`
	Raw  string                     `json:"raw"`
	Name normalizers.NormalizedName `json:"name"`
}

// ReferenceSet is the normalized reference side of a pass. It is what the
// reference cache stores.
type ReferenceSet struct {
	Kind    normalizers.Kind `json:"kind"`
	Entries []ReferenceEntry `json:"entries"`
	// Invalid counts rows skipped for an absent name
	Invalid int `json:"invalid"`
	// Duplicates counts rows skipped because their id was already loaded
	Duplicates int `json:"duplicates"`
}

// Index blocks a reference set by expanded token and metaphone key so each
// query is only scored against references it could plausibly match
type Index struct {
	set        *ReferenceSet
	references []matching.Reference
	byKey      map[string][]int
	// unkeyed references have no tokens and are scored phonetically against
	// every query
	unkeyed []int
	scorer  *similarity.Scorer
}

// NewIndex builds the blocking index for a reference set
func NewIndex(set *ReferenceSet, scorer *similarity.Scorer) *Index {
	idx := &Index{
		set:        set,
		references: make([]matching.Reference, len(set.Entries)),
		byKey:      map[string][]int{},
		scorer:     scorer,
	}
	for i, entry := range set.Entries {
		idx.references[i] = matching.Reference{ID: entry.ID, Name: entry.Name}
		keys := scorer.BlockingKeys(entry.Name)
		if len(keys) == 0 {
			idx.unkeyed = append(idx.unkeyed, i)
		}
		for _, key := range keys {
			idx.byKey[key] = append(idx.byKey[key], i)
		}
	}
	return idx
}

// Len is the number of references
func (idx *Index) Len() int {
	return len(idx.references)
}

// Entry returns the reference entry with the given position
func (idx *Index) Entry(i int) ReferenceEntry {
	return idx.set.Entries[i]
}

// All returns every reference in load order
func (idx *Index) All() []matching.Reference {
	return idx.references
}

// Candidates returns, in load order, every reference the query could score
// at or above the review threshold against. Only references sharing a
// blocking key qualify, unless a pair without one could still reach review
// with these weights; then, as for a query without tokens, everything does.
func (idx *Index) Candidates(query normalizers.NormalizedName, w similarity.Weights, review float64) []matching.Reference {
	keys := idx.scorer.BlockingKeys(query)
	if len(keys) == 0 || idx.scorer.UnblockedCeiling(w) >= review {
		return idx.references
	}

	positions := slices.Clone(idx.unkeyed)
	for _, key := range keys {
		positions = append(positions, idx.byKey[key]...)
	}
	positions = ectolinq.Distinct(positions)
	slices.Sort(positions)

	return ectolinq.Map(positions, func(i int) matching.Reference {
		return idx.references[i]
	})
}

// Positions maps reference ids back to entries for persistence. Ids are
// unique within a loaded set.
func (idx *Index) Positions() map[string]int {
	positions := make(map[string]int, len(idx.references))
	for i, ref := range idx.references {
		positions[ref.ID] = i
	}
	return positions
}
