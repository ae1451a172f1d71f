// Package batch runs configured matching passes between two name sources in
// olms_multiyear and records the decisions in the review queue.
package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/clover/internal/repositories/referencename"
	"github.com/Ramsey-B/clover/pkg/cache"
	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// NameSource streams organization names from a table
type NameSource interface {
	Stream(ctx context.Context, src referencename.Source, fn func(referencename.Row) error) error
}

// CandidateWriter persists scored candidates
type CandidateWriter interface {
	UpsertBatch(ctx context.Context, candidates []*models.MatchCandidate) error
}

// Transactor opens a transaction carried on the returned context
type Transactor interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// EventEmitter announces auto accepted matches
type EventEmitter interface {
	EmitAutoAccepted(ctx context.Context, candidates []*models.MatchCandidate) error
}

// Config holds the matcher's defaults
type Config struct {
	Workers   int
	WriteSize int
	// Thresholds returns the default thresholds for a kind
	Thresholds func(normalizers.Kind) matching.Thresholds
}

// Dependencies are the matcher's collaborators. Writer, Tx, Emitter and
// Cache may be nil.
type Dependencies struct {
	Names      NameSource
	Writer     CandidateWriter
	Tx         Transactor
	Emitter    EventEmitter
	Cache      *cache.Cache[*ReferenceSet]
	Normalizer *normalizers.Normalizer
	Resolver   *matching.Resolver
}

// Summary reports the outcome of a pass
type Summary struct {
	Pass              string           `json:"pass"`
	Kind              normalizers.Kind `json:"kind"`
	Queries           int              `json:"queries"`
	InvalidQueries    int              `json:"invalid_queries"`
	References        int              `json:"references"`
	InvalidReferences int              `json:"invalid_references"`
	// DuplicateReferences counts reference rows skipped for a repeated id
	DuplicateReferences int                       `json:"duplicate_references"`
	Candidates          int                       `json:"candidates"`
	Written             int                       `json:"written"`
	Decisions           map[matching.Decision]int `json:"decisions"`
	DryRun              bool                      `json:"dry_run"`
	Duration            string                    `json:"duration"`
	// Results holds the kept candidates of a dry run
	Results []*models.MatchCandidate `json:"results,omitempty"`
}

// Matcher runs passes
type Matcher struct {
	deps   Dependencies
	cfg    Config
	logger ectologger.Logger
}

// NewMatcher creates a new Matcher
func NewMatcher(deps Dependencies, cfg Config, logger ectologger.Logger) *Matcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.WriteSize < 1 {
		cfg.WriteSize = 500
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = func(normalizers.Kind) matching.Thresholds { return matching.DefaultThresholds() }
	}
	return &Matcher{deps: deps, cfg: cfg, logger: logger}
}

type queryResult struct {
	index      int
	row        referencename.Row
	best       matching.Decision
	candidates []*models.MatchCandidate
}

// Run executes one pass
func (m *Matcher) Run(ctx context.Context, pass Pass) (*Summary, error) {
	if err := pass.Validate(); err != nil {
		return nil, err
	}

	ctx = appctx.SetPass(ctx, pass.Name)
	ctx, span := tracing.StartSpan(ctx, "batch.Matcher.Run")
	defer span.End()

	start := time.Now()
	log := m.logger.WithContext(ctx).WithFields(map[string]any{"pass": pass.Name, "kind": pass.Kind})

	summary, err := m.run(ctx, pass)
	status := "success"
	if err != nil {
		status = "error"
		tracing.RecordError(span, err)
	}
	references := 0
	if summary != nil {
		references = summary.References
		summary.Duration = time.Since(start).Round(time.Millisecond).String()
	}
	metrics.RecordPass(pass.Name, status, time.Since(start).Seconds(), references)

	if err != nil {
		log.WithError(err).Error("Pass failed")
		return nil, err
	}
	log.WithFields(map[string]any{
		"queries":    summary.Queries,
		"candidates": summary.Candidates,
		"written":    summary.Written,
		"duration":   summary.Duration,
	}).Info("Pass complete")
	return summary, nil
}

func (m *Matcher) run(ctx context.Context, pass Pass) (*Summary, error) {
	set, err := m.LoadReferences(ctx, pass.Kind, pass.Reference)
	if err != nil {
		return nil, err
	}
	metrics.RecordInvalidInputs(pass.Name, "reference", set.Invalid)
	index := NewIndex(set, m.deps.Resolver.Scorer())

	summary := &Summary{
		Pass:                pass.Name,
		Kind:                pass.Kind,
		References:          index.Len(),
		InvalidReferences:   set.Invalid,
		DuplicateReferences: set.Duplicates,
		Decisions:           map[matching.Decision]int{},
		DryRun:              pass.DryRun,
	}

	results, err := m.matchQueries(ctx, pass, index, summary)
	if err != nil {
		return nil, err
	}

	kept := []*models.MatchCandidate{}
	accepted := []*models.MatchCandidate{}
	for _, r := range results {
		summary.Decisions[r.best]++
		metrics.RecordDecision(pass.Name, string(pass.Kind), string(r.best))
		for _, c := range r.candidates {
			kept = append(kept, c)
			if c.Decision == string(matching.DecisionAutoAccept) {
				accepted = append(accepted, c)
			}
		}
	}
	summary.Candidates = len(kept)

	if pass.DryRun || m.deps.Writer == nil {
		summary.Results = kept
		return summary, nil
	}

	if err := m.write(ctx, kept); err != nil {
		return nil, err
	}
	summary.Written = len(kept)

	if m.deps.Emitter != nil {
		// the decisions are committed, so a broker outage only loses the notification
		if err := m.deps.Emitter.EmitAutoAccepted(ctx, accepted); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("Failed to emit auto accepted matches")
		}
	}
	return summary, nil
}

// Thresholds returns the default thresholds for a kind
func (m *Matcher) Thresholds(kind normalizers.Kind) matching.Thresholds {
	return m.cfg.Thresholds(kind)
}

// LoadReferences normalizes a reference source, through the cache when one
// is configured
func (m *Matcher) LoadReferences(ctx context.Context, kind normalizers.Kind, src referencename.Source) (*ReferenceSet, error) {
	ctx, span := tracing.StartSpan(ctx, "batch.Matcher.LoadReferences")
	defer span.End()

	load := func(ctx context.Context) (*ReferenceSet, error) {
		return m.loadReferences(ctx, kind, src)
	}
	if m.deps.Cache == nil {
		return load(ctx)
	}

	key := cache.ReferenceKey(kind, src.Key(), m.deps.Normalizer.Tables().Fingerprint())
	return m.deps.Cache.GetOrLoad(ctx, key, load)
}

func (m *Matcher) loadReferences(ctx context.Context, kind normalizers.Kind, src referencename.Source) (*ReferenceSet, error) {
	set := &ReferenceSet{Kind: kind, Entries: []ReferenceEntry{}}
	seen := map[string]struct{}{}
	err := m.deps.Names.Stream(ctx, src, func(row referencename.Row) error {
		if _, ok := seen[row.ID]; ok {
			set.Duplicates++
			return nil
		}
		seen[row.ID] = struct{}{}

		name, err := m.deps.Normalizer.Normalize(rawName(row, kind))
		if errors.Is(err, normalizers.ErrInvalidInput) {
			set.Invalid++
			return nil
		}
		if err != nil {
			return err
		}
		set.Entries = append(set.Entries, ReferenceEntry{ID: row.ID, Raw: *row.Name, Name: name})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load references from %s: %w", src.Table, err)
	}
	if set.Duplicates > 0 {
		m.logger.WithContext(ctx).WithFields(map[string]any{"table": src.Table, "duplicates": set.Duplicates}).
			Warn("Skipped reference rows with duplicate ids")
	}
	return set, nil
}

func (m *Matcher) matchQueries(ctx context.Context, pass Pass, index *Index, summary *Summary) ([]queryResult, error) {
	opts := matching.Options{
		Thresholds:     m.cfg.Thresholds(pass.Kind),
		DesignatorVeto: pass.DesignatorVeto,
		MinScore:       pass.MinScore,
	}
	if pass.Thresholds != nil {
		opts.Thresholds = *pass.Thresholds
	}
	if pass.Weights != nil {
		opts.Weights = *pass.Weights
	}
	weights := m.deps.Resolver.EffectiveWeights(opts.Weights)
	positions := index.Positions()

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan queryResult, m.cfg.Workers*4)

	var mu sync.Mutex
	results := []queryResult{}

	g.Go(func() error {
		defer close(rows)
		i := 0
		return m.deps.Names.Stream(gctx, pass.Query, func(row referencename.Row) error {
			select {
			case rows <- queryResult{index: i, row: row}:
				i++
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	for w := 0; w < m.cfg.Workers; w++ {
		g.Go(func() error {
			for item := range rows {
				query, err := m.deps.Normalizer.Normalize(rawName(item.row, pass.Kind))
				if errors.Is(err, normalizers.ErrInvalidInput) {
					metrics.RecordInvalidInputs(pass.Name, "query", 1)
					mu.Lock()
					summary.InvalidQueries++
					mu.Unlock()
					continue
				}
				if err != nil {
					return err
				}

				candidates := index.All()
				if pass.Block != BlockNone {
					candidates = index.Candidates(query, weights, opts.Thresholds.Review)
				}
				ranked, err := m.deps.Resolver.Rank(query, candidates, opts)
				if err != nil {
					return err
				}

				item.best = matching.DecisionReject
				if len(ranked) > 0 {
					item.best = ranked[0].Decision
				}
				if !pass.KeepRejects {
					ranked = ectolinq.Filter(ranked, func(c matching.MatchCandidate) bool {
						return c.Decision != matching.DecisionReject
					})
				}
				ranked = ectolinq.Take(ranked, pass.Limit)
				item.candidates = ectolinq.Map(ranked, func(c matching.MatchCandidate) *models.MatchCandidate {
					return toModel(pass, item.row, query, c, index.Entry(positions[c.ReferenceID]).Raw)
				})

				metrics.RecordQuery(pass.Name, string(pass.Kind))
				mu.Lock()
				summary.Queries++
				results = append(results, item)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to match %s: %w", pass.Query.Table, err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	return results, nil
}

// write upserts every candidate in WriteSize chunks inside one transaction
func (m *Matcher) write(ctx context.Context, candidates []*models.MatchCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "batch.Matcher.write")
	defer span.End()

	if len(candidates) == 0 {
		return nil
	}

	var tx database.Tx
	if m.deps.Tx != nil {
		txCtx, opened, err := m.deps.Tx.GetTx(ctx, nil)
		if err != nil {
			return err
		}
		ctx, tx = txCtx, opened
		defer tx.Rollback(ctx)
	}

	for _, chunk := range ectolinq.Chunk(candidates, m.cfg.WriteSize) {
		if err := m.deps.Writer.UpsertBatch(ctx, chunk); err != nil {
			tracing.RecordError(span, err)
			return err
		}
	}

	if tx != nil {
		return tx.Commit(ctx)
	}
	return nil
}

func rawName(row referencename.Row, kind normalizers.Kind) normalizers.RawName {
	raw := normalizers.RawName{Name: row.Name, Kind: kind}
	if row.City != nil {
		raw.City = *row.City
	}
	if row.State != nil {
		raw.State = *row.State
	}
	if row.Designator != nil {
		raw.Designator = *row.Designator
	}
	return raw
}

func toModel(pass Pass, row referencename.Row, query normalizers.NormalizedName, c matching.MatchCandidate, referenceRaw string) *models.MatchCandidate {
	decision := c.Decision
	candidate := &models.MatchCandidate{
		Pass:          pass.Name,
		EntityKind:    string(pass.Kind),
		QueryID:       row.ID,
		QueryName:     *row.Name,
		ReferenceID:   c.ReferenceID,
		ReferenceName: referenceRaw,
		TokenScore:    c.TokenScore,
		PhoneticScore: c.PhoneticScore,
		EditScore:     c.EditScore,
		CombinedScore: c.CombinedScore,
		Vetoed:        c.Vetoed,
		Decision:      string(decision),
		Status:        models.StatusForDecision(decision),
	}
	if query.HasLocalNumber() {
		local := query.LocalNumber
		candidate.LocalNumber = &local
	}
	return candidate
}
