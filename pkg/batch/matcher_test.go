package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/referencename"
	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
)

var testLogger = ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})

type fakeNames struct {
	mu      sync.Mutex
	tables  map[string][]referencename.Row
	streams map[string]int
}

func (f *fakeNames) Stream(ctx context.Context, src referencename.Source, fn func(referencename.Row) error) error {
	f.mu.Lock()
	if f.streams == nil {
		f.streams = map[string]int{}
	}
	f.streams[src.Table]++
	rows, ok := f.tables[src.Table]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("relation %q does not exist", src.Table)
	}
	for _, row := range rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

type fakeWriter struct {
	batches [][]*models.MatchCandidate
	err     error
}

func (w *fakeWriter) UpsertBatch(_ context.Context, candidates []*models.MatchCandidate) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, candidates)
	return nil
}

func (w *fakeWriter) all() []*models.MatchCandidate {
	out := []*models.MatchCandidate{}
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

type fakeTx struct {
	database.Querier
	committed  bool
	rolledBack bool
}

func (t *fakeTx) IsOpen() bool { return !t.committed && !t.rolledBack }

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeTransactor struct{ tx *fakeTx }

func (f *fakeTransactor) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	f.tx = &fakeTx{}
	return ctx, f.tx, nil
}

type fakeEmitter struct {
	emitted []*models.MatchCandidate
	err     error
}

func (e *fakeEmitter) EmitAutoAccepted(_ context.Context, candidates []*models.MatchCandidate) error {
	e.emitted = append(e.emitted, candidates...)
	return e.err
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func name(s string) *string { return &s }

func unionTables() map[string][]referencename.Row {
	return map[string][]referencename.Row{
		"f7_unions": {
			{ID: "q1", Name: name("United Food & Commercial Workers Local 342")},
			{ID: "q2", Name: nil},
			{ID: "q3", Name: name("Teamsters Local 9")},
		},
		"lm_data": {
			{ID: "uaw-342", Name: name("UAW Local 342")},
			{ID: "ufcw-324", Name: name("UFCW Local 324")},
			{ID: "ufcw-342", Name: name("UFCW Local 342")},
			{ID: "blank", Name: nil},
		},
	}
}

func unionPass() Pass {
	return Pass{
		Name:      "unions",
		Kind:      normalizers.KindUnion,
		Query:     referencename.Source{Table: "f7_unions", IDColumn: "id", NameColumn: "union_name"},
		Reference: referencename.Source{Table: "lm_data", IDColumn: "f_num", NameColumn: "union_name"},
	}
}

type harness struct {
	names   *fakeNames
	writer  *fakeWriter
	tx      *fakeTransactor
	emitter *fakeEmitter
	matcher *Matcher
}

func newHarness(t *testing.T, tables map[string][]referencename.Row, cfg Config, c *cache.Cache[*ReferenceSet]) *harness {
	t.Helper()
	n := normalizers.NewNormalizer(nil)
	scorer := similarity.NewScorer(n, similarity.DefaultOptions())
	h := &harness{
		names:   &fakeNames{tables: tables},
		writer:  &fakeWriter{},
		tx:      &fakeTransactor{},
		emitter: &fakeEmitter{},
	}
	h.matcher = NewMatcher(Dependencies{
		Names:      h.names,
		Writer:     h.writer,
		Tx:         h.tx,
		Emitter:    h.emitter,
		Cache:      c,
		Normalizer: n,
		Resolver:   matching.NewResolver(scorer, similarity.DefaultWeights()),
	}, cfg, testLogger)
	return h
}

func TestMatcherRun(t *testing.T) {
	ctx := context.Background()

	t.Run("should write and announce auto accepted matches", func(t *testing.T) {
		h := newHarness(t, unionTables(), Config{Workers: 3}, nil)

		summary, err := h.matcher.Run(ctx, unionPass())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Queries)
		assert.Equal(t, 1, summary.InvalidQueries)
		assert.Equal(t, 3, summary.References)
		assert.Equal(t, 1, summary.InvalidReferences)
		assert.Equal(t, 1, summary.Candidates)
		assert.Equal(t, 1, summary.Written)
		assert.Equal(t, 1, summary.Decisions[matching.DecisionAutoAccept])
		assert.Equal(t, 1, summary.Decisions[matching.DecisionReject])
		assert.Empty(t, summary.Results)

		written := h.writer.all()
		require.Len(t, written, 1)
		c := written[0]
		assert.Equal(t, "unions", c.Pass)
		assert.Equal(t, "union", c.EntityKind)
		assert.Equal(t, "q1", c.QueryID)
		assert.Equal(t, "United Food & Commercial Workers Local 342", c.QueryName)
		assert.Equal(t, "ufcw-342", c.ReferenceID)
		assert.Equal(t, "UFCW Local 342", c.ReferenceName)
		require.NotNil(t, c.LocalNumber)
		assert.Equal(t, "342", *c.LocalNumber)
		assert.Equal(t, string(matching.DecisionAutoAccept), c.Decision)
		assert.Equal(t, models.MatchCandidateStatusAutoAccepted, c.Status)

		assert.True(t, h.tx.tx.committed)
		assert.Equal(t, written, h.emitter.emitted)
	})

	t.Run("should keep rejects in write sized chunks", func(t *testing.T) {
		h := newHarness(t, unionTables(), Config{Workers: 2, WriteSize: 1}, nil)
		pass := unionPass()
		pass.KeepRejects = true

		summary, err := h.matcher.Run(ctx, pass)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Written)
		assert.Len(t, h.writer.batches, 3)

		vetoed := h.writer.batches[2][0]
		assert.Equal(t, "ufcw-324", vetoed.ReferenceID)
		assert.True(t, vetoed.Vetoed)
		assert.Equal(t, models.MatchCandidateStatusPending, vetoed.Status)
	})

	t.Run("should not write on a dry run", func(t *testing.T) {
		h := newHarness(t, unionTables(), Config{}, nil)
		pass := unionPass()
		pass.DryRun = true

		summary, err := h.matcher.Run(ctx, pass)
		require.NoError(t, err)
		assert.Empty(t, h.writer.batches)
		assert.Nil(t, h.tx.tx)
		assert.Empty(t, h.emitter.emitted)
		require.Len(t, summary.Results, 1)
		assert.True(t, summary.DryRun)
	})

	t.Run("should roll back when a write fails", func(t *testing.T) {
		h := newHarness(t, unionTables(), Config{}, nil)
		h.writer.err = errors.New("deadlock detected")

		_, err := h.matcher.Run(ctx, unionPass())
		require.Error(t, err)
		assert.True(t, h.tx.tx.rolledBack)
		assert.False(t, h.tx.tx.committed)
		assert.Empty(t, h.emitter.emitted)
	})

	t.Run("should succeed when events cannot be published", func(t *testing.T) {
		h := newHarness(t, unionTables(), Config{}, nil)
		h.emitter.err = errors.New("broker down")

		summary, err := h.matcher.Run(ctx, unionPass())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Written)
	})

	t.Run("should fail on a missing source", func(t *testing.T) {
		h := newHarness(t, unionTables(), Config{}, nil)
		pass := unionPass()
		pass.Query.Table = "missing"

		_, err := h.matcher.Run(ctx, pass)
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("should apply pass thresholds", func(t *testing.T) {
		h := newHarness(t, unionTables(), Config{}, nil)
		pass := unionPass()
		pass.Thresholds = &matching.Thresholds{AutoAccept: 1, Review: 0.2}

		summary, err := h.matcher.Run(ctx, pass)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Decisions[matching.DecisionReject])
		assert.Equal(t, 1, summary.Decisions[matching.DecisionAutoAccept])
		for _, c := range h.writer.all() {
			assert.NotEqual(t, string(matching.DecisionReject), c.Decision)
		}
		assert.Contains(t, ids(h.writer.all()), "uaw-342")
	})

	t.Run("should load each reference id once", func(t *testing.T) {
		tables := unionTables()
		tables["lm_data"] = append(tables["lm_data"],
			referencename.Row{ID: "ufcw-342", Name: name("United Food & Commercial Workers Local 342")})
		h := newHarness(t, tables, Config{}, nil)
		pass := unionPass()
		pass.DryRun = true

		summary, err := h.matcher.Run(ctx, pass)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.References)
		assert.Equal(t, 1, summary.DuplicateReferences)
		require.Len(t, summary.Results, 1)
		assert.Equal(t, "ufcw-342", summary.Results[0].ReferenceID)
		assert.Equal(t, "UFCW Local 342", summary.Results[0].ReferenceName)
	})

	t.Run("should use the designator column as a hint", func(t *testing.T) {
		tables := map[string][]referencename.Row{
			"f7_unions": {{ID: "q1", Name: name("Teamsters"), Designator: name("727")}},
			"lm_data": {
				{ID: "t-26", Name: name("Teamsters Local 26")},
				{ID: "t-727", Name: name("Teamsters Local 727")},
			},
		}
		h := newHarness(t, tables, Config{}, nil)
		pass := unionPass()
		pass.Query.DesignatorColumn = "desig_num"
		pass.DryRun = true

		summary, err := h.matcher.Run(ctx, pass)
		require.NoError(t, err)
		require.Len(t, summary.Results, 1)
		assert.Equal(t, "t-727", summary.Results[0].ReferenceID)
		require.NotNil(t, summary.Results[0].LocalNumber)
		assert.Equal(t, "727", *summary.Results[0].LocalNumber)
	})

	t.Run("should reuse cached reference sets", func(t *testing.T) {
		c, err := cache.New[*ReferenceSet](&memoryStore{data: map[string][]byte{}}, 4, time.Minute, testLogger)
		require.NoError(t, err)
		h := newHarness(t, unionTables(), Config{}, c)

		for i := 0; i < 2; i++ {
			summary, err := h.matcher.Run(ctx, unionPass())
			require.NoError(t, err)
			assert.Equal(t, 3, summary.References)
		}
		assert.Equal(t, 1, h.names.streams["lm_data"])
		assert.Equal(t, 2, h.names.streams["f7_unions"])
	})
}

func ids(candidates []*models.MatchCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.ReferenceID
	}
	return out
}

func TestMatcherSelfMatch(t *testing.T) {
	faker := gofakeit.New(42)

	rows := make([]referencename.Row, 200)
	for i := range rows {
		rows[i] = referencename.Row{ID: fmt.Sprintf("org-%d", i), Name: name(faker.Company())}
	}
	tables := map[string][]referencename.Row{"employers": rows}

	h := newHarness(t, tables, Config{Workers: 4}, nil)
	pass := Pass{
		Name:      "self",
		Kind:      normalizers.KindEmployer,
		Query:     referencename.Source{Table: "employers", IDColumn: "id", NameColumn: "name"},
		Reference: referencename.Source{Table: "employers", IDColumn: "id", NameColumn: "name"},
		Limit:     1,
		DryRun:    true,
	}

	summary, err := h.matcher.Run(context.Background(), pass)
	require.NoError(t, err)

	t.Run("should auto accept every name against itself", func(t *testing.T) {
		assert.Equal(t, len(rows), summary.Queries)
		assert.Equal(t, len(rows), summary.Decisions[matching.DecisionAutoAccept])
		require.Len(t, summary.Results, len(rows))
		for _, c := range summary.Results {
			assert.Equal(t, 1.0, c.CombinedScore, c.QueryName)
		}
	})

	t.Run("should report results in query order", func(t *testing.T) {
		for i, c := range summary.Results {
			assert.Equal(t, rows[i].ID, c.QueryID)
		}
	})
}
