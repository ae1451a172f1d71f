package matchcandidate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes/routestest"
)

type fakeRepo struct {
	candidates map[string]*models.MatchCandidate
	filter     models.MatchCandidateFilter
}

func (f *fakeRepo) List(_ context.Context, filter models.MatchCandidateFilter) ([]models.MatchCandidate, error) {
	f.filter = filter
	out := []models.MatchCandidate{}
	for _, c := range f.candidates {
		if filter.Decision == "" || c.Decision == filter.Decision {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*models.MatchCandidate, error) {
	c, ok := f.candidates[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "match candidate %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) Resolve(ctx context.Context, id string, status string, resolvedBy *string) (*models.MatchCandidate, error) {
	c, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ResolvedAt != nil {
		return nil, httperror.NewHTTPError(http.StatusConflict, "already resolved")
	}
	now := time.Now()
	c.Status = status
	c.ResolvedAt = &now
	c.ResolvedBy = resolvedBy
	f.candidates[id] = c
	return c, nil
}

type fakeEmitter struct {
	resolved []*models.MatchCandidate
	err      error
}

func (f *fakeEmitter) EmitResolved(_ context.Context, c *models.MatchCandidate) error {
	f.resolved = append(f.resolved, c)
	return f.err
}

func newHarness(t *testing.T) (*routestest.Harness, *fakeRepo, *fakeEmitter) {
	repo := &fakeRepo{candidates: map[string]*models.MatchCandidate{
		"c1": {ID: "c1", Pass: "unions", QueryID: "q1", ReferenceID: "r1", CombinedScore: 0.72, Decision: string(matching.DecisionNeedsReview), Status: models.MatchCandidateStatusPending},
		"c2": {ID: "c2", Pass: "unions", QueryID: "q2", ReferenceID: "r2", CombinedScore: 0.95, Decision: string(matching.DecisionAutoAccept), Status: models.MatchCandidateStatusAutoAccepted},
	}}
	emitter := &fakeEmitter{}

	h := routestest.New(t, "/api/v1/match-candidates", Register)
	routestest.Provide[Repository](h, repo)
	routestest.Provide[Emitter](h, emitter)
	return h, repo, emitter
}

func TestListMatchCandidates(t *testing.T) {
	h, repo, _ := newHarness(t)

	t.Run("should bind the filter", func(t *testing.T) {
		rec := h.Do(http.MethodGet, "/api/v1/match-candidates?pass=unions&decision=needs_review&limit=20&offset=40", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := routestest.Decode[[]models.MatchCandidate](t, rec)
		require.Len(t, got, 1)
		assert.Equal(t, "c1", got[0].ID)
		assert.Equal(t, models.MatchCandidateFilter{Pass: "unions", Decision: "needs_review", Limit: 20, Offset: 40}, repo.filter)
	})

	t.Run("should reject an unknown decision", func(t *testing.T) {
		rec := h.Do(http.MethodGet, "/api/v1/match-candidates?decision=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject an oversized page", func(t *testing.T) {
		rec := h.Do(http.MethodGet, "/api/v1/match-candidates?limit=5000", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetMatchCandidate(t *testing.T) {
	h, _, _ := newHarness(t)

	t.Run("should return a candidate", func(t *testing.T) {
		rec := h.Do(http.MethodGet, "/api/v1/match-candidates/c2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "r2", routestest.Decode[models.MatchCandidate](t, rec).ReferenceID)
	})

	t.Run("should return 404 for an unknown id", func(t *testing.T) {
		rec := h.Do(http.MethodGet, "/api/v1/match-candidates/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestResolveMatchCandidate(t *testing.T) {
	t.Run("should approve with the caller as reviewer", func(t *testing.T) {
		h, repo, emitter := newHarness(t)
		h.Headers[middleware.HeaderUserID] = "reviewer-7"

		rec := h.Do(http.MethodPost, "/api/v1/match-candidates/c1/approve", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := routestest.Decode[models.MatchCandidate](t, rec)
		assert.Equal(t, models.MatchCandidateStatusApproved, got.Status)
		require.NotNil(t, got.ResolvedBy)
		assert.Equal(t, "reviewer-7", *got.ResolvedBy)
		assert.Equal(t, models.MatchCandidateStatusApproved, repo.candidates["c1"].Status)
		require.Len(t, emitter.resolved, 1)
		assert.Equal(t, "c1", emitter.resolved[0].ID)
	})

	t.Run("should prefer the reviewer named in the body", func(t *testing.T) {
		h, _, _ := newHarness(t)
		h.Headers[middleware.HeaderUserID] = "reviewer-7"

		rec := h.Do(http.MethodPost, "/api/v1/match-candidates/c2/reject", map[string]any{"resolved_by": "auditor"})
		require.Equal(t, http.StatusOK, rec.Code)

		got := routestest.Decode[models.MatchCandidate](t, rec)
		assert.Equal(t, models.MatchCandidateStatusRejected, got.Status)
		assert.Equal(t, "auditor", *got.ResolvedBy)
	})

	t.Run("should leave the reviewer empty when unknown", func(t *testing.T) {
		h, _, _ := newHarness(t)
		rec := h.Do(http.MethodPost, "/api/v1/match-candidates/c1/reject", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, routestest.Decode[models.MatchCandidate](t, rec).ResolvedBy)
	})

	t.Run("should return 409 on a second resolution", func(t *testing.T) {
		h, _, emitter := newHarness(t)
		require.Equal(t, http.StatusOK, h.Do(http.MethodPost, "/api/v1/match-candidates/c1/approve", nil).Code)

		rec := h.Do(http.MethodPost, "/api/v1/match-candidates/c1/reject", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Len(t, emitter.resolved, 1)
	})

	t.Run("should keep the decision when the event fails", func(t *testing.T) {
		h, repo, emitter := newHarness(t)
		emitter.err = errors.New("broker down")

		rec := h.Do(http.MethodPost, "/api/v1/match-candidates/c1/approve", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.MatchCandidateStatusApproved, repo.candidates["c1"].Status)
	})

	t.Run("should return 404 for an unknown id", func(t *testing.T) {
		h, _, emitter := newHarness(t)
		rec := h.Do(http.MethodPost, "/api/v1/match-candidates/nope/approve", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, emitter.resolved)
	})
}
