package match

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/referencename"
	"github.com/Ramsey-B/clover/pkg/batch"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// metricsPass labels interactive matches in the pass metrics
const metricsPass = "api"

// References is the part of the batch matcher the route needs to match
// against a stored source
type References interface {
	LoadReferences(ctx context.Context, kind normalizers.Kind, src referencename.Source) (*batch.ReferenceSet, error)
	Thresholds(kind normalizers.Kind) matching.Thresholds
}

// Candidate is an inline reference name
type Candidate struct {
	ID         string  `json:"id" validate:"required"`
	Name       *string `json:"name"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Designator string  `json:"designator"`
}

// Request is the body of POST /match. Exactly one of Candidates or Source
// must be given.
type Request struct {
	Query          *string               `json:"query"`
	Kind           string                `json:"kind" validate:"omitempty,oneof=employer union"`
	City           string                `json:"city"`
	State          string                `json:"state"`
	Designator     string                `json:"designator"`
	Candidates     []Candidate           `json:"candidates" validate:"omitempty,dive"`
	Source         *referencename.Source `json:"source"`
	Thresholds     *matching.Thresholds  `json:"thresholds"`
	Weights        *similarity.Weights   `json:"weights"`
	DesignatorVeto *bool                 `json:"designator_veto"`
	Limit          int                   `json:"limit" validate:"omitempty,min=1,max=500"`
	MinScore       float64               `json:"min_score" validate:"omitempty,min=0,max=1"`
}

// Response is the ranked result of a match
type Response struct {
	Query             normalizers.NormalizedName `json:"query"`
	Decision          matching.Decision          `json:"decision"`
	Candidates        []matching.MatchCandidate  `json:"candidates"`
	Considered        int                        `json:"considered"`
	InvalidCandidates int                        `json:"invalid_candidates"`
}

// Register registers match routes
func Register(g *echo.Group) {
	g.POST("", Match)
}

// Match ranks reference names against one query name
func Match(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[Request](c)
	if err != nil {
		return err
	}
	if (len(req.Candidates) == 0) == (req.Source == nil) {
		return httperror.NewHTTPError(http.StatusBadRequest, "exactly one of candidates or source is required")
	}

	kind, err := normalizers.ParseKind(req.Kind)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	ctx, normalizer, err := ectoinject.GetContext[*normalizers.Normalizer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, resolver, err := ectoinject.GetContext[*matching.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, references, err := ectoinject.GetContext[References](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	query, err := normalizer.Normalize(normalizers.RawName{
		Name:       req.Query,
		Kind:       kind,
		City:       req.City,
		State:      req.State,
		Designator: req.Designator,
	})
	if errors.Is(err, normalizers.ErrInvalidInput) {
		return httperror.NewHTTPError(http.StatusBadRequest, "query is required").AddMetaValue("field", "query")
	}
	if err != nil {
		return err
	}

	resp := Response{Query: query, Candidates: []matching.MatchCandidate{}}

	opts := matching.Options{
		Thresholds:     references.Thresholds(kind),
		DesignatorVeto: req.DesignatorVeto,
		Limit:          req.Limit,
		MinScore:       req.MinScore,
	}
	if req.Thresholds != nil {
		opts.Thresholds = *req.Thresholds
	}
	if req.Weights != nil {
		if err := req.Weights.Validate(); err != nil {
			return httperror.WrapError(http.StatusBadRequest, err)
		}
		opts.Weights = *req.Weights
	}

	var pool []matching.Reference
	if req.Source != nil {
		if err := req.Source.Validate(); err != nil {
			return httperror.WrapError(http.StatusBadRequest, err)
		}
		// filters are raw SQL and only trusted from pass files
		if req.Source.Filter != "" {
			return httperror.NewHTTPError(http.StatusBadRequest, "source.filter is not accepted over http")
		}
		set, err := references.LoadReferences(ctx, kind, *req.Source)
		if err != nil {
			return err
		}
		index := batch.NewIndex(set, resolver.Scorer())
		pool = index.Candidates(query, resolver.EffectiveWeights(opts.Weights), opts.Thresholds.Review)
		resp.InvalidCandidates = set.Invalid
	} else {
		pool, resp.InvalidCandidates = normalizeCandidates(normalizer, kind, req.Candidates)
	}
	resp.Considered = len(pool)
	metrics.RecordInvalidInputs(metricsPass, "reference", resp.InvalidCandidates)

	ranked, err := resolver.Rank(query, pool, opts)
	if errors.Is(err, matching.ErrInvalidThresholds) {
		return httperror.WrapError(http.StatusBadRequest, err)
	}
	if err != nil {
		return err
	}

	resp.Decision = matching.DecisionReject
	if len(ranked) > 0 {
		resp.Decision = ranked[0].Decision
		resp.Candidates = ranked
	}
	metrics.RecordQuery(metricsPass, string(kind))
	metrics.RecordDecision(metricsPass, string(kind), string(resp.Decision))

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"kind":       kind,
			"considered": resp.Considered,
			"decision":   resp.Decision,
		}).Debug("Matched query")
	}

	return c.JSON(http.StatusOK, resp)
}

func normalizeCandidates(normalizer *normalizers.Normalizer, kind normalizers.Kind, candidates []Candidate) ([]matching.Reference, int) {
	refs := make([]matching.Reference, 0, len(candidates))
	invalid := 0
	for _, cand := range candidates {
		name, err := normalizer.Normalize(normalizers.RawName{
			Name:       cand.Name,
			Kind:       kind,
			City:       cand.City,
			State:      cand.State,
			Designator: cand.Designator,
		})
		if err != nil {
			invalid++
			continue
		}
		refs = append(refs, matching.Reference{ID: cand.ID, Name: name})
	}
	return refs, invalid
}
