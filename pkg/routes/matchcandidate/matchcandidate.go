package matchcandidate

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Repository is the review queue store
type Repository interface {
	List(ctx context.Context, filter models.MatchCandidateFilter) ([]models.MatchCandidate, error)
	Get(ctx context.Context, id string) (*models.MatchCandidate, error)
	Resolve(ctx context.Context, id string, status string, resolvedBy *string) (*models.MatchCandidate, error)
}

// Emitter announces review outcomes
type Emitter interface {
	EmitResolved(ctx context.Context, candidate *models.MatchCandidate) error
}

// Register registers match candidate routes
func Register(g *echo.Group) {
	g.GET("", ListMatchCandidates)
	g.GET("/:id", GetMatchCandidate)
	g.POST("/:id/approve", ApproveMatchCandidate)
	g.POST("/:id/reject", RejectMatchCandidate)
}

// ListMatchCandidates lists the review queue, best scores first
func ListMatchCandidates(c echo.Context) error {
	ctx := c.Request().Context()

	filter, err := utils.BindRequest[models.MatchCandidateFilter](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	candidates, err := repo.List(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, candidates)
}

// GetMatchCandidate gets a match candidate by id
func GetMatchCandidate(c echo.Context) error {
	ctx, repo, err := ectoinject.GetContext[Repository](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	candidate, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, candidate)
}

// ApproveMatchCandidate confirms a candidate link
func ApproveMatchCandidate(c echo.Context) error {
	return resolve(c, models.MatchCandidateStatusApproved)
}

// RejectMatchCandidate dismisses a candidate link
func RejectMatchCandidate(c echo.Context) error {
	return resolve(c, models.MatchCandidateStatusRejected)
}

func resolve(c echo.Context, status string) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	req, err := utils.BindRequest[models.ResolveMatchCandidateRequest](c)
	if err != nil {
		return err
	}

	resolvedBy := req.ResolvedBy
	if resolvedBy == "" {
		resolvedBy = appctx.GetUserID(ctx)
	}
	var reviewer *string
	if resolvedBy != "" {
		reviewer = &resolvedBy
	}

	ctx, repo, err := ectoinject.GetContext[Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, emitter, err := ectoinject.GetContext[Emitter](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	candidate, err := repo.Resolve(ctx, id, status, reviewer)
	if err != nil {
		return err
	}

	log := logger.WithContext(ctx).WithFields(map[string]any{
		"match_candidate_id": id,
		"status":             status,
		"resolved_by":        resolvedBy,
	})
	// the decision is already stored, a failed announcement does not undo it
	if err := emitter.EmitResolved(ctx, candidate); err != nil {
		log.WithError(err).Warn("Failed to emit resolved event")
	}

	log.Info("Resolved match candidate")
	return c.JSON(http.StatusOK, candidate)
}
