package matchcandidate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "match_candidates"

var insertColumns = []string{
	"id", "pass", "entity_kind", "query_id", "query_name", "reference_id", "reference_name", "local_number",
	"token_score", "phonetic_score", "edit_score", "combined_score", "vetoed", "decision", "status",
	"created_at", "updated_at",
}

var columns = append(append([]string{}, insertColumns...), "resolved_at", "resolved_by")

// rescored columns take the incoming value only when the new combined score is higher
var rescored = []string{"token_score", "phonetic_score", "edit_score", "combined_score", "vetoed", "decision", "query_name", "reference_name", "local_number"}

// Repository handles match candidate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match candidate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertBatch writes candidates, keeping the higher scoring row on conflict.
// Resolved rows keep their review status.
func (r *Repository) UpsertBatch(ctx context.Context, candidates []*models.MatchCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.UpsertBatch")
	defer span.End()

	if len(candidates) == 0 {
		return nil
	}

	query, args := buildUpsert(candidates, time.Now().UTC())
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		tracing.RecordError(span, err)
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(candidates)).Error("Failed to upsert match candidates batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert match candidates")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(candidates)}).Debug("Upserted match candidates batch")
	return nil
}

func buildUpsert(candidates []*models.MatchCandidate, now time.Time) (string, []any) {
	candidates = distinctPairs(candidates)

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(insertColumns...)

	for _, c := range candidates {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.CreatedAt = now
		c.UpdatedAt = now
		if c.Status == "" {
			c.Status = models.MatchCandidateStatusPending
		}
		ib.Values(c.ID, c.Pass, c.EntityKind, c.QueryID, c.QueryName, c.ReferenceID, c.ReferenceName, c.LocalNumber,
			c.TokenScore, c.PhoneticScore, c.EditScore, c.CombinedScore, c.Vetoed, c.Decision, c.Status,
			c.CreatedAt, c.UpdatedAt)
	}

	higher := fmt.Sprintf("EXCLUDED.combined_score > %s.combined_score", table)
	assignments := ectolinq.Map(rescored, func(col string) string {
		return fmt.Sprintf("%s = CASE WHEN %s THEN %s ELSE %s.%s END", col, higher, database.Excluded(col), table, col)
	})
	assignments = append(assignments,
		fmt.Sprintf("status = CASE WHEN %s.resolved_at IS NULL AND %s THEN EXCLUDED.status ELSE %s.status END", table, higher, table),
		"updated_at = EXCLUDED.updated_at",
	)
	database.OnConflictUpdate(ib, []string{"pass", "query_id", "reference_id"}, assignments...)

	return ib.Build()
}

// Get retrieves a match candidate by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.Get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid match candidate id %q", id)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var candidate models.MatchCandidate
	if err := database.Conn(ctx, r.db).GetContext(ctx, &candidate, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "match candidate %s not found", id)
		}
		tracing.RecordError(span, err)
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match candidate")
	}

	return &candidate, nil
}

// List returns the review queue, best scores first
func (r *Repository) List(ctx context.Context, filter models.MatchCandidateFilter) ([]models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.List")
	defer span.End()

	query, args := buildList(filter)
	candidates := []models.MatchCandidate{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &candidates, query, args...); err != nil {
		tracing.RecordError(span, err)
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match candidates")
	}

	return candidates, nil
}

func buildList(filter models.MatchCandidateFilter) (string, []any) {
	limit := filter.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)

	where := []string{}
	if filter.Pass != "" {
		where = append(where, sb.Equal("pass", filter.Pass))
	}
	if filter.Decision != "" {
		where = append(where, sb.Equal("decision", filter.Decision))
	}
	if filter.Status != "" {
		where = append(where, sb.Equal("status", filter.Status))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("combined_score DESC", "created_at DESC", "id")
	sb.Limit(limit)
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	return sb.Build()
}

// Resolve records a reviewer's approve/reject on a candidate. Candidates
// already approved or rejected cannot be resolved again.
func (r *Repository) Resolve(ctx context.Context, id string, status string, resolvedBy *string) (*models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.Resolve")
	defer span.End()

	if status != models.MatchCandidateStatusApproved && status != models.MatchCandidateStatusRejected {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "cannot resolve a match candidate to %q", status)
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.MatchCandidateStatusApproved || existing.Status == models.MatchCandidateStatusRejected {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "match candidate %s is already %s", id, existing.Status).
			AddMetaValue("status", existing.Status)
	}

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("resolved_at", now),
		ub.Assign("resolved_by", resolvedBy),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id), ub.IsNull("resolved_at"))

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		tracing.RecordError(span, err)
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve match candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve match candidate")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "match candidate %s was resolved concurrently", id)
	}

	existing.Status = status
	existing.ResolvedAt = &now
	existing.ResolvedBy = resolvedBy
	existing.UpdatedAt = now
	return existing, nil
}

// distinctPairs keeps the highest scoring candidate per conflict key, since
// one INSERT ... ON CONFLICT cannot update the same row twice
func distinctPairs(candidates []*models.MatchCandidate) []*models.MatchCandidate {
	type pairKey struct{ pass, query, reference string }
	seen := make(map[pairKey]int, len(candidates))
	out := make([]*models.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := pairKey{c.Pass, c.QueryID, c.ReferenceID}
		if i, ok := seen[key]; ok {
			if c.CombinedScore > out[i].CombinedScore {
				out[i] = c
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out
}
