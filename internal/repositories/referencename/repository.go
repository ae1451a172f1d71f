package referencename

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Source describes where a set of organization names lives in olms_multiyear
type Source struct {
	Table       string `yaml:"table" json:"table" validate:"required"`
	IDColumn    string `yaml:"id_column" json:"id_column" validate:"required"`
	NameColumn  string `yaml:"name_column" json:"name_column" validate:"required"`
	CityColumn  string `yaml:"city_column,omitempty" json:"city_column,omitempty"`
	StateColumn string `yaml:"state_column,omitempty" json:"state_column,omitempty"`
	// DesignatorColumn holds a separate local number, e.g. lm_data.desig_num
	DesignatorColumn string `yaml:"designator_column,omitempty" json:"designator_column,omitempty"`
	// Filter is an optional SQL predicate, e.g. "yr_covered >= 2015"
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`
}

// Key identifies the source in cache keys and logs
func (s Source) Key() string {
	key := s.Table + "." + s.IDColumn + "." + s.NameColumn
	if extra := s.CityColumn + "," + s.StateColumn + "," + s.DesignatorColumn; extra != ",," {
		key += "[" + extra + "]"
	}
	if s.Filter != "" {
		key += "?" + s.Filter
	}
	return key
}

func (s Source) Validate() error {
	for _, ident := range []string{s.Table, s.IDColumn, s.NameColumn} {
		if !identifierPattern.MatchString(ident) {
			return fmt.Errorf("invalid identifier %q", ident)
		}
	}
	for _, ident := range []string{s.CityColumn, s.StateColumn, s.DesignatorColumn} {
		if ident != "" && !identifierPattern.MatchString(ident) {
			return fmt.Errorf("invalid identifier %q", ident)
		}
	}
	return nil
}

// Row is one organization name. Name is nil when the column is NULL.
type Row struct {
	ID    string  `db:"id" json:"id"`
	Name  *string `db:"name" json:"name"`
	City  *string `db:"city" json:"city,omitempty"`
	State *string `db:"state" json:"state,omitempty"`
	// Designator is the raw local number when the source keeps it apart
	Designator *string `db:"designator" json:"designator,omitempty"`
}

// Repository reads organization names from arbitrary olms_multiyear tables
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reference name repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Stream calls fn for every row of the source in id order
func (r *Repository) Stream(ctx context.Context, src Source, fn func(Row) error) error {
	ctx, span := tracing.StartSpan(ctx, "referencename.Repository.Stream")
	defer span.End()

	query, args, err := buildSelect(src)
	if err != nil {
		return err
	}

	rows, err := database.Conn(ctx, r.db).QueryxContext(ctx, query, args...)
	if err != nil {
		tracing.RecordError(span, err)
		r.logger.WithContext(ctx).WithError(err).WithField("table", src.Table).Error("Failed to query reference names")
		return fmt.Errorf("failed to query %s: %w", src.Table, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var row Row
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", src.Table, err)
		}
		if err := fn(row); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to read %s: %w", src.Table, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"table": src.Table, "count": count}).Debug("Streamed reference names")
	return nil
}

// List loads every row of the source
func (r *Repository) List(ctx context.Context, src Source) ([]Row, error) {
	rows := []Row{}
	err := r.Stream(ctx, src, func(row Row) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

func buildSelect(src Source) (string, []any, error) {
	if err := src.Validate(); err != nil {
		return "", nil, err
	}

	sb := database.NewSelectBuilder()
	cols := []string{
		sb.As(fmt.Sprintf("CAST(%s AS TEXT)", quote(src.IDColumn)), "id"),
		sb.As(quote(src.NameColumn), "name"),
		sb.As(optional(src.CityColumn), "city"),
		sb.As(optional(src.StateColumn), "state"),
		sb.As(optionalText(src.DesignatorColumn), "designator"),
	}
	sb.Select(cols...)
	sb.From(quote(src.Table))
	if src.Filter != "" {
		sb.Where(src.Filter)
	}
	sb.OrderBy(quote(src.IDColumn))

	query, args := sb.Build()
	return query, args, nil
}

func optional(column string) string {
	if column == "" {
		return "CAST(NULL AS TEXT)"
	}
	return quote(column)
}

// optionalText casts the column, which is often numeric, to text
func optionalText(column string) string {
	if column == "" {
		return "CAST(NULL AS TEXT)"
	}
	return fmt.Sprintf("CAST(%s AS TEXT)", quote(column))
}

func quote(ident string) string {
	parts := strings.Split(ident, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}
