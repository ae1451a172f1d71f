package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

func NewInsertBuilder() *sqlbuilder.InsertBuilder {
	return sqlbuilder.PostgreSQL.NewInsertBuilder()
}

func NewSelectBuilder() *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder()
}

func NewUpdateBuilder() *sqlbuilder.UpdateBuilder {
	return sqlbuilder.PostgreSQL.NewUpdateBuilder()
}

// Excluded refers to the value proposed for insertion in an upsert
func Excluded(column string) string {
	return "EXCLUDED." + column
}

// OnConflictUpdate appends an ON CONFLICT ... DO UPDATE SET clause
func OnConflictUpdate(ib *sqlbuilder.InsertBuilder, conflict []string, assignments ...string) *sqlbuilder.InsertBuilder {
	ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflict, ", "), strings.Join(assignments, ", ")))
	return ib
}
