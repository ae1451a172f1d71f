package referencename

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	t.Run("should alias configured columns", func(t *testing.T) {
		query, args, err := buildSelect(Source{
			Table:            "public.lm_data",
			IDColumn:         "f_num",
			NameColumn:       "union_name",
			CityColumn:       "city",
			StateColumn:      "state",
			DesignatorColumn: "desig_num",
			Filter:           "yr_covered >= 2015",
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT CAST("f_num" AS TEXT) AS id, "union_name" AS name, "city" AS city, "state" AS state, CAST("desig_num" AS TEXT) AS designator FROM "public"."lm_data" WHERE yr_covered >= 2015 ORDER BY "f_num"`, query)
		assert.Empty(t, args)
	})

	t.Run("should select NULL for missing location columns", func(t *testing.T) {
		query, _, err := buildSelect(Source{Table: "f7_employers", IDColumn: "id", NameColumn: "employer_name"})
		require.NoError(t, err)
		assert.Contains(t, query, "CAST(NULL AS TEXT) AS city")
		assert.Contains(t, query, "CAST(NULL AS TEXT) AS state")
		assert.Contains(t, query, "CAST(NULL AS TEXT) AS designator")
		assert.NotContains(t, query, "WHERE")
	})

	t.Run("should refuse unsafe identifiers", func(t *testing.T) {
		_, _, err := buildSelect(Source{Table: "lm_data; drop table x", IDColumn: "id", NameColumn: "name"})
		assert.Error(t, err)

		_, _, err = buildSelect(Source{Table: "lm_data", IDColumn: "id", NameColumn: "name", CityColumn: "a b"})
		assert.Error(t, err)

		_, _, err = buildSelect(Source{Table: "lm_data", IDColumn: "id", NameColumn: "name", DesignatorColumn: "x)--"})
		assert.Error(t, err)
	})
}

func TestSourceKey(t *testing.T) {
	t.Run("should distinguish filters", func(t *testing.T) {
		a := Source{Table: "lm_data", IDColumn: "f_num", NameColumn: "union_name"}
		b := a
		b.Filter = "yr_covered = 2020"
		assert.NotEqual(t, a.Key(), b.Key())
	})

	t.Run("should distinguish optional columns", func(t *testing.T) {
		a := Source{Table: "lm_data", IDColumn: "f_num", NameColumn: "union_name"}
		b := a
		b.DesignatorColumn = "desig_num"
		c := a
		c.CityColumn = "desig_num"
		assert.NotEqual(t, a.Key(), b.Key())
		assert.NotEqual(t, b.Key(), c.Key())
		assert.Equal(t, "lm_data.f_num.union_name", a.Key())
	})
}
