package tables

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/routes/routestest"
)

func TestGetTables(t *testing.T) {
	t.Run("should return the effective tables", func(t *testing.T) {
		tables := normalizers.DefaultTables().Merge(normalizers.TableSpec{
			EmployerAbbreviations: map[string]string{"hosp": "hospital"},
		})
		h := routestest.New(t, "/api/v1/tables", Register)
		routestest.Provide(h, normalizers.NewNormalizer(tables))

		rec := h.Do(http.MethodGet, "/api/v1/tables", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := routestest.Decode[Response](t, rec)
		assert.Equal(t, tables.Fingerprint(), resp.Fingerprint)
		assert.Equal(t, "hospital", resp.Tables.EmployerAbbreviations["hosp"])
		assert.NotEmpty(t, resp.Tables.Affiliations)
		assert.NotEmpty(t, resp.Aliases)
	})

	t.Run("should fail without a normalizer", func(t *testing.T) {
		h := routestest.New(t, "/api/v1/tables", Register)
		rec := h.Do(http.MethodGet, "/api/v1/tables", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
