package normalize

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/routes/routestest"
)

func TestNormalize(t *testing.T) {
	h := routestest.New(t, "/api/v1/normalize", Register)
	routestest.Provide(h, normalizers.NewNormalizer(nil))

	t.Run("should normalize an employer by default", func(t *testing.T) {
		rec := h.Do(http.MethodPost, "/api/v1/normalize", map[string]any{"name": "Acme Mfg Co Inc"})
		assert.Equal(t, http.StatusOK, rec.Code)

		name := routestest.Decode[normalizers.NormalizedName](t, rec)
		assert.Equal(t, normalizers.KindEmployer, name.Kind)
		assert.Equal(t, "acme manufacturing company incorporated", name.Standard)
		assert.Equal(t, "acme manufacturing", name.Aggressive)
	})

	t.Run("should extract a union local", func(t *testing.T) {
		rec := h.Do(http.MethodPost, "/api/v1/normalize", map[string]any{
			"name": "United Food & Commercial Workers Local 342",
			"kind": "union",
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		name := routestest.Decode[normalizers.NormalizedName](t, rec)
		assert.Equal(t, "342", name.LocalNumber)
		assert.Equal(t, "UFCW", name.Affiliation)
	})

	t.Run("should reject an absent name", func(t *testing.T) {
		rec := h.Do(http.MethodPost, "/api/v1/normalize", map[string]any{"kind": "union"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		body := routestest.Decode[middleware.ErrorResponse](t, rec)
		assert.Equal(t, "name is required", body.Message)
	})

	t.Run("should accept an empty name", func(t *testing.T) {
		rec := h.Do(http.MethodPost, "/api/v1/normalize", map[string]any{"name": ""})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, routestest.Decode[normalizers.NormalizedName](t, rec).Standard)
	})

	t.Run("should reject an unknown kind", func(t *testing.T) {
		rec := h.Do(http.MethodPost, "/api/v1/normalize", map[string]any{"name": "Acme", "kind": "guild"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
