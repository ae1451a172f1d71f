package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Kind  string `json:"kind" validate:"omitempty,oneof=employer union"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

func TestValidate(t *testing.T) {
	t.Run("should accept a valid struct", func(t *testing.T) {
		v, err := Validate(sample{Name: "acme", Kind: "union"})
		require.NoError(t, err)
		assert.Equal(t, "acme", v.Name)
	})

	t.Run("should name every failing field", func(t *testing.T) {
		_, err := Validate(sample{Kind: "guild", Limit: 99})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field 'Name' failed rule 'required'")
		assert.Contains(t, err.Error(), "field 'Kind' failed rule 'oneof' (employer union)")
		assert.Contains(t, err.Error(), "field 'Limit' failed rule 'max' (50)")
	})

	t.Run("should validate a single value", func(t *testing.T) {
		assert.NoError(t, ValidateValue("union", "oneof=employer union"))
		assert.Error(t, ValidateValue("guild", "oneof=employer union"))
	})
}

func TestBindRequest(t *testing.T) {
	bind := func(body string) (sample, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c := echo.New().NewContext(req, httptest.NewRecorder())
		return BindRequest[sample](c)
	}

	t.Run("should bind and validate a body", func(t *testing.T) {
		v, err := bind(`{"name":"Acme","limit":3}`)
		require.NoError(t, err)
		assert.Equal(t, "Acme", v.Name)
		assert.Equal(t, 3, v.Limit)
	})

	t.Run("should return a 400 for malformed json", func(t *testing.T) {
		_, err := bind(`{"name":`)
		assert.True(t, httperror.IsBadRequest(err))
	})

	t.Run("should return a 400 for a failed rule", func(t *testing.T) {
		_, err := bind(`{"kind":"union"}`)
		assert.True(t, httperror.IsBadRequest(err))
	})
}
