// Package routestest serves route groups in memory for handler tests
package routestest

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/di"
	"github.com/Ramsey-B/clover/pkg/middleware"
)

// Harness is an echo instance with the production middleware chain and a
// private dependency container
type Harness struct {
	t         *testing.T
	Echo      *echo.Echo
	Container ectocontainer.DIContainer
	Headers   map[string]string
}

// New mounts register under prefix
func New(t *testing.T, prefix string, register func(g *echo.Group)) *Harness {
	t.Helper()

	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	id := uuid.NewString()
	container, err := di.NewContainer(id, nil)
	require.NoError(t, err)
	require.NoError(t, di.Instance[ectologger.Logger](container, logger))

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context(), middleware.Container(id))
	register(e.Group(prefix))

	return &Harness{t: t, Echo: e, Container: container, Headers: map[string]string{}}
}

// Provide registers a dependency the handlers resolve as T
func Provide[T any](h *Harness, value T) {
	h.t.Helper()
	require.NoError(h.t, di.Instance[T](h.Container, value))
}

// Do serves one request. A non-nil body is sent as JSON.
func (h *Harness) Do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(h.t, err)
		reqBody = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a recorded JSON response
func Decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
