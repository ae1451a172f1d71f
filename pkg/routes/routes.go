// Package routes mounts the HTTP API
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/health"
	"github.com/Ramsey-B/clover/pkg/routes/match"
	"github.com/Ramsey-B/clover/pkg/routes/matchcandidate"
	"github.com/Ramsey-B/clover/pkg/routes/normalize"
	"github.com/Ramsey-B/clover/pkg/routes/tables"
)

// Prefix is the versioned API root
const Prefix = "/api/v1"

// Register mounts every route group under the API prefix
func Register(e *echo.Echo, checker *health.Checker) {
	api := e.Group(Prefix)

	normalize.Register(api.Group("/normalize"))
	match.Register(api.Group("/match"))
	tables.Register(api.Group("/tables"))
	matchcandidate.Register(api.Group("/match-candidates"))

	h := api.Group("/health")
	h.GET("", checker.HealthHandler)
	h.GET("/live", checker.LivenessHandler)
	h.GET("/ready", checker.ReadinessHandler)
}
