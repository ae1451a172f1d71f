package tables

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Response is the effective table content
type Response struct {
	Fingerprint string                         `json:"fingerprint"`
	Tables      normalizers.TableSpec          `json:"tables"`
	Aliases     []normalizers.AffiliationAlias `json:"aliases"`
}

// Register registers table routes
func Register(g *echo.Group) {
	g.GET("", GetTables)
}

// GetTables returns the tables the normalizer is running with so reviewers
// can audit their coverage
func GetTables(c echo.Context) error {
	_, normalizer, err := ectoinject.GetContext[*normalizers.Normalizer](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	t := normalizer.Tables()
	return c.JSON(http.StatusOK, Response{
		Fingerprint: t.Fingerprint(),
		Tables:      t.Snapshot(),
		Aliases:     t.Aliases(),
	})
}
