package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"
)

// Container makes the named dependency container active for each request so
// handlers can resolve their collaborators from the request context
func Container(id string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, err := ectoinject.SetActiveContainer(req.Context(), id)
			if err != nil {
				return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
