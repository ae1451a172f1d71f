package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
)

// Logger writes one structured line per request
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			log := logger.WithContext(req.Context()).WithFields(map[string]any{
				"method":        req.Method,
				"uri":           req.RequestURI,
				"route":         c.Path(),
				"status":        res.Status,
				"remote_ip":     c.RealIP(),
				"user_agent":    req.UserAgent(),
				"response_time": time.Since(start).String(),
				"response_size": res.Size,
			})
			if res.Status >= 500 {
				log.Warn("Request")
				return nil
			}
			log.Info("Request")
			return nil
		}
	}
}
