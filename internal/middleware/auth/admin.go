package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminKeyHeader carries the shared admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware guards operator endpoints with a shared key. With an
// empty key every request is answered 404, so the endpoints do not exist.
func AdminKeyMiddleware(key string, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return c.JSON(http.StatusNotFound, echo.Map{
					"error": "Not found",
				})
			}

			provided := c.Request().Header.Get(AdminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				logger.Warn("Rejected admin request",
					zap.String("path", c.Request().URL.Path),
					zap.String("remote_ip", c.RealIP()),
					zap.Bool("key_present", provided != ""))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid admin key",
					"code":  "INVALID_ADMIN_KEY",
				})
			}

			return next(c)
		}
	}
}
