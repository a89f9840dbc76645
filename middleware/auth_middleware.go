// middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/security"
	"github.com/HSouheill/alumni_backend/utils"
)

// HeaderAdminKey carries the admin API key.
const HeaderAdminKey = "X-API-Key"

// RequireAdminKey guards admin routes with a shared API key. With no key
// configured every request is refused.
func RequireAdminKey(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !security.SecretsEqual(c.Request().Header.Get(HeaderAdminKey), apiKey) {
				utils.Logger.WithField("path", c.Request().URL.Path).
					WithField("ip", c.RealIP()).
					Warn("Admin request rejected")
				return c.JSON(http.StatusForbidden, models.Response{
					Status:  http.StatusForbidden,
					Message: "Access denied",
					Kind:    "forbidden",
				})
			}
			return next(c)
		}
	}
}

// RequireContentType rejects bodies in formats the API does not parse.
func RequireContentType() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodPost && req.Method != http.MethodPut && req.Method != http.MethodPatch {
				return next(c)
			}
			if req.ContentLength == 0 {
				return next(c)
			}
			if !security.ValidateContentType(req.Header.Get(echo.HeaderContentType)) {
				return c.JSON(http.StatusUnsupportedMediaType, models.Response{
					Status:  http.StatusUnsupportedMediaType,
					Message: "Unsupported content type",
					Kind:    "validation",
				})
			}
			return next(c)
		}
	}
}
