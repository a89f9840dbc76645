// middleware/jwt_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/models"
)

const credentialKey = "credential"

// RequireBearer extracts the update credential from the Authorization header.
// Signature and expiry are checked by the profile service, which also has to
// match the credential against its verification entry.
func RequireBearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(auth, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Missing or malformed credential",
					Kind:    "unauthorized",
				})
			}
			c.Set(credentialKey, token)
			return next(c)
		}
	}
}

// GetCredential returns the credential stored by RequireBearer.
func GetCredential(c echo.Context) string {
	token, _ := c.Get(credentialKey).(string)
	return token
}
