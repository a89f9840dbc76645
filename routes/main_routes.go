package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/alumni_backend/controllers"
)

// Controllers groups every handler set the router needs.
type Controllers struct {
	OTP     *controllers.OTPController
	Profile *controllers.ProfileController
	User    *controllers.UserController
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, client *mongo.Client, ctrl Controllers, adminAPIKey, uploadDir string) {
	e.Match([]string{http.MethodGet, http.MethodHead}, "/health", healthHandler(client))

	RegisterOTPRoutes(e, ctrl.OTP, ctrl.Profile)
	RegisterUserRoutes(e, ctrl.User, adminAPIKey)
	if uploadDir != "" {
		RegisterFileRoutes(e, uploadDir)
	}
}

func healthHandler(client *mongo.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		database := "connected"
		status := http.StatusOK
		if client != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := client.Ping(ctx, nil); err != nil {
				database = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}
		return c.JSON(status, map[string]string{
			"status":   http.StatusText(status),
			"database": database,
		})
	}
}
