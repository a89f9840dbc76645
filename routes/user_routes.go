package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/controllers"
	"github.com/HSouheill/alumni_backend/middleware"
)

// RegisterUserRoutes sets up the directory and its admin approval route.
func RegisterUserRoutes(e *echo.Echo, userController *controllers.UserController, adminAPIKey string) {
	users := e.Group("/api/users")
	users.POST("/register", userController.Register)
	users.GET("", userController.ListUsers)
	users.GET("/:email", userController.GetUser)

	admin := e.Group("/api/admin")
	admin.Use(middleware.RequireAdminKey(adminAPIKey))
	admin.PUT("/users/:email/approve", userController.ApproveUser)
}
