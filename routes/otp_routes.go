package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/controllers"
	"github.com/HSouheill/alumni_backend/middleware"
)

// RegisterOTPRoutes sets up code issuance, verification and the credentialed profile update.
func RegisterOTPRoutes(e *echo.Echo, otpController *controllers.OTPController, profileController *controllers.ProfileController) {
	otp := e.Group("/api/otp")
	otp.POST("/send", otpController.SendOTP)
	otp.POST("/verify", otpController.VerifyOTP)

	e.PUT("/api/profile", profileController.UpdateProfile, middleware.RequireBearer())
}
