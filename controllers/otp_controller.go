// controllers/otp_controller.go
package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services"
)

// OTPController exposes code issuance and verification.
type OTPController struct {
	otp *services.OTPService
}

func NewOTPController(otp *services.OTPService) *OTPController {
	return &OTPController{otp: otp}
}

// SendOTP handles POST /api/otp/send
func (oc *OTPController) SendOTP(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.SendOTPRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Identifier must be a valid email and channel must be email or phone")
	}

	resp, err := oc.otp.IssueCode(ctx, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Verification code sent",
		Data:    resp,
	})
}

// VerifyOTP handles POST /api/otp/verify
func (oc *OTPController) VerifyOTP(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Identifier, channel and code are required")
	}

	resp, err := oc.otp.VerifyCode(ctx, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Code verified",
		Data:    resp,
	})
}
