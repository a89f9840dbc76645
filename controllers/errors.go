package controllers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services"
	"github.com/HSouheill/alumni_backend/utils"
)

const requestTimeout = 10 * time.Second

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:         http.StatusNotFound,
	services.KindRateLimited:      http.StatusTooManyRequests,
	services.KindDeliveryFailed:   http.StatusBadGateway,
	services.KindNoActiveCode:     http.StatusBadRequest,
	services.KindExpired:          http.StatusGone,
	services.KindAttemptsExceeded: http.StatusTooManyRequests,
	services.KindInvalidCode:      http.StatusBadRequest,
	services.KindUnauthorized:     http.StatusUnauthorized,
	services.KindValidation:       http.StatusBadRequest,
	services.KindConflict:         http.StatusConflict,
	services.KindStoreUnavailable: http.StatusBadGateway,
	services.KindInternal:         http.StatusInternalServerError,
}

// requestContext bounds a handler's work and follows client cancellation.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.Response{
		Status:  http.StatusBadRequest,
		Message: message,
		Kind:    string(services.KindValidation),
	})
}

// respondError writes err in the response envelope. Unclassified and store
// failures are logged and reported to Sentry; their cause never reaches the client.
func respondError(c echo.Context, err error) error {
	var appErr *services.AppError
	if !errors.As(err, &appErr) {
		appErr = &services.AppError{Kind: services.KindInternal, Message: "internal server error", Err: err}
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if appErr.Kind == services.KindInternal || appErr.Kind == services.KindStoreUnavailable || appErr.Kind == services.KindDeliveryFailed {
		utils.Logger.WithError(err).WithField("path", c.Path()).Error("Request failed")
		utils.CaptureError(err, map[string]string{"kind": string(appErr.Kind), "path": c.Path()})
	}

	resp := models.Response{
		Status:            status,
		Message:           appErr.Message,
		Kind:              string(appErr.Kind),
		RemainingAttempts: appErr.Remaining,
	}
	if appErr.RetryAfter > 0 {
		secs := int(math.Ceil(appErr.RetryAfter.Seconds()))
		resp.RetryAfterSeconds = secs
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	}
	return c.JSON(status, resp)
}
