package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorKind is the stable, client-facing category of a failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindRateLimited      ErrorKind = "rate_limited"
	KindDeliveryFailed   ErrorKind = "delivery_failed"
	KindNoActiveCode     ErrorKind = "no_active_code"
	KindExpired          ErrorKind = "expired"
	KindAttemptsExceeded ErrorKind = "attempts_exceeded"
	KindInvalidCode      ErrorKind = "invalid_code"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindStoreUnavailable ErrorKind = "store_unavailable"
	KindInternal         ErrorKind = "internal"
)

// AppError carries a kind and a safe message. Err holds the underlying cause,
// which is logged but never sent to clients.
type AppError struct {
	Kind       ErrorKind
	Message    string
	Remaining  int
	RetryAfter time.Duration
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can write errors.Is(err, &AppError{Kind: KindExpired}).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or KindInternal for anything unclassified.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func NotFoundError(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func RateLimitedError(retryAfter time.Duration) *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Message:    "too many verification codes requested, try again later",
		RetryAfter: retryAfter,
	}
}

func DeliveryError(err error) *AppError {
	return &AppError{Kind: KindDeliveryFailed, Message: "failed to deliver verification code", Err: err}
}

func NoActiveCodeError() *AppError {
	return &AppError{Kind: KindNoActiveCode, Message: "no active verification code, request a new one"}
}

func ExpiredError() *AppError {
	return &AppError{Kind: KindExpired, Message: "verification code has expired, request a new one"}
}

func AttemptsExceededError() *AppError {
	return &AppError{Kind: KindAttemptsExceeded, Message: "too many failed attempts, request a new code"}
}

func InvalidCodeError(remaining int) *AppError {
	return &AppError{Kind: KindInvalidCode, Message: "invalid verification code", Remaining: remaining}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: msg}
}

func ValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func ConflictError(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

// storeError classifies a persistence failure. Connectivity problems become
// store_unavailable so the handler answers 502; everything else is internal.
func storeError(op string, err error) *AppError {
	if isUnavailable(err) {
		return &AppError{Kind: KindStoreUnavailable, Message: "storage temporarily unavailable", Err: fmt.Errorf("%s: %w", op, err)}
	}
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

func isUnavailable(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}

func internalError(op string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}
