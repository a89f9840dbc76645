package services

import (
	"context"
	"time"

	"github.com/HSouheill/alumni_backend/models"
)

// UserStore is the identifier store. Implemented by repositories.UserRepository.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, email string, set map[string]interface{}) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	SetStatus(ctx context.Context, email, status string) (*models.User, error)
}

// VerificationStore persists verification entries. Implemented by
// repositories.VerificationRepository.
type VerificationStore interface {
	Replace(ctx context.Context, entry *models.VerificationEntry) error
	Find(ctx context.Context, key string) (*models.VerificationEntry, error)
	IncrementAttempts(ctx context.Context, key, issueID string) (int, error)
	MarkVerified(ctx context.Context, key, issueID, credentialID string, verifiedAt, expiresAt time.Time) (*models.VerificationEntry, error)
	Claim(ctx context.Context, key, credentialID string, now time.Time) (*models.VerificationEntry, error)
	Restore(ctx context.Context, entry *models.VerificationEntry) error
	Delete(ctx context.Context, key, issueID string) error
}

// IssuanceLog backs the mongo limiter. Implemented by repositories.IssuanceRepository.
// Reserve records an issuance at now unless limit issuances already fall after
// since; when it refuses it returns the oldest of those.
type IssuanceLog interface {
	Reserve(ctx context.Context, identifier string, now, since time.Time, limit int) (oldest time.Time, ok bool, err error)
}

// IssueLimiter bounds code issuance per identifier.
type IssueLimiter interface {
	// CheckAndIncrement records an issuance if the identifier is under its
	// limit. When it is not, the returned error is a rate_limited AppError.
	CheckAndIncrement(ctx context.Context, identifier string) error
}

// CodeSender delivers a plaintext code out of band.
type CodeSender interface {
	SendCode(ctx context.Context, channel models.Channel, destination, code, displayName string) error
}

// ImageStore holds profile images and hands back a reference string.
type ImageStore interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
	Release(ctx context.Context, ref string) error
}
