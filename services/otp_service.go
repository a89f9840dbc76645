package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/repositories"
	"github.com/HSouheill/alumni_backend/utils"
)

const cleanupTimeout = 5 * time.Second

var errNoDestination = errors.New("no destination on file for channel")

// OTPConfig holds the verification windows and limits.
type OTPConfig struct {
	CodeTTL     time.Duration
	SessionTTL  time.Duration
	MaxAttempts int
	HashCost    int
}

// OTPService issues and checks one-time codes.
type OTPService struct {
	users   UserStore
	codes   VerificationStore
	limiter IssueLimiter
	sender  CodeSender
	signer  *CredentialSigner
	cfg     OTPConfig

	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(users UserStore, codes VerificationStore, limiter IssueLimiter, sender CodeSender, signer *CredentialSigner, cfg OTPConfig) *OTPService {
	return &OTPService{
		users:    users,
		codes:    codes,
		limiter:  limiter,
		sender:   sender,
		signer:   signer,
		cfg:      cfg,
		now:      time.Now,
		generate: utils.GenerateNumericOTP,
	}
}

// IssueCode sends a fresh code to the identifier over channel, replacing any
// outstanding code for the same pair.
func (s *OTPService) IssueCode(ctx context.Context, req models.SendOTPRequest) (*models.OTPSentResponse, error) {
	identifier, err := utils.SanitizeEmail(req.Identifier)
	if err != nil {
		return nil, ValidationError("a valid email identifier is required")
	}
	if !req.Channel.Valid() {
		return nil, ValidationError("channel must be email or phone")
	}

	user, err := s.users.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFoundError("no account found for these details")
		}
		return nil, storeError("find user", err)
	}
	if roll := strings.TrimSpace(req.RollNumber); roll != "" && !strings.EqualFold(roll, user.RollNumber) {
		return nil, NotFoundError("no account found for these details")
	}

	if err := s.limiter.CheckAndIncrement(ctx, identifier); err != nil {
		return nil, err
	}

	// A missing destination answers like any other failed delivery.
	destination, masked := identifier, utils.MaskEmail(identifier)
	if req.Channel == models.ChannelPhone {
		if user.Phone == "" {
			utils.Logger.WithField("identifier", utils.MaskEmail(identifier)).Warn("No phone number on file for phone channel")
			return nil, DeliveryError(errNoDestination)
		}
		destination, masked = user.Phone, utils.MaskPhone(user.Phone)
	}

	code, err := s.generate()
	if err != nil {
		return nil, internalError("generate code", err)
	}
	hash, err := utils.HashOTP(code, s.cfg.HashCost)
	if err != nil {
		return nil, internalError("hash code", err)
	}

	now := s.now()
	entry := &models.VerificationEntry{
		ID:         models.VerificationKey(identifier, req.Channel),
		IssueID:    uuid.NewString(),
		Identifier: identifier,
		Channel:    req.Channel,
		CodeHash:   hash,
		ExpiresAt:  now.Add(s.cfg.CodeTTL),
		CreatedAt:  now,
	}
	if err := s.codes.Replace(ctx, entry); err != nil {
		return nil, storeError("store code", err)
	}

	log := utils.Logger.WithFields(logrus.Fields{
		"identifier": utils.MaskEmail(identifier),
		"channel":    req.Channel,
	})

	if err := s.sender.SendCode(ctx, req.Channel, destination, code, user.Name); err != nil {
		s.discard(ctx, entry)
		log.WithError(err).Warn("Verification code delivery failed")
		return nil, DeliveryError(err)
	}

	log.Info("Verification code issued")
	return &models.OTPSentResponse{
		Destination:      masked,
		Channel:          req.Channel,
		ExpiresInSeconds: int(s.cfg.CodeTTL.Seconds()),
	}, nil
}

// VerifyCode checks a submitted code and returns the update credential.
// A repeated correct submission returns the same credential without changing state.
func (s *OTPService) VerifyCode(ctx context.Context, req models.VerifyOTPRequest) (*models.OTPVerifiedResponse, error) {
	code, err := utils.NormalizeOTP(req.Code)
	if err != nil {
		return nil, ValidationError(err.Error())
	}
	identifier, err := utils.SanitizeEmail(req.Identifier)
	if err != nil {
		return nil, ValidationError("a valid email identifier is required")
	}
	if !req.Channel.Valid() {
		return nil, ValidationError("channel must be email or phone")
	}

	key := models.VerificationKey(identifier, req.Channel)
	entry, err := s.codes.Find(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NoActiveCodeError()
		}
		return nil, storeError("find code", err)
	}

	now := s.now()
	if entry.IsExpired(now) {
		s.discard(ctx, entry)
		return nil, ExpiredError()
	}
	if entry.Attempts >= s.cfg.MaxAttempts {
		s.discard(ctx, entry)
		return nil, AttemptsExceededError()
	}

	if !utils.CompareOTP(entry.CodeHash, code) {
		return nil, s.recordFailure(ctx, entry)
	}

	if !entry.Verified {
		verified, err := s.codes.MarkVerified(ctx, key, entry.IssueID, uuid.NewString(), now, now.Add(s.cfg.SessionTTL))
		switch {
		case err == nil:
			entry = verified
			utils.Logger.WithField("identifier", utils.MaskEmail(identifier)).Info("Verification code accepted")
		case errors.Is(err, repositories.ErrNotFound):
			// a concurrent request verified or replaced it first
			entry, err = s.codes.Find(ctx, key)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return nil, NoActiveCodeError()
				}
				return nil, storeError("find code", err)
			}
			if !entry.Verified || !utils.CompareOTP(entry.CodeHash, code) {
				return nil, NoActiveCodeError()
			}
		default:
			return nil, storeError("mark verified", err)
		}
	}

	credential, err := s.signer.Sign(entry)
	if err != nil {
		return nil, internalError("sign credential", err)
	}
	return &models.OTPVerifiedResponse{
		Credential:       credential,
		ExpiresInSeconds: int(entry.ExpiresAt.Sub(now).Seconds()),
	}, nil
}

func (s *OTPService) recordFailure(ctx context.Context, entry *models.VerificationEntry) error {
	attempts, err := s.codes.IncrementAttempts(ctx, entry.ID, entry.IssueID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NoActiveCodeError()
		}
		return storeError("increment attempts", err)
	}

	if attempts >= s.cfg.MaxAttempts {
		s.discard(ctx, entry)
		utils.Logger.WithField("identifier", utils.MaskEmail(entry.Identifier)).Warn("Verification attempts exhausted")
		return AttemptsExceededError()
	}
	return InvalidCodeError(s.cfg.MaxAttempts - attempts)
}

// discard removes an entry that can no longer be used. It runs detached from
// the request context so a cancelled request still cleans up.
func (s *OTPService) discard(ctx context.Context, entry *models.VerificationEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.codes.Delete(ctx, entry.ID, entry.IssueID); err != nil {
		utils.Logger.WithError(err).WithField("identifier", utils.MaskEmail(entry.Identifier)).
			Error("Failed to delete verification entry")
		utils.CaptureError(err, map[string]string{"op": "delete_code"})
	}
}
