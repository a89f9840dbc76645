package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/repositories"
	"github.com/HSouheill/alumni_backend/utils"
)

// ImageUpload is a profile picture sent alongside an update.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ProfileService applies credentialed profile writes.
type ProfileService struct {
	users  UserStore
	codes  VerificationStore
	images ImageStore
	signer *CredentialSigner

	now func() time.Time
}

func NewProfileService(users UserStore, codes VerificationStore, images ImageStore, signer *CredentialSigner) *ProfileService {
	return &ProfileService{
		users:  users,
		codes:  codes,
		images: images,
		signer: signer,
		now:    time.Now,
	}
}

// ApplyUpdate consumes credential and writes the permitted fields of req to
// the identifier's record. The credential cannot be used again afterwards.
func (s *ProfileService) ApplyUpdate(ctx context.Context, credential string, req models.UpdateProfileRequest, image *ImageUpload) (*models.ProfileUpdatedResponse, error) {
	identifier, err := utils.SanitizeEmail(req.Identifier)
	if err != nil {
		return nil, ValidationError("a valid email identifier is required")
	}
	if !req.Channel.Valid() {
		return nil, ValidationError("channel must be email or phone")
	}

	now := s.now()
	claims, err := s.signer.Parse(credential, now)
	if err != nil {
		return nil, UnauthorizedError("invalid or expired credential")
	}
	if claims.Subject != identifier || claims.Channel != req.Channel {
		return nil, UnauthorizedError("credential does not match this account")
	}

	user, err := s.users.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFoundError("account not found")
		}
		return nil, storeError("find user", err)
	}

	set, ignored := buildUpdate(user.Role, req.Fields)

	var newImage string
	if image != nil {
		if s.images == nil {
			return nil, ValidationError("image uploads are not enabled")
		}
		if err := utils.ValidateImageFile(image.Filename, int64(len(image.Data))); err != nil {
			return nil, ValidationError(err.Error())
		}
		newImage, err = s.images.Store(ctx, image.Filename, image.Data)
		if err != nil {
			return nil, imageError(err)
		}
		set[fieldProfileImage] = newImage
	}

	if len(set) == 0 {
		return nil, ValidationError("no updatable fields supplied")
	}

	log := utils.Logger.WithFields(logrus.Fields{
		"identifier": utils.MaskEmail(identifier),
		"channel":    req.Channel,
	})

	key := models.VerificationKey(identifier, req.Channel)
	claimed, err := s.codes.Claim(ctx, key, claims.Id, now)
	if err != nil {
		s.releaseImage(ctx, newImage)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, UnauthorizedError("credential has already been used or is no longer valid")
		}
		return nil, storeError("claim credential", err)
	}

	updated, err := s.users.UpdateFields(ctx, identifier, set)
	if err != nil {
		s.restore(ctx, claimed)
		s.releaseImage(ctx, newImage)
		log.WithError(err).Error("Profile update failed, credential restored")
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFoundError("account not found")
		}
		return nil, storeError("update profile", err)
	}

	if newImage != "" && user.ProfileImage != "" && newImage != user.ProfileImage {
		s.releaseImage(ctx, user.ProfileImage)
	}

	log.WithField("fields", len(set)).Info("Profile updated")
	return &models.ProfileUpdatedResponse{
		User:          updated.Sanitized(),
		IgnoredFields: ignored,
	}, nil
}

func (s *ProfileService) restore(ctx context.Context, entry *models.VerificationEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.codes.Restore(ctx, entry); err != nil {
		utils.Logger.WithError(err).Error("Failed to restore verification entry")
		utils.CaptureError(err, map[string]string{"op": "restore_code"})
	}
}

// releaseImage is best-effort; failures are only logged.
func (s *ProfileService) releaseImage(ctx context.Context, ref string) {
	if ref == "" || s.images == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.images.Release(ctx, ref); err != nil {
		utils.Logger.WithError(err).WithField("ref", ref).Warn("Failed to release profile image")
	}
}
