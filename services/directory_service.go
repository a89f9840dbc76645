package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/repositories"
	"github.com/HSouheill/alumni_backend/utils"
)

// DirectoryService registers, lists and approves students and alumni.
type DirectoryService struct {
	users      UserStore
	images     ImageStore
	bcryptCost int

	now func() time.Time
}

func NewDirectoryService(users UserStore, images ImageStore, bcryptCost int) *DirectoryService {
	return &DirectoryService{
		users:      users,
		images:     images,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates a pending record. A taken email is a conflict.
func (s *DirectoryService) Register(ctx context.Context, req models.SignupRequest, image *ImageUpload) (*models.User, error) {
	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return nil, ValidationError("invalid email format")
	}
	if req.Role != models.RoleStudent && req.Role != models.RoleAlumni {
		return nil, ValidationError("role must be student or alumni")
	}
	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return nil, ValidationError(err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ValidationError("name is required")
	}

	exists, err := s.users.Exists(ctx, email)
	if err != nil {
		return nil, storeError("check user", err)
	}
	if exists {
		return nil, ConflictError("an account with this email already exists")
	}

	hash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	now := s.now()
	user := &models.User{
		Email:      email,
		RollNumber: strings.TrimSpace(req.RollNumber),
		Password:   hash,
		Name:       name,
		Role:       req.Role,
		Status:     models.StatusPending,
		Phone:      phone,
		Branch:     strings.TrimSpace(req.Branch),
		Batch:      req.Batch,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Role == models.RoleAlumni {
		user.Company = strings.TrimSpace(req.Company)
	}

	if image != nil && s.images != nil {
		if err := utils.ValidateImageFile(image.Filename, int64(len(image.Data))); err != nil {
			return nil, ValidationError(err.Error())
		}
		ref, err := s.images.Store(ctx, image.Filename, image.Data)
		if err != nil {
			return nil, imageError(err)
		}
		user.ProfileImage = ref
	}

	if err := s.users.Create(ctx, user); err != nil {
		if user.ProfileImage != "" {
			if relErr := s.images.Release(ctx, user.ProfileImage); relErr != nil {
				utils.Logger.WithError(relErr).Warn("Failed to release profile image")
			}
		}
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ConflictError("an account with this email already exists")
		}
		return nil, storeError("create user", err)
	}

	utils.Logger.WithField("email", utils.MaskEmail(email)).WithField("role", user.Role).Info("User registered")
	return user.Sanitized(), nil
}

func (s *DirectoryService) Get(ctx context.Context, email string) (*models.User, error) {
	email, err := utils.SanitizeEmail(email)
	if err != nil {
		return nil, ValidationError("invalid email format")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFoundError("user not found")
		}
		return nil, storeError("find user", err)
	}
	return user.Sanitized(), nil
}

func (s *DirectoryService) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	if filter.Role != "" && filter.Role != models.RoleStudent && filter.Role != models.RoleAlumni {
		return nil, ValidationError("role must be student or alumni")
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, storeError("list users", err)
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// Approve moves a pending registration to approved.
func (s *DirectoryService) Approve(ctx context.Context, email string) (*models.User, error) {
	email, err := utils.SanitizeEmail(email)
	if err != nil {
		return nil, ValidationError("invalid email format")
	}

	user, err := s.users.SetStatus(ctx, email, models.StatusApproved)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFoundError("user not found")
		}
		return nil, storeError("approve user", err)
	}

	utils.Logger.WithField("email", utils.MaskEmail(email)).Info("User approved")
	return user.Sanitized(), nil
}
