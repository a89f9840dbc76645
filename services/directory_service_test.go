package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services/servicestest"
)

func newDirectory(users ...*models.User) (*DirectoryService, *servicestest.Users, *servicestest.Images) {
	store := servicestest.NewUsers(users...)
	images := servicestest.NewImages()
	svc := NewDirectoryService(store, images, bcrypt.MinCost)
	svc.now = servicestest.NewClock(testStart).Now
	return svc, store, images
}

func signup() models.SignupRequest {
	return models.SignupRequest{
		Email:      " Carol@Example.com ",
		Password:   "correct-horse",
		Name:       "Carol",
		Role:       models.RoleAlumni,
		Phone:      "+44 20 7946 0958",
		RollNumber: "EE2015-007",
		Branch:     "EE",
		Batch:      2015,
		Company:    "Hooli",
	}
}

func TestDirectoryRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending record", func(t *testing.T) {
		svc, store, _ := newDirectory()

		user, err := svc.Register(ctx, signup(), nil)
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", user.Email)
		assert.Equal(t, models.StatusPending, user.Status)
		assert.Equal(t, "+442079460958", user.Phone)
		assert.Equal(t, "Hooli", user.Company)
		assert.Equal(t, testStart, user.CreatedAt)
		assert.Empty(t, user.Password)

		stored, err := store.FindByEmail(ctx, "carol@example.com")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("correct-horse")))
	})

	t.Run("company is kept for alumni only", func(t *testing.T) {
		svc, _, _ := newDirectory()
		req := signup()
		req.Role = models.RoleStudent

		user, err := svc.Register(ctx, req, nil)
		require.NoError(t, err)
		assert.Empty(t, user.Company)
	})

	t.Run("taken email is a conflict", func(t *testing.T) {
		svc, _, _ := newDirectory(alice())
		req := signup()
		req.Email = "ALICE@example.com"

		_, err := svc.Register(ctx, req, nil)
		requireKind(t, err, KindConflict)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, images := newDirectory()

		bad := []func(*models.SignupRequest){
			func(r *models.SignupRequest) { r.Email = "carol" },
			func(r *models.SignupRequest) { r.Role = "admin" },
			func(r *models.SignupRequest) { r.Phone = "123" },
			func(r *models.SignupRequest) { r.Name = "  " },
		}
		for _, mutate := range bad {
			req := signup()
			mutate(&req)
			_, err := svc.Register(ctx, req, nil)
			requireKind(t, err, KindValidation)
		}

		_, err := svc.Register(ctx, signup(), &ImageUpload{Filename: "me.svg", Data: []byte("<svg/>")})
		requireKind(t, err, KindValidation)
		assert.Empty(t, images.Released)
	})

	t.Run("stores the profile image", func(t *testing.T) {
		svc, _, _ := newDirectory()

		user, err := svc.Register(ctx, signup(), &ImageUpload{Filename: "carol.png", Data: []byte{0x89, 'P', 'N', 'G'}})
		require.NoError(t, err)
		assert.Equal(t, "/uploads/profiles/carol.png", user.ProfileImage)
	})
}

func TestDirectoryQueries(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newDirectory(alice(), bob())

	user, err := svc.Get(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = svc.Get(ctx, "nobody@example.com")
	requireKind(t, err, KindNotFound)

	alumni, err := svc.List(ctx, models.UserFilter{Role: models.RoleAlumni})
	require.NoError(t, err)
	require.Len(t, alumni, 1)
	assert.Equal(t, "bob@example.com", alumni[0].Email)

	_, err = svc.List(ctx, models.UserFilter{Role: "admin"})
	requireKind(t, err, KindValidation)
}

func TestDirectoryApprove(t *testing.T) {
	ctx := context.Background()
	pending := bob()
	pending.Status = models.StatusPending
	svc, _, _ := newDirectory(pending)

	user, err := svc.Approve(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, user.Status)

	_, err = svc.Approve(ctx, "nobody@example.com")
	requireKind(t, err, KindNotFound)
}
