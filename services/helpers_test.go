package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services/servicestest"
)

const (
	testSecret = "test-secret"
	aliceEmail = "alice@example.com"
	aliceCode  = "482913"
	wrongCode  = "111111"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func alice() *models.User {
	return &models.User{
		Email:        aliceEmail,
		RollNumber:   "CS2020-014",
		Name:         "Alice",
		Role:         models.RoleStudent,
		Status:       models.StatusApproved,
		Phone:        "+15551234567",
		ProfileImage: "/uploads/profiles/old.jpg",
		SocialLinks:  map[string]string{"linkedin": "https://linkedin.com/in/alice"},
	}
}

func bob() *models.User {
	return &models.User{
		Email:   "bob@example.com",
		Name:    "Bob",
		Role:    models.RoleAlumni,
		Status:  models.StatusApproved,
		Company: "Initech",
	}
}

type harness struct {
	users   *servicestest.Users
	codes   *servicestest.Codes
	sender  *servicestest.Sender
	images  *servicestest.Images
	clock   *servicestest.Clock
	otp     *OTPService
	profile *ProfileService

	nextCodes []string
}

func newHarness(t *testing.T, users ...*models.User) *harness {
	t.Helper()

	h := &harness{
		users:  servicestest.NewUsers(users...),
		codes:  servicestest.NewCodes(),
		sender: &servicestest.Sender{},
		images: servicestest.NewImages(),
		clock:  servicestest.NewClock(testStart),
	}

	signer := NewCredentialSigner(testSecret)
	h.otp = NewOTPService(h.users, h.codes, servicestest.NoLimit{}, h.sender, signer, OTPConfig{
		CodeTTL:     5 * time.Minute,
		SessionTTL:  20 * time.Minute,
		MaxAttempts: 5,
		HashCost:    4,
	})
	h.otp.now = h.clock.Now
	h.otp.generate = func() (string, error) {
		if len(h.nextCodes) == 0 {
			return aliceCode, nil
		}
		code := h.nextCodes[0]
		h.nextCodes = h.nextCodes[1:]
		return code, nil
	}

	h.profile = NewProfileService(h.users, h.codes, h.images, signer)
	h.profile.now = h.clock.Now

	return h
}

func (h *harness) issue(t *testing.T, identifier string, channel models.Channel) *models.OTPSentResponse {
	t.Helper()
	resp, err := h.otp.IssueCode(context.Background(), models.SendOTPRequest{Identifier: identifier, Channel: channel})
	require.NoError(t, err)
	return resp
}

func (h *harness) verify(t *testing.T, identifier string, channel models.Channel, code string) string {
	t.Helper()
	resp, err := h.otp.VerifyCode(context.Background(), models.VerifyOTPRequest{Identifier: identifier, Channel: channel, Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Credential)
	return resp.Credential
}

// credentialFor runs the full issue and verify flow for alice over email.
func (h *harness) credentialFor(t *testing.T) string {
	t.Helper()
	h.issue(t, aliceEmail, models.ChannelEmail)
	return h.verify(t, aliceEmail, models.ChannelEmail, aliceCode)
}

func requireKind(t *testing.T, err error, kind ErrorKind) *AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, kind, appErr.Kind, "unexpected error: %v", err)
	return appErr
}
