package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services/servicestest"
)

func TestChannelDispatcher(t *testing.T) {
	ctx := context.Background()
	email := &servicestest.Sender{}
	sms := &servicestest.Sender{}

	d := NewChannelDispatcher(email, sms)
	require.NoError(t, d.SendCode(ctx, models.ChannelEmail, aliceEmail, aliceCode, "Alice"))
	require.NoError(t, d.SendCode(ctx, models.ChannelPhone, "+15551234567", aliceCode, "Alice"))
	assert.Equal(t, 1, email.Count())
	assert.Equal(t, 1, sms.Count())

	emailOnly := NewChannelDispatcher(email, nil)
	err := emailOnly.SendCode(ctx, models.ChannelPhone, "+15551234567", aliceCode, "Alice")
	assert.ErrorIs(t, err, ErrChannelUnavailable)
	assert.Equal(t, 1, sms.Count())
}

func TestCodeBodies(t *testing.T) {
	plain, body := codeBodies(aliceCode, "<Alice>", 5)
	assert.Contains(t, plain, "Hello <Alice>,")
	assert.Contains(t, plain, "482913")
	assert.Contains(t, plain, "expires in 5 minutes")
	assert.Contains(t, body, "Hello &lt;Alice&gt;,")
	assert.Contains(t, body, "<strong>482913</strong>")

	plain, _ = codeBodies(aliceCode, "", 5)
	assert.Contains(t, plain, "Hello,")
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, KindExpired, KindOf(ExpiredError()))
	assert.ErrorIs(t, InvalidCodeError(2), &AppError{Kind: KindInvalidCode})

	unavailable := storeError("find", context.DeadlineExceeded)
	assert.Equal(t, KindStoreUnavailable, unavailable.Kind)
	assert.ErrorIs(t, unavailable, context.DeadlineExceeded)
	assert.NotContains(t, unavailable.Message, "deadline")

	assert.Equal(t, KindInternal, storeError("find", assert.AnError).Kind)
}
