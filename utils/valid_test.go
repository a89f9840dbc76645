package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeEmail(t *testing.T) {
	email, err := SanitizeEmail("  Alice.Smith+alumni@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice.smith+alumni@example.com", email)

	for _, bad := range []string{"", "alice", "alice@", "@example.com", "alice@example"} {
		_, err := SanitizeEmail(bad)
		assert.Error(t, err, bad)
	}
}

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "+1 (555) 123-4567", want: "+15551234567"},
		{in: "44 20 7946 0958", want: "+442079460958"},
		{in: "12345", wantErr: true},
		{in: "+1234567890123456", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizePhone(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidateImageFile(t *testing.T) {
	assert.NoError(t, ValidateImageFile("me.JPG", 1024))
	assert.NoError(t, ValidateImageFile("me.png", MaxImageSize))
	assert.Error(t, ValidateImageFile("me.png", MaxImageSize+1))
	assert.Error(t, ValidateImageFile("me.svg", 10))
	assert.Error(t, ValidateImageFile("me", 10))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "al***@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "b***@example.com", MaskEmail("bo@example.com"))
	assert.Equal(t, "not-an-email", MaskEmail("not-an-email"))

	assert.Equal(t, "********4567", MaskPhone("+15551234567"))
	assert.Equal(t, "***", MaskPhone("123"))
}
