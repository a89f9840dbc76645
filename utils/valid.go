// utils/valid.go
package utils

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxImageSize caps profile image uploads.
const MaxImageSize = 5 * 1024 * 1024

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneStrip   = regexp.MustCompile(`[^\d+]`)
	allowedImage = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
	}
)

// SanitizeEmail sanitizes and validates an email address
func SanitizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return "", errors.New("invalid email format")
	}
	return email, nil
}

// SanitizePhone sanitizes and validates a phone number
func SanitizePhone(phone string) (string, error) {
	// Phone is optional
	if strings.TrimSpace(phone) == "" {
		return "", nil
	}

	phone = phoneStrip.ReplaceAllString(phone, "")
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}

	// Basic validation for international phone number
	if len(phone) < 8 || len(phone) > 16 {
		return "", errors.New("invalid phone number length")
	}

	return phone, nil
}

// ValidateImageFile validates upload size and extension.
func ValidateImageFile(filename string, size int64) error {
	if size > MaxImageSize {
		return errors.New("file too large")
	}
	if !allowedImage[strings.ToLower(filepath.Ext(filename))] {
		return errors.New("invalid file type. Allowed formats: jpg, jpeg, png, gif")
	}
	return nil
}
