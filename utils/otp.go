// utils/otp.go
package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	OTPLength = 6
	otpMin    = 100000
	otpSpan   = 900000
)

var ErrInvalidOTPFormat = errors.New("code must be exactly 6 digits")

// GenerateNumericOTP returns a uniformly random code in [100000, 999999].
func GenerateNumericOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}

// NormalizeOTP trims the submitted code and checks its shape.
func NormalizeOTP(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != OTPLength {
		return "", ErrInvalidOTPFormat
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", ErrInvalidOTPFormat
		}
	}
	return code, nil
}

// HashOTP derives the stored one-way hash of a code.
func HashOTP(code string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareOTP reports whether code matches the stored hash.
func CompareOTP(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
