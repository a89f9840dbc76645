package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/HSouheill/alumni_backend/models"
)

var (
	errCredentialInvalid = errors.New("credential is invalid")
	errCredentialExpired = errors.New("credential has expired")
)

// CredentialClaims bind an update credential to one identifier and channel.
type CredentialClaims struct {
	Channel models.Channel `json:"channel"`
	Purpose string         `json:"purpose"`
	jwt.StandardClaims
}

// CredentialSigner issues and checks HS256 update credentials.
type CredentialSigner struct {
	secret []byte
}

func NewCredentialSigner(secret string) *CredentialSigner {
	return &CredentialSigner{secret: []byte(secret)}
}

// Sign builds the credential for a verified entry. All claims come from the
// stored entry, so signing the same entry twice yields the same token.
func (s *CredentialSigner) Sign(entry *models.VerificationEntry) (string, error) {
	if !entry.Verified || entry.VerifiedAt == nil || entry.CredentialID == "" {
		return "", errCredentialInvalid
	}

	claims := CredentialClaims{
		Channel: entry.Channel,
		Purpose: models.PurposeProfileUpdate,
		StandardClaims: jwt.StandardClaims{
			Subject:   entry.Identifier,
			Id:        entry.CredentialID,
			IssuedAt:  entry.VerifiedAt.Unix(),
			ExpiresAt: entry.ExpiresAt.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies the signature and purpose, then checks expiry against now.
func (s *CredentialSigner) Parse(tokenString string, now time.Time) (*CredentialClaims, error) {
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}

	claims := &CredentialClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errCredentialInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errCredentialInvalid
	}

	if claims.Purpose != models.PurposeProfileUpdate || claims.Id == "" || claims.Subject == "" {
		return nil, errCredentialInvalid
	}
	if claims.ExpiresAt == 0 || now.Unix() > claims.ExpiresAt {
		return nil, errCredentialExpired
	}
	return claims, nil
}
