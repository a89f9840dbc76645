package models

import (
	"time"
)

// Channel is where a verification code gets delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Valid reports whether c is a known delivery channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelPhone
}

// PurposeProfileUpdate scopes update credentials to profile writes.
const PurposeProfileUpdate = "profile_update"

// VerificationEntry is the single outstanding OTP challenge for an
// (identifier, channel) pair. ID is derived from the pair, so a new
// issuance always overwrites the previous one.
type VerificationEntry struct {
	ID           string     `bson:"_id"`
	IssueID      string     `bson:"issueId"`
	Identifier   string     `bson:"identifier"`
	Channel      Channel    `bson:"channel"`
	CodeHash     string     `bson:"codeHash"`
	ExpiresAt    time.Time  `bson:"expiresAt"`
	Attempts     int        `bson:"attempts"`
	Verified     bool       `bson:"verified"`
	VerifiedAt   *time.Time `bson:"verifiedAt,omitempty"`
	CredentialID string     `bson:"credentialId,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"`
}

// VerificationKey builds the document key for an (identifier, channel) pair.
func VerificationKey(identifier string, channel Channel) string {
	return identifier + "|" + string(channel)
}

// IsExpired checks the entry against now.
func (v *VerificationEntry) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// IssuanceWindow holds the most recent issuance times for one identifier,
// newest last, capped at the issuance limit.
type IssuanceWindow struct {
	Identifier string      `bson:"_id"`
	Issuances  []time.Time `bson:"issuances"`
	UpdatedAt  time.Time   `bson:"updatedAt"`
}
