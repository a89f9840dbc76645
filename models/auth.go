// models/auth.go

package models

// SendOTPRequest starts a verification for an identifier.
type SendOTPRequest struct {
	Identifier string  `json:"identifier" validate:"required,email"`
	Channel    Channel `json:"channel" validate:"required,oneof=email phone"`
	RollNumber string  `json:"rollNumber,omitempty" validate:"omitempty,max=32"`
}

// VerifyOTPRequest submits a code for an identifier.
type VerifyOTPRequest struct {
	Identifier string  `json:"identifier" validate:"required,email"`
	Channel    Channel `json:"channel" validate:"required,oneof=email phone"`
	Code       string  `json:"code" validate:"required"`
}

// UpdateProfileRequest carries the fields to write with a credential.
// Fields stays a loose map so unknown keys can be dropped instead of rejected.
type UpdateProfileRequest struct {
	Identifier string                 `json:"identifier" validate:"required,email"`
	Channel    Channel                `json:"channel" validate:"required,oneof=email phone"`
	Fields     map[string]interface{} `json:"fields"`
}

// SignupRequest registers a student or alumnus.
type SignupRequest struct {
	Email      string `json:"email" form:"email" validate:"required,email"`
	Password   string `json:"password" form:"password" validate:"required,min=8"`
	Name       string `json:"name" form:"name" validate:"required,max=120"`
	Role       string `json:"role" form:"role" validate:"required,oneof=student alumni"`
	RollNumber string `json:"rollNumber,omitempty" form:"rollNumber" validate:"omitempty,max=32"`
	Phone      string `json:"phone,omitempty" form:"phone"`
	Branch     string `json:"branch,omitempty" form:"branch" validate:"omitempty,max=80"`
	Batch      int    `json:"batch,omitempty" form:"batch" validate:"omitempty,min=1950,max=2100"`
	Company    string `json:"company,omitempty" form:"company" validate:"omitempty,max=120"`
}

// OTPSentResponse is returned after a code is issued.
type OTPSentResponse struct {
	Destination      string  `json:"destination"`
	Channel          Channel `json:"channel"`
	ExpiresInSeconds int     `json:"expiresInSeconds"`
}

// OTPVerifiedResponse hands the update credential back to the client.
type OTPVerifiedResponse struct {
	Credential       string `json:"credential"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// ProfileUpdatedResponse is the result of a credentialed profile write.
type ProfileUpdatedResponse struct {
	User          *User    `json:"user"`
	IgnoredFields []string `json:"ignoredFields,omitempty"`
}
