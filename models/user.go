// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleStudent = "student"
	RoleAlumni  = "alumni"
)

// Registration statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// User is a student or alumnus in the directory. Email is the identity key.
type User struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	RollNumber   string             `json:"rollNumber,omitempty" bson:"rollNumber,omitempty"`
	Password     string             `json:"-" bson:"password"`
	Name         string             `json:"name" bson:"name"`
	Role         string             `json:"role" bson:"role"`
	Status       string             `json:"status" bson:"status"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Location     string             `json:"location,omitempty" bson:"location,omitempty"`
	Headline     string             `json:"headline,omitempty" bson:"headline,omitempty"`
	TechStack    []string           `json:"techStack,omitempty" bson:"techStack,omitempty"`
	SocialLinks  map[string]string  `json:"socialLinks,omitempty" bson:"socialLinks,omitempty"`
	ResumeLink   string             `json:"resumeLink,omitempty" bson:"resumeLink,omitempty"`
	Branch       string             `json:"branch,omitempty" bson:"branch,omitempty"`
	Batch        int                `json:"batch,omitempty" bson:"batch,omitempty"`
	ProfileImage string             `json:"profileImage,omitempty" bson:"profileImage,omitempty"`

	// Student only
	DSAProblems int  `json:"dsaProblems,omitempty" bson:"dsaProblems,omitempty"`
	IsPlaced    bool `json:"isPlaced,omitempty" bson:"isPlaced,omitempty"`

	// Alumni only
	Company string `json:"company,omitempty" bson:"company,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Sanitized returns a copy that is safe to send to clients.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Password = ""
	return &out
}

// Response model
type Response struct {
	Status            int         `json:"status"`
	Message           string      `json:"message"`
	Kind              string      `json:"kind,omitempty"`
	RemainingAttempts int         `json:"remainingAttempts,omitempty"`
	RetryAfterSeconds int         `json:"retryAfterSeconds,omitempty"`
	Data              interface{} `json:"data,omitempty"`
}

// UserFilter narrows a directory listing.
type UserFilter struct {
	Role   string
	Branch string
	Batch  int
	Page   int
	Limit  int
}
