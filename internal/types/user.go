// Package types holds the wire types exchanged with the review backend.
package types

import "time"

// Roles a user can hold.
const (
	RoleAdmin    = "admin"
	RoleReviewer = "reviewer"
)

// User is the authenticated account as returned by the backend.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          *string   `json:"email,omitempty"`
	EmailVerified  bool      `json:"email_verified,omitempty"`
	Role           string    `json:"role"`
	Status         string    `json:"status"` // pending, approved, rejected
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	Department     *string   `json:"department,omitempty"`
	OfficeLocation *string   `json:"office_location,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LoginResponse is returned by both password and email-code login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ProfileResponse is returned by GET /auth/profile.
type ProfileResponse struct {
	User        User     `json:"user"`
	Permissions []string `json:"permissions,omitempty"`
}

// SendCodeResponse acknowledges a verification code email.
type SendCodeResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}
