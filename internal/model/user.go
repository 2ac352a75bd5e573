package model

import "time"

// User represents a registered account.
//
// An account signs in either with email + password or through GitHub OAuth,
// so both Email and GitHubID are optional but UNIQUE when present. The
// profile fields (DisplayName, AvatarURL, Bio) live on the same row.
//
// WHY Email string (not *string)?
// We use an empty string as the zero value rather than a nullable pointer;
// simpler to work with and safe to display. The repository maps "" to NULL
// so the UNIQUE constraint only applies to real addresses.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`                  // never serialized
	GitHubID     int64     `json:"githubId,omitempty"` // 0 when not linked
	Login        string    `json:"login,omitempty"`    // GitHub username
	DisplayName  string    `json:"displayName,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Name is what other users see next to comments and lists.
func (u *User) Name() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Login != "":
		return u.Login
	default:
		return ""
	}
}
