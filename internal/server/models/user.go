// Package models defines the records the auth core reads from and writes
// to the user store.
package models

// Role is the privilege level stored on a user record.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the persisted user record. PasswordHash and RefreshToken never
// leave the process in serialized form.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`

	// RefreshToken is the single live refresh token, nil when none was issued.
	RefreshToken *string `json:"-"`
}

// HasRefreshToken reports whether a refresh token is stored.
func (u *User) HasRefreshToken() bool {
	return u.RefreshToken != nil && *u.RefreshToken != ""
}
