package api

import "time"

// User is the client's cached copy of the server user record.
type User struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	FullName        *string   `json:"full_name"`
	IsActive        bool      `json:"is_active"`
	Role            string    `json:"role"`
	ThemePreference string    `json:"theme_preference"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.FullName != nil {
		name := *u.FullName
		c.FullName = &name
	}
	return &c
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	FullName *string `json:"full_name,omitempty"`
	Password string  `json:"password"`
}

// ProfileUpdate carries the fields to change; nil fields are left alone.
type ProfileUpdate struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
}

// PasswordChange is the password change payload.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type themeUpdate struct {
	ThemePreference string `json:"theme_preference"`
}

type message struct {
	Message string `json:"message"`
}
