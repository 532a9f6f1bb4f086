package model

import "time"

// DefaultRole is assigned to every self-registered user.
const DefaultRole = "USER"

// User represents an authenticated user in the system.
type User struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Email           string          `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username        string          `json:"username" gorm:"uniqueIndex;size:100;not null"`
	HashedPassword  string          `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	FullName        *string         `json:"full_name" gorm:"size:255"`
	IsActive        bool            `json:"is_active" gorm:"default:true;not null"`
	IsSuperuser     bool            `json:"-" gorm:"default:false;not null"`
	Role            string          `json:"role" gorm:"size:50;default:'USER';not null"`
	ThemePreference ThemePreference `json:"theme_preference" gorm:"size:20;default:'system';not null"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
