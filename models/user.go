package models

import (
	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Username     string `gorm:"not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Team membership (a user belongs to exactly one team at a time)
	TeamID   *uint  `gorm:"index" json:"team_id,omitempty"`
	TeamName string `json:"team_name,omitempty"`
	Role     string `gorm:"default:'owner'" json:"role"` // owner, member

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Team *Team `json:"team,omitempty"`
}
