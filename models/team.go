package models

import "gorm.io/gorm"

// Team represents user teams for collaboration
type Team struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`

	// JoinCode is the shared secret other users present to join the team
	JoinCode string `gorm:"uniqueIndex;not null" json:"join_code"`
	OwnerID  uint   `gorm:"not null;index" json:"owner_id"`

	// Relations
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TeamMember represents team members and their roles
type TeamMember struct {
	gorm.Model
	TeamID uint `gorm:"not null;index" json:"team_id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Role string `gorm:"default:'member'" json:"role"` // owner, member

	// Relations
	Team Team `json:"-"`
	User User `json:"-"`
}
