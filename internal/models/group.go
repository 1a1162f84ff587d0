package models

import (
	"time"

	"gorm.io/gorm"
)

type Group struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Organization Organization  `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Members      []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	Projects     []Project     `gorm:"foreignKey:GroupID" json:"projects,omitempty"`
}

type GroupMember struct {
	GroupID  uint64    `gorm:"primarykey" json:"group_id"`
	UserID   uint64    `gorm:"primarykey" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
