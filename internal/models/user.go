package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID              uint64         `gorm:"primarykey" json:"id"`
	Email           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	OrganizationID  *uint64        `gorm:"index" json:"organization_id"`
	PendingApproval bool           `gorm:"not null;default:false" json:"pending_approval"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Projects     []Project     `gorm:"foreignKey:OwnerID" json:"-"`
	Groups       []GroupMember `gorm:"foreignKey:UserID" json:"-"`
}

// EligibleForCuration reports whether the daily curation run should include
// this user: approved and email-verified.
func (u *User) EligibleForCuration() bool {
	return !u.PendingApproval && u.EmailVerifiedAt != nil
}

// IsOrganizationMember reports whether the user belongs to a real (non-default)
// organization. Default-organization users are treated as individuals: they do
// not compete for a shared task pool.
func (u *User) IsOrganizationMember() bool {
	if u.OrganizationID == nil {
		return false
	}
	if u.Organization != nil && u.Organization.IsDefault {
		return false
	}
	return true
}
