package models

import (
	"time"
)

// CuratableType whitelists the item kinds the curation pipeline may assign.
// Only tasks are curatable today; the enum keeps the reference typed instead
// of an open (type-string, id) pair.
type CuratableType string

const (
	CuratableTypeTask CuratableType = "task"
)

// ValidCuratableType reports whether t names a supported item kind.
func ValidCuratableType(t CuratableType) bool {
	return t == CuratableTypeTask
}

// CuratedAssignment is one entry on a user's work list for a given day.
// The uniqueness constraint doubles as the claim guard: when two organization
// members race for the same task, the second insert hits the constraint and
// is skipped.
type CuratedAssignment struct {
	ID            uint64        `gorm:"primarykey" json:"id"`
	CuratableType CuratableType `gorm:"type:varchar(20);not null;uniqueIndex:idx_curated_claim" json:"curatable_type"`
	CuratableID   uint64        `gorm:"not null;uniqueIndex:idx_curated_claim" json:"curatable_id"`
	WorkDate      time.Time     `gorm:"type:date;not null;uniqueIndex:idx_curated_claim" json:"work_date"`
	AssignedToID  uint64        `gorm:"not null;uniqueIndex:idx_curated_claim;index" json:"assigned_to_id"`
	ProjectID     uint64        `gorm:"not null;index" json:"project_id"`
	InitialIndex  int           `gorm:"not null" json:"initial_index"`
	CurrentIndex  int           `gorm:"not null" json:"current_index"`
	MovedCount    int           `gorm:"not null;default:0" json:"moved_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	// Relations
	AssignedTo User `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
}
