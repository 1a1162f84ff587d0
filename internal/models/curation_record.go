package models

import (
	"time"

	"gorm.io/datatypes"
)

// DailyCurationRecord stores the outcome of one curation run for a
// (user, project, date) triple. Re-running the same day overwrites the row.
type DailyCurationRecord struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	UserID       uint64    `gorm:"not null;uniqueIndex:idx_curation_record_day" json:"user_id"`
	ProjectID    uint64    `gorm:"not null;uniqueIndex:idx_curation_record_day" json:"project_id"`
	CurationDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_curation_record_day" json:"curation_date"`

	Suggestions        datatypes.JSON `gorm:"not null" json:"suggestions"`
	Summary            string         `gorm:"type:text" json:"summary"`
	FocusAreas         datatypes.JSON `gorm:"not null" json:"focus_areas"`
	RecommendedTaskIDs datatypes.JSON `gorm:"not null" json:"recommended_task_ids"`
	AIGenerated        bool           `gorm:"not null;default:false" json:"ai_generated"`
	AIModel            string         `gorm:"type:varchar(100)" json:"ai_model"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CurationPromptLog keeps the exact prompt sent to the AI provider for
// debugging. Rows for a user are deleted at the start of that user's next run.
type CurationPromptLog struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	ProjectID uint64    `gorm:"not null" json:"project_id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Model     string    `gorm:"type:varchar(100)" json:"model"`
	CreatedAt time.Time `json:"created_at"`
}
