package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectType string

const (
	ProjectTypeFinite    ProjectType = "finite"
	ProjectTypeIterative ProjectType = "iterative"
)

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ProjectType ProjectType    `gorm:"type:varchar(20);not null;default:'finite'" json:"project_type"`
	OwnerID     uint64         `gorm:"not null;index" json:"owner_id"`
	GroupID     *uint64        `gorm:"index" json:"group_id"`
	DueDate     *time.Time     `json:"due_date"`
	AIModel     string         `gorm:"type:varchar(100)" json:"ai_model"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Tasks []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
