package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// PriorityLevel maps a priority name to its numeric level for comparisons
// (high=3, medium=2, low=1). Unknown priorities rank as medium.
func PriorityLevel(p TaskPriority) int {
	switch p {
	case TaskPriorityHigh:
		return 3
	case TaskPriorityLow:
		return 1
	default:
		return 2
	}
}

type TaskSize string

const (
	TaskSizeXS TaskSize = "xs"
	TaskSizeS  TaskSize = "s"
	TaskSizeM  TaskSize = "m"
	TaskSizeL  TaskSize = "l"
	TaskSizeXL TaskSize = "xl"
)

type Task struct {
	ID                 uint64       `gorm:"primarykey" json:"id"`
	ProjectID          uint64       `gorm:"not null;index:idx_tasks_sibling_group" json:"project_id"`
	ParentID           *uint64      `gorm:"index:idx_tasks_sibling_group" json:"parent_id"`
	Title              string       `gorm:"not null" json:"title"`
	Description        string       `gorm:"type:text" json:"description"`
	Status             TaskStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Priority           TaskPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	SortOrder          int          `gorm:"not null;default:1;index:idx_tasks_sibling_group" json:"sort_order"`
	Size               *TaskSize    `gorm:"type:varchar(5)" json:"size"`
	CurrentStoryPoints *float64     `json:"current_story_points"`
	DueDate            *time.Time   `json:"due_date"`
	AssigneeID         *uint64      `gorm:"index" json:"assignee_id"`
	CompletedAt        *time.Time   `json:"completed_at"`

	// Ordering audit fields, owned by the ordering engine.
	InitialOrderIndex *int       `json:"initial_order_index"`
	CurrentOrderIndex *int       `json:"current_order_index"`
	MoveCount         int        `gorm:"not null;default:0" json:"move_count"`
	LastMovedAt       *time.Time `json:"last_moved_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Project  Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Parent   *Task   `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Task  `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Assignee *User   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
}

// IsLeaf reports whether the task has no children. Children must be preloaded;
// an unloaded relation reads as leaf.
func (t *Task) IsLeaf() bool {
	return len(t.Children) == 0
}

// IsOpen reports whether the task still counts as workable.
func (t *Task) IsOpen() bool {
	return t.Status != TaskStatusCompleted
}

// IsSigned reports whether the task has a direct assignee.
func (t *Task) IsSigned() bool {
	return t.AssigneeID != nil
}
