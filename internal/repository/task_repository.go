package repository

import (
	"time"

	"github.com/hokkaidev/task-curation-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// CompletedByUserSince lists the user's completed tasks since the given time
func (r *GormTaskRepository) CompletedByUserSince(userID uint64, since time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("assignee_id = ? AND status = ? AND completed_at >= ?",
			userID, models.TaskStatusCompleted, since).
		Preload("Project").
		Order("completed_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Siblings lists the sibling group ordered by sort_order
func (r *GormTaskRepository) Siblings(projectID uint64, parentID *uint64) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.Where("project_id = ?", projectID)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if err := query.Order("sort_order ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
