package repository

import (
	"github.com/hokkaidev/task-curation-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// VisibleToUser returns owned projects plus projects reachable through the
// user's group memberships. Open tasks are preloaded with their children so
// leaf detection needs no further queries.
func (r *GormProjectRepository) VisibleToUser(userID uint64) ([]models.Project, error) {
	groupSubQuery := r.db.Model(&models.GroupMember{}).
		Select("group_id").
		Where("user_id = ?", userID)

	var projects []models.Project
	err := r.db.
		Where("owner_id = ?", userID).
		Or("group_id IN (?)", groupSubQuery).
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at DESC").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Where("status <> ?", models.TaskStatusCompleted).
				Order("sort_order ASC")
		}).
		Preload("Tasks.Children").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}
