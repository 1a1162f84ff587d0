package repository

import (
	"github.com/hokkaidev/task-curation-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID with the organization preloaded
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Organization").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListEligibleForCuration lists approved, verified users
func (r *GormUserRepository) ListEligibleForCuration() ([]models.User, error) {
	var users []models.User
	err := r.db.Preload("Organization").
		Where("pending_approval = ? AND email_verified_at IS NOT NULL", false).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
