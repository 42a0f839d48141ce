package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/models"
)

// ClassRepository covers the enrollment data the integrity API relies on.
type ClassRepository interface {
	Create(ctx context.Context, class *models.Class) error
	AddMember(ctx context.Context, member *models.ClassMember) error
	IsMember(ctx context.Context, classID, userID string) (bool, error)
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository instantiates the repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepository) AddMember(ctx context.Context, member *models.ClassMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *classRepository) IsMember(ctx context.Context, classID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ClassMember{}).
		Where("class_id = ?", classID).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}
