package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/models"
)

// MatrixRepository reads the shared similarity matrices.
type MatrixRepository interface {
	GetByAssignment(ctx context.Context, assignmentID string) (models.AnalysisMatrix, error)
}

type matrixRepository struct {
	db *gorm.DB
}

// NewMatrixRepository instantiates the repository.
func NewMatrixRepository(db *gorm.DB) MatrixRepository {
	return &matrixRepository{db: db}
}

func (r *matrixRepository) GetByAssignment(ctx context.Context, assignmentID string) (models.AnalysisMatrix, error) {
	var matrix models.AnalysisMatrix
	if err := r.db.WithContext(ctx).Where("assignment_id = ?", assignmentID).First(&matrix).Error; err != nil {
		return models.AnalysisMatrix{}, err
	}

	return matrix, nil
}
