package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-integrity-api/internal/models"
)

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
	GetByID(ctx context.Context, id string) (models.Submission, error)
	GetByAssignmentAndUser(ctx context.Context, assignmentID, userID string) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	SaveAnalysis(ctx context.Context, scored []models.Submission, matrix models.AnalysisMatrix) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).Preload("User")
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndUser(ctx context.Context, assignmentID, userID string) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("user_id = ?", userID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("User").Create(submission).Error
}

// SaveAnalysis writes the result fields of every scored submission and
// replaces the assignment matrix in one transaction.
func (r *submissionRepository) SaveAnalysis(ctx context.Context, scored []models.Submission, matrix models.AnalysisMatrix) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, submission := range scored {
			result := tx.Model(&models.Submission{}).
				Where("id = ?", submission.ID).
				Where("assignment_id = ?", matrix.AssignmentID).
				Select("ai_score", "plagiarism_score", "result_json", "analyzed_at").
				Updates(map[string]interface{}{
					"ai_score":         submission.AIScore,
					"plagiarism_score": submission.PlagiarismScore,
					"result_json":      submission.ResultJSON,
					"analyzed_at":      submission.AnalyzedAt,
				})
			if result.Error != nil {
				return fmt.Errorf("update submission %s: %w", submission.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("update submission %s: %w", submission.ID, gorm.ErrRecordNotFound)
			}
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"run_id", "matrix", "submission_count", "computed_at"}),
		}).Create(&matrix).Error; err != nil {
			return fmt.Errorf("store matrix for assignment %s: %w", matrix.AssignmentID, err)
		}

		return nil
	})
}
