package dto

import (
	"time"

	"github.com/noah-isme/gema-integrity-api/internal/models"
)

// SubmissionCreateRequest carries a student's text. AssignmentID and UserID
// come from the route and the token; Content is ignored when a file is sent.
type SubmissionCreateRequest struct {
	AssignmentID string `json:"-" form:"-" validate:"required"`
	UserID       string `json:"-" form:"-" validate:"required"`
	Content      string `json:"content" form:"content" validate:"max=200000"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              string      `json:"id"`
	AssignmentID    string      `json:"assignment_id"`
	UserID          string      `json:"user_id"`
	FileURL         string      `json:"file_url,omitempty"`
	Content         string      `json:"content"`
	AIScore         *int        `json:"ai_score"`
	PlagiarismScore *int        `json:"plagiarism_score"`
	Analyzed        bool        `json:"analyzed"`
	AnalyzedAt      *time.Time  `json:"analyzed_at"`
	CreatedAt       time.Time   `json:"created_at"`
	Student         StudentLite `json:"student"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		UserID:          model.UserID,
		FileURL:         model.FileURL,
		Content:         model.Content,
		AIScore:         model.AIScore,
		PlagiarismScore: model.PlagiarismScore,
		Analyzed:        model.IsAnalyzed(),
		AnalyzedAt:      model.AnalyzedAt,
		CreatedAt:       model.CreatedAt,
		Student: StudentLite{
			ID:    model.User.ID,
			Name:  model.User.Name,
			Email: model.User.Email,
		},
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
