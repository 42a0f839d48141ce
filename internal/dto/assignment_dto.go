package dto

import (
	"time"

	"github.com/noah-isme/gema-integrity-api/internal/models"
)

// AssignmentCreateRequest is the payload teachers send to open an assignment.
type AssignmentCreateRequest struct {
	Title           string `json:"title" validate:"required,min=3,max=255"`
	ClassID         string `json:"class_id" validate:"required,uuid"`
	Deadline        string `json:"deadline" validate:"required"`
	SubmissionsOpen *bool  `json:"submissions_open"`
}

// AssignmentResponse is returned to API clients when viewing assignments.
type AssignmentResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ClassID         string    `json:"class_id"`
	CreatedBy       string    `json:"created_by"`
	Deadline        time.Time `json:"deadline"`
	SubmissionsOpen bool      `json:"submissions_open"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:              model.ID,
		Title:           model.Title,
		ClassID:         model.ClassID,
		CreatedBy:       model.CreatedBy,
		Deadline:        model.Deadline,
		SubmissionsOpen: model.SubmissionsOpen,
		CreatedAt:       model.CreatedAt,
	}
}
