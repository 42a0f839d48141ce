package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission is a student's text for an assignment together with the fields
// written by an analysis run.
type Submission struct {
	ID              string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	AssignmentID    string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_submission_owner" json:"assignment_id"`
	UserID          string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_submission_owner" json:"user_id"`
	FileURL         string         `gorm:"size:512" json:"file_url"`
	Content         string         `gorm:"type:text" json:"content"`
	AIScore         *int           `json:"ai_score"`
	PlagiarismScore *int           `json:"plagiarism_score"`
	ResultJSON      datatypes.JSON `json:"result_json"`
	AnalyzedAt      *time.Time     `json:"analyzed_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	User            User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// BeforeCreate assigns a UUID when none was provided.
func (s *Submission) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsAnalyzed reports whether an analysis run has scored the submission.
func (s Submission) IsAnalyzed() bool {
	return s.AIScore != nil && s.PlagiarismScore != nil
}
