package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisMatrix stores the similarity matrix of the latest run for an
// assignment. Submission results reference it by assignment id.
type AnalysisMatrix struct {
	AssignmentID    string         `gorm:"type:varchar(36);primaryKey" json:"assignment_id"`
	RunID           string         `gorm:"type:varchar(36);not null" json:"run_id"`
	Matrix          datatypes.JSON `gorm:"not null" json:"matrix"`
	SubmissionCount int            `gorm:"not null" json:"submission_count"`
	ComputedAt      time.Time      `gorm:"not null" json:"computed_at"`
}
