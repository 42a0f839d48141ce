package dto

import (
	"time"

	"github.com/noah-isme/gema-integrity-api/internal/analysis"
)

// AnalysisReport is the teacher view of an assignment's latest run. The
// similarity matrix appears once for the whole assignment.
type AnalysisReport struct {
	AssignmentID     string                      `json:"assignmentId"`
	RunID            string                      `json:"runId,omitempty"`
	ComputedAt       *time.Time                  `json:"computedAt"`
	Analyzed         int                         `json:"analyzed"`
	Pending          int                         `json:"pending"`
	Threshold        int                         `json:"threshold"`
	SimilarityMatrix analysis.Matrix             `json:"similarityMatrix"`
	Submissions      []AnalysisSubmissionSummary `json:"submissions"`
}

// AnalysisSubmissionSummary lists the scores of one submission in a report.
type AnalysisSubmissionSummary struct {
	SubmissionID      string                      `json:"submissionId"`
	UserID            string                      `json:"userId"`
	StudentName       string                      `json:"studentName"`
	AIScore           *int                        `json:"aiScore"`
	PlagiarismScore   *int                        `json:"plagiarismScore"`
	PlagiarismDetails []analysis.PlagiarismDetail `json:"plagiarismDetails"`
	Flagged           bool                        `json:"flagged"`
}

// SubmissionResultResponse wraps the full analysis data of one submission.
type SubmissionResultResponse struct {
	SubmissionID string                `json:"submissionId"`
	AssignmentID string                `json:"assignmentId"`
	UserID       string                `json:"userId"`
	AnalyzedAt   *time.Time            `json:"analyzedAt"`
	Result       analysis.AnalysisData `json:"result"`
}
