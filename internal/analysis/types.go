package analysis

import (
	"encoding/json"
	"fmt"
)

// Submission is the engine's view of a stored submission. Only the three
// result fields are written by a run.
type Submission struct {
	ID              string  `json:"id" validate:"required"`
	AssignmentID    string  `json:"assignmentId"`
	UserID          string  `json:"userId" validate:"required"`
	Content         string  `json:"content"`
	AIScore         *int    `json:"aiScore"`
	PlagiarismScore *int    `json:"plagiarismScore"`
	ResultJSON      *string `json:"resultJson"`
}

// Scored reports whether the submission has been through an analysis run.
func (s Submission) Scored() bool {
	return s.AIScore != nil && s.PlagiarismScore != nil
}

// PlagiarismDetail names a suspected partner and the similarity with them.
type PlagiarismDetail struct {
	PartnerID  string `json:"partnerId"`
	Similarity int    `json:"similarity"`
}

// Matrix maps user id -> partner user id -> similarity. It is symmetric and
// never holds a user's similarity with itself.
type Matrix map[string]map[string]int

// Row returns a copy of the similarities recorded for userID.
func (m Matrix) Row(userID string) map[string]int {
	row := make(map[string]int, len(m[userID]))
	for partner, similarity := range m[userID] {
		row[partner] = similarity
	}
	return row
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	clone := make(Matrix, len(m))
	for userID := range m {
		clone[userID] = m.Row(userID)
	}
	return clone
}

// AnalysisData is the assignment-wide view of one submission's result.
type AnalysisData struct {
	AIScore           int                `json:"aiScore"`
	PlagiarismScore   int                `json:"plagiarismScore"`
	PlagiarismDetails []PlagiarismDetail `json:"plagiarismDetails"`
	SimilarityMatrix  Matrix             `json:"similarityMatrix"`
}

// StoredResult is what a run writes into Submission.ResultJSON. The shared
// matrix lives once per assignment and is referenced through MatrixRef.
type StoredResult struct {
	AIScore           int                `json:"aiScore"`
	PlagiarismScore   int                `json:"plagiarismScore"`
	PlagiarismDetails []PlagiarismDetail `json:"plagiarismDetails"`
	SimilarityRow     map[string]int     `json:"similarityRow"`
	MatrixRef         string             `json:"matrixRef"`
}

// ParseStoredResult decodes a value previously written to ResultJSON.
func ParseStoredResult(raw []byte) (StoredResult, error) {
	var stored StoredResult
	if err := json.Unmarshal(raw, &stored); err != nil {
		return StoredResult{}, fmt.Errorf("decode stored result: %w", err)
	}
	if stored.PlagiarismDetails == nil {
		stored.PlagiarismDetails = []PlagiarismDetail{}
	}
	if stored.SimilarityRow == nil {
		stored.SimilarityRow = map[string]int{}
	}
	return stored, nil
}

// Hydrate rebuilds the full AnalysisData from a stored row and the shared
// assignment matrix.
func Hydrate(stored StoredResult, matrix Matrix) AnalysisData {
	details := make([]PlagiarismDetail, len(stored.PlagiarismDetails))
	copy(details, stored.PlagiarismDetails)

	return AnalysisData{
		AIScore:           stored.AIScore,
		PlagiarismScore:   stored.PlagiarismScore,
		PlagiarismDetails: details,
		SimilarityMatrix:  matrix.Clone(),
	}
}

// Result is the outcome of a single run over one assignment's batch.
type Result struct {
	AssignmentID string       `json:"assignmentId"`
	Submissions  []Submission `json:"submissions"`
	Matrix       Matrix       `json:"similarityMatrix"`
	Scored       int          `json:"scored"`
	Skipped      int          `json:"skipped"`
}

// MaxPlagiarism returns the highest plagiarism score of the run.
func (r Result) MaxPlagiarism() int {
	highest := 0
	for _, submission := range r.Submissions {
		if submission.PlagiarismScore != nil && *submission.PlagiarismScore > highest {
			highest = *submission.PlagiarismScore
		}
	}
	return highest
}

// Options tunes the heuristics. A field that is zero or negative takes its
// DefaultOptions value, so a PlagiarismThreshold of 0 means 60 rather than
// "flag every pair". Callers wanting a low threshold pass 1.
type Options struct {
	PlagiarismThreshold   int
	AIWordLengthThreshold float64
	TokenLimit            int
	TopPartners           int
}

// DefaultOptions returns the documented thresholds.
func DefaultOptions() Options {
	return Options{
		PlagiarismThreshold:   60,
		AIWordLengthThreshold: 6.5,
		TokenLimit:            100,
		TopPartners:           3,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.PlagiarismThreshold <= 0 {
		o.PlagiarismThreshold = defaults.PlagiarismThreshold
	}
	if o.AIWordLengthThreshold <= 0 {
		o.AIWordLengthThreshold = defaults.AIWordLengthThreshold
	}
	if o.TokenLimit <= 0 {
		o.TokenLimit = defaults.TokenLimit
	}
	if o.TopPartners <= 0 {
		o.TopPartners = defaults.TopPartners
	}
	return o
}
