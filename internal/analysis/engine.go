package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidSubmission indicates an item of the batch is missing required fields.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrDuplicateUser indicates two submissions with content share a user id.
	ErrDuplicateUser = errors.New("duplicate user in batch")
	// ErrMixedAssignments indicates the batch spans more than one assignment.
	ErrMixedAssignments = errors.New("batch spans multiple assignments")
)

// Engine computes AI-likelihood and peer similarity for one assignment batch.
// A run performs no I/O and never mutates the caller's submissions.
type Engine struct {
	options   Options
	scorer    aiScorer
	validator *validator.Validate
}

// NewEngine builds an engine. A nil random source uses DefaultRandom.
func NewEngine(options Options, random RandomSource) *Engine {
	options = options.withDefaults()
	if random == nil {
		random = DefaultRandom()
	}

	return &Engine{
		options: options,
		scorer: aiScorer{
			wordLengthThreshold: options.AIWordLengthThreshold,
			random:              random,
		},
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Options returns the effective thresholds.
func (e *Engine) Options() Options {
	return e.options
}

// ScoreAI returns the heuristic AI-likelihood of text.
func (e *Engine) ScoreAI(text string) int {
	return e.scorer.score(text)
}

// Similarity compares two texts with the engine's token limit.
func (e *Engine) Similarity(text1, text2 string) int {
	return SimilarityWithLimit(text1, text2, e.options.TokenLimit)
}

// Run analyzes the batch and returns a copy with result fields populated.
// Submissions without content are passed through unscored and are left out
// of the matrix.
func (e *Engine) Run(submissions []Submission) (Result, error) {
	assignmentID, err := e.validate(submissions)
	if err != nil {
		return Result{}, err
	}

	analyzed := cloneSubmissions(submissions)
	result := Result{
		AssignmentID: assignmentID,
		Submissions:  analyzed,
		Matrix:       Matrix{},
	}

	withContent := make([]*Submission, 0, len(analyzed))
	for i := range analyzed {
		if hasContent(analyzed[i]) {
			withContent = append(withContent, &analyzed[i])
		}
	}
	result.Skipped = len(analyzed) - len(withContent)
	if len(withContent) == 0 {
		return result, nil
	}

	result.Matrix = buildMatrix(withContent, e.options.TokenLimit)

	order := make([]string, len(withContent))
	for i, submission := range withContent {
		order[i] = submission.UserID
	}

	for _, submission := range withContent {
		row := result.Matrix[submission.UserID]
		stored := StoredResult{
			AIScore:           e.scorer.score(submission.Content),
			PlagiarismScore:   maxSimilarity(row),
			PlagiarismDetails: e.rankPartners(row, order),
			SimilarityRow:     result.Matrix.Row(submission.UserID),
			MatrixRef:         assignmentID,
		}

		payload, err := json.Marshal(stored)
		if err != nil {
			return Result{}, fmt.Errorf("encode result for submission %s: %w", submission.ID, err)
		}

		aiScore := stored.AIScore
		plagiarismScore := stored.PlagiarismScore
		resultJSON := string(payload)
		submission.AIScore = &aiScore
		submission.PlagiarismScore = &plagiarismScore
		submission.ResultJSON = &resultJSON
		result.Scored++
	}

	return result, nil
}

// rankPartners keeps the partners above the threshold, highest first. Ties
// keep batch order.
func (e *Engine) rankPartners(row map[string]int, order []string) []PlagiarismDetail {
	details := make([]PlagiarismDetail, 0, e.options.TopPartners)
	for _, partnerID := range order {
		similarity, ok := row[partnerID]
		if !ok || similarity <= e.options.PlagiarismThreshold {
			continue
		}
		details = append(details, PlagiarismDetail{PartnerID: partnerID, Similarity: similarity})
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].Similarity > details[j].Similarity
	})

	if len(details) > e.options.TopPartners {
		details = details[:e.options.TopPartners]
	}
	return details
}

func (e *Engine) validate(submissions []Submission) (string, error) {
	assignmentID := ""
	users := make(map[string]string, len(submissions))

	for i, submission := range submissions {
		if err := e.validator.Struct(submission); err != nil {
			return "", fmt.Errorf("%w at index %d: %w", ErrInvalidSubmission, i, err)
		}

		if submission.AssignmentID != "" {
			if assignmentID == "" {
				assignmentID = submission.AssignmentID
			} else if assignmentID != submission.AssignmentID {
				return "", fmt.Errorf("%w: %s and %s", ErrMixedAssignments, assignmentID, submission.AssignmentID)
			}
		}

		if !hasContent(submission) {
			continue
		}
		if previous, ok := users[submission.UserID]; ok {
			return "", fmt.Errorf("%w: user %s owns submissions %s and %s", ErrDuplicateUser, submission.UserID, previous, submission.ID)
		}
		users[submission.UserID] = submission.ID
	}

	return assignmentID, nil
}

func maxSimilarity(row map[string]int) int {
	highest := 0
	for _, similarity := range row {
		if similarity > highest {
			highest = similarity
		}
	}
	return highest
}

func hasContent(submission Submission) bool {
	return strings.TrimSpace(submission.Content) != ""
}

func cloneSubmissions(submissions []Submission) []Submission {
	clones := make([]Submission, len(submissions))
	for i, submission := range submissions {
		clone := submission
		clone.AIScore = cloneInt(submission.AIScore)
		clone.PlagiarismScore = cloneInt(submission.PlagiarismScore)
		if submission.ResultJSON != nil {
			value := *submission.ResultJSON
			clone.ResultJSON = &value
		}
		clones[i] = clone
	}
	return clones
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
