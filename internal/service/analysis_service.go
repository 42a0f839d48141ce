package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/analysis"
	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/events"
	"github.com/noah-isme/gema-integrity-api/internal/middleware"
	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/observability"
	"github.com/noah-isme/gema-integrity-api/internal/repository"
)

// ErrSubmissionNotAnalyzed indicates the submission has no stored result yet.
var ErrSubmissionNotAnalyzed = errors.New("submission has not been analyzed yet")

const (
	outcomeSuccess  = "success"
	outcomeConflict = "conflict"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeDenied   = "forbidden"
	outcomeError    = "error"
)

// AnalysisEngine scores one assignment batch.
type AnalysisEngine interface {
	Run(submissions []analysis.Submission) (analysis.Result, error)
	Options() analysis.Options
}

// AnalysisService runs integrity analyses and serves their results.
type AnalysisService interface {
	Run(ctx context.Context, assignmentID string, requester Requester) (dto.AnalysisReport, error)
	Report(ctx context.Context, assignmentID string, requester Requester) (dto.AnalysisReport, error)
	SubmissionResult(ctx context.Context, submissionID string, requester Requester) (dto.SubmissionResultResponse, error)
}

type analysisService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	matrices    repository.MatrixRepository
	access      classAccess
	engine      AnalysisEngine
	locker      AnalysisLocker
	publisher   events.Publisher
	cache       *ReportCache
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAnalysisService wires the analysis workflow. locker, publisher and cache may be nil.
func NewAnalysisService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, matrices repository.MatrixRepository, classes repository.ClassRepository, engine AnalysisEngine, locker AnalysisLocker, publisher events.Publisher, cache *ReportCache, logger zerolog.Logger) AnalysisService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if locker == nil {
		locker = newLocalAnalysisLock()
	}
	observability.RegisterMetrics()

	return &analysisService{
		assignments: assignments,
		submissions: submissions,
		matrices:    matrices,
		access:      classAccess{classes: classes},
		engine:      engine,
		locker:      locker,
		publisher:   publisher,
		cache:       cache,
		tracer:      otel.Tracer("github.com/noah-isme/gema-integrity-api/internal/service/analysis"),
		logger:      logger.With().Str("component", "analysis_service").Logger(),
		now:         time.Now,
	}
}

// Run scores every submission of the assignment. Only teachers of the
// assignment's class may start a run.
func (s *analysisService) Run(ctx context.Context, assignmentID string, requester Requester) (dto.AnalysisReport, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.run", trace.WithAttributes(
		attribute.String("analysis.assignment_id", assignmentID),
	))
	defer span.End()

	logger := s.logger.With().
		Str("assignment_id", assignmentID).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Logger()

	started := s.now()
	report, outcome, err := s.run(ctx, assignmentID, requester, logger)
	observability.AnalysisRuns().WithLabelValues(outcome).Inc()
	observability.AnalysisDuration().Observe(s.now().Sub(started).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if outcome == outcomeError {
			logger.Error().Err(err).Msg("analysis run failed")
		} else {
			logger.Warn().Err(err).Str("outcome", outcome).Msg("analysis run rejected")
		}
		return dto.AnalysisReport{}, err
	}

	span.SetAttributes(
		attribute.String("analysis.run_id", report.RunID),
		attribute.Int("analysis.scored", report.Analyzed),
	)
	return report, nil
}

func (s *analysisService) run(ctx context.Context, assignmentID string, requester Requester, logger zerolog.Logger) (dto.AnalysisReport, string, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnalysisReport{}, outcomeNotFound, ErrAssignmentNotFound
		}
		return dto.AnalysisReport{}, outcomeError, err
	}

	if err := s.access.requireManage(ctx, assignment, requester); err != nil {
		if errors.Is(err, ErrForbidden) {
			return dto.AnalysisReport{}, outcomeDenied, err
		}
		return dto.AnalysisReport{}, outcomeError, err
	}

	release, err := s.locker.Acquire(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, ErrAnalysisInProgress) {
			return dto.AnalysisReport{}, outcomeConflict, err
		}
		return dto.AnalysisReport{}, outcomeError, err
	}
	defer release()

	stored, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return dto.AnalysisReport{}, outcomeError, err
	}

	result, err := s.engine.Run(toEngineBatch(stored))
	if err != nil {
		return dto.AnalysisReport{}, outcomeInvalid, fmt.Errorf("analyze assignment %s: %w", assignmentID, err)
	}

	matrixJSON, err := json.Marshal(result.Matrix)
	if err != nil {
		return dto.AnalysisReport{}, outcomeError, fmt.Errorf("encode similarity matrix: %w", err)
	}

	runID := uuid.NewString()
	computedAt := s.now().UTC()
	threshold := s.engine.Options().PlagiarismThreshold

	scored := make([]models.Submission, 0, result.Scored)
	flagged := 0
	for _, submission := range result.Submissions {
		if !submission.Scored() {
			continue
		}
		if *submission.PlagiarismScore > threshold {
			flagged++
		}

		var resultJSON datatypes.JSON
		if submission.ResultJSON != nil {
			resultJSON = datatypes.JSON(*submission.ResultJSON)
		}
		analyzedAt := computedAt
		scored = append(scored, models.Submission{
			ID:              submission.ID,
			AIScore:         submission.AIScore,
			PlagiarismScore: submission.PlagiarismScore,
			ResultJSON:      resultJSON,
			AnalyzedAt:      &analyzedAt,
		})
	}

	matrix := models.AnalysisMatrix{
		AssignmentID:    assignmentID,
		RunID:           runID,
		Matrix:          datatypes.JSON(matrixJSON),
		SubmissionCount: len(scored),
		ComputedAt:      computedAt,
	}
	if err := s.submissions.SaveAnalysis(ctx, scored, matrix); err != nil {
		return dto.AnalysisReport{}, outcomeError, fmt.Errorf("persist analysis: %w", err)
	}

	s.cache.Invalidate(ctx, assignmentID)
	observability.AnalysisBatchSize().Observe(float64(result.Scored))
	observability.AnalysisFlagged().Add(float64(flagged))

	event := events.AnalysisCompleted{
		AssignmentID:  assignmentID,
		RunID:         runID,
		Scored:        result.Scored,
		Skipped:       result.Skipped,
		MaxPlagiarism: result.MaxPlagiarism(),
		Flagged:       flagged,
		CompletedAt:   computedAt,
	}
	if err := s.publisher.PublishAnalysisCompleted(ctx, event); err != nil {
		logger.Warn().Err(err).Str("run_id", runID).Msg("failed to publish analysis event")
	}

	logger.Info().
		Str("run_id", runID).
		Int("scored", result.Scored).
		Int("skipped", result.Skipped).
		Int("flagged", flagged).
		Msg("analysis completed")

	report, err := s.report(ctx, assignmentID)
	if err != nil {
		return dto.AnalysisReport{}, outcomeError, err
	}
	return report, outcomeSuccess, nil
}

// Report returns the latest results of the assignment to teachers of its class.
func (s *analysisService) Report(ctx context.Context, assignmentID string, requester Requester) (dto.AnalysisReport, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnalysisReport{}, ErrAssignmentNotFound
		}
		return dto.AnalysisReport{}, err
	}

	if err := s.access.requireManage(ctx, assignment, requester); err != nil {
		return dto.AnalysisReport{}, err
	}

	return s.report(ctx, assignmentID)
}

func (s *analysisService) report(ctx context.Context, assignmentID string) (dto.AnalysisReport, error) {
	cached, cacheKey, hit := s.cache.Lookup(ctx, assignmentID)
	if hit {
		s.logger.Debug().Str("assignment_id", assignmentID).Msg("analysis report cache hit")
		return cached, nil
	}

	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return dto.AnalysisReport{}, err
	}

	report := dto.AnalysisReport{
		AssignmentID:     assignmentID,
		Threshold:        s.engine.Options().PlagiarismThreshold,
		SimilarityMatrix: analysis.Matrix{},
		Submissions:      make([]dto.AnalysisSubmissionSummary, 0, len(submissions)),
	}

	stored, err := s.matrices.GetByAssignment(ctx, assignmentID)
	switch {
	case err == nil:
		if err := json.Unmarshal(stored.Matrix, &report.SimilarityMatrix); err != nil {
			return dto.AnalysisReport{}, fmt.Errorf("decode similarity matrix: %w", err)
		}
		computedAt := stored.ComputedAt
		report.RunID = stored.RunID
		report.ComputedAt = &computedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.AnalysisReport{}, err
	}

	for _, submission := range submissions {
		summary := dto.AnalysisSubmissionSummary{
			SubmissionID:      submission.ID,
			UserID:            submission.UserID,
			StudentName:       submission.User.Name,
			AIScore:           submission.AIScore,
			PlagiarismScore:   submission.PlagiarismScore,
			PlagiarismDetails: []analysis.PlagiarismDetail{},
		}

		if submission.IsAnalyzed() {
			report.Analyzed++
			if len(submission.ResultJSON) > 0 {
				result, err := analysis.ParseStoredResult(submission.ResultJSON)
				if err != nil {
					s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("skipping unreadable stored result")
				} else {
					summary.PlagiarismDetails = result.PlagiarismDetails
				}
			}
		} else {
			report.Pending++
		}
		summary.Flagged = len(summary.PlagiarismDetails) > 0

		report.Submissions = append(report.Submissions, summary)
	}

	s.cache.Store(ctx, cacheKey, report)

	return report, nil
}

// SubmissionResult returns the full analysis data of one submission. Teachers
// of the assignment's class see the whole matrix; the owning student only
// their own row.
func (s *analysisService) SubmissionResult(ctx context.Context, submissionID string, requester Requester) (dto.SubmissionResultResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResultResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResultResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return dto.SubmissionResultResponse{}, err
	}
	manages, err := s.access.canManage(ctx, assignment, requester)
	if err != nil {
		return dto.SubmissionResultResponse{}, err
	}
	if !manages && !requester.Owns(submission.UserID) {
		return dto.SubmissionResultResponse{}, ErrForbidden
	}

	if !submission.IsAnalyzed() || len(submission.ResultJSON) == 0 {
		return dto.SubmissionResultResponse{}, ErrSubmissionNotAnalyzed
	}

	stored, err := analysis.ParseStoredResult(submission.ResultJSON)
	if err != nil {
		return dto.SubmissionResultResponse{}, err
	}

	matrix := analysis.Matrix{submission.UserID: stored.SimilarityRow}
	if manages {
		matrix, err = s.sharedMatrix(ctx, stored, submission)
		if err != nil {
			return dto.SubmissionResultResponse{}, err
		}
	}

	return dto.SubmissionResultResponse{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		UserID:       submission.UserID,
		AnalyzedAt:   submission.AnalyzedAt,
		Result:       analysis.Hydrate(stored, matrix),
	}, nil
}

// sharedMatrix loads the matrix a stored result points to. Without a stored
// matrix the submission's own row is all that is known.
func (s *analysisService) sharedMatrix(ctx context.Context, stored analysis.StoredResult, submission models.Submission) (analysis.Matrix, error) {
	ref := stored.MatrixRef
	if ref == "" {
		ref = submission.AssignmentID
	}

	row, err := s.matrices.GetByAssignment(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return analysis.Matrix{submission.UserID: stored.SimilarityRow}, nil
		}
		return nil, err
	}

	matrix := analysis.Matrix{}
	if err := json.Unmarshal(row.Matrix, &matrix); err != nil {
		return nil, fmt.Errorf("decode similarity matrix: %w", err)
	}
	return matrix, nil
}

func toEngineBatch(submissions []models.Submission) []analysis.Submission {
	batch := make([]analysis.Submission, 0, len(submissions))
	for _, submission := range submissions {
		item := analysis.Submission{
			ID:              submission.ID,
			AssignmentID:    submission.AssignmentID,
			UserID:          submission.UserID,
			Content:         submission.Content,
			AIScore:         submission.AIScore,
			PlagiarismScore: submission.PlagiarismScore,
		}
		if len(submission.ResultJSON) > 0 {
			raw := string(submission.ResultJSON)
			item.ResultJSON = &raw
		}
		batch = append(batch, item)
	}
	return batch
}
