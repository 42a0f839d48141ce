package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/analysis"
	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/models"
)

const (
	sharedEssay   = "the quick brown fox jumps over the lazy dog"
	distinctEssay = "completely unrelated words describing something else"
)

func newAnalysisService(f *fixture, locker AnalysisLocker, publisher *recordingPublisher, cache *ReportCache) AnalysisService {
	return NewAnalysisService(f.assignments, f.submissions, f.matrices, f.classes, testEngine(), locker, publisher, cache, zerolog.Nop())
}

func summaryFor(t *testing.T, report dto.AnalysisReport, userID string) dto.AnalysisSubmissionSummary {
	t.Helper()
	for _, summary := range report.Submissions {
		if summary.UserID == userID {
			return summary
		}
	}
	t.Fatalf("no summary for user %s", userID)
	return dto.AnalysisSubmissionSummary{}
}

func TestAnalysisServiceRunPersistsResults(t *testing.T) {
	f := newFixture(t)
	ada, grace, charles := f.students[0], f.students[1], f.students[2]
	f.addSubmission(t, ada, sharedEssay)
	f.addSubmission(t, grace, sharedEssay)
	third := f.addSubmission(t, charles, distinctEssay)

	publisher := &recordingPublisher{}
	svc := newAnalysisService(f, nil, publisher, nil)

	report, err := svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.NotNil(t, report.ComputedAt)
	require.Equal(t, 3, report.Analyzed)
	require.Zero(t, report.Pending)
	require.Equal(t, 60, report.Threshold)
	require.Equal(t, 100, report.SimilarityMatrix[ada.ID][grace.ID])
	require.Equal(t, 100, report.SimilarityMatrix[grace.ID][ada.ID])
	require.Zero(t, report.SimilarityMatrix[ada.ID][charles.ID])

	adaSummary := summaryFor(t, report, ada.ID)
	require.True(t, adaSummary.Flagged)
	require.Equal(t, []analysis.PlagiarismDetail{{PartnerID: grace.ID, Similarity: 100}}, adaSummary.PlagiarismDetails)
	require.False(t, summaryFor(t, report, charles.ID).Flagged)

	stored, err := f.submissions.GetByID(context.Background(), third.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AIScore)
	require.Equal(t, 0, *stored.PlagiarismScore)
	require.NotNil(t, stored.AnalyzedAt)

	result, err := analysis.ParseStoredResult(stored.ResultJSON)
	require.NoError(t, err)
	require.Equal(t, f.assignment.ID, result.MatrixRef)
	require.Empty(t, result.PlagiarismDetails)

	matrix, err := f.matrices.GetByAssignment(context.Background(), f.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, report.RunID, matrix.RunID)
	require.Equal(t, 3, matrix.SubmissionCount)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	require.Equal(t, report.RunID, event.RunID)
	require.Equal(t, 3, event.Scored)
	require.Equal(t, 100, event.MaxPlagiarism)
	require.Equal(t, 2, event.Flagged)
}

func TestAnalysisServiceRunLeavesEmptySubmissionsPending(t *testing.T) {
	f := newFixture(t)
	f.addSubmission(t, f.students[0], sharedEssay)
	blank := f.addSubmission(t, f.students[1], "   ")

	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)
	report, err := svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Equal(t, 1, report.Analyzed)
	require.Equal(t, 1, report.Pending)
	require.NotContains(t, report.SimilarityMatrix, f.students[1].ID)
	require.Empty(t, report.SimilarityMatrix[f.students[0].ID])

	stored, err := f.submissions.GetByID(context.Background(), blank.ID)
	require.NoError(t, err)
	require.False(t, stored.IsAnalyzed())
	require.Empty(t, stored.ResultJSON)
}

func TestAnalysisServiceRunWithoutSubmissions(t *testing.T) {
	f := newFixture(t)
	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)

	report, err := svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Empty(t, report.Submissions)
	require.Empty(t, report.SimilarityMatrix)
}

func TestAnalysisServiceRunRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	f.addSubmission(t, f.students[0], sharedEssay)

	locker := newLocalAnalysisLock()
	release, err := locker.Acquire(context.Background(), f.assignment.ID)
	require.NoError(t, err)

	svc := newAnalysisService(f, locker, &recordingPublisher{}, nil)
	_, err = svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.ErrorIs(t, err, ErrAnalysisInProgress)

	release()
	_, err = svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
}

func TestAnalysisServiceRunUnknownAssignment(t *testing.T) {
	f := newFixture(t)
	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)

	_, err := svc.Run(context.Background(), "missing", f.teacherRequester())
	require.ErrorIs(t, err, ErrAssignmentNotFound)

	_, err = svc.Report(context.Background(), "missing", f.teacherRequester())
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAnalysisServiceRunSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.addSubmission(t, f.students[0], sharedEssay)

	publisher := &recordingPublisher{err: errors.New("nats down")}
	svc := newAnalysisService(f, nil, publisher, nil)

	_, err := svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
}

func TestAnalysisServiceRerunOverwritesResults(t *testing.T) {
	f := newFixture(t)
	first := f.addSubmission(t, f.students[0], sharedEssay)
	f.addSubmission(t, f.students[1], distinctEssay)

	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)
	before, err := svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Submission{}).Where("id = ?", first.ID).Update("content", distinctEssay).Error)

	after, err := svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.NotEqual(t, before.RunID, after.RunID)
	require.Equal(t, 100, after.SimilarityMatrix[f.students[0].ID][f.students[1].ID])

	var count int64
	require.NoError(t, f.db.Model(&models.AnalysisMatrix{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAnalysisServiceReportBeforeAnyRun(t *testing.T) {
	f := newFixture(t)
	f.addSubmission(t, f.students[0], sharedEssay)

	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)
	report, err := svc.Report(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Empty(t, report.RunID)
	require.Nil(t, report.ComputedAt)
	require.Equal(t, 1, report.Pending)
	require.NotNil(t, report.Submissions[0].PlagiarismDetails)
}

func TestAnalysisServiceReportCache(t *testing.T) {
	cache, mini := newTestReportCache(t)

	f := newFixture(t)
	f.addSubmission(t, f.students[0], sharedEssay)
	ctx := context.Background()

	svc := newAnalysisService(f, nil, &recordingPublisher{}, cache)
	_, err := svc.Run(ctx, f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	key := reportCacheKey(f.assignment.ID, 1)
	require.True(t, mini.Exists(key))

	payload, err := json.Marshal(dto.AnalysisReport{AssignmentID: f.assignment.ID, Analyzed: 42})
	require.NoError(t, err)
	require.NoError(t, mini.Set(key, string(payload)))

	cached, err := svc.Report(ctx, f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Equal(t, 42, cached.Analyzed)

	fresh, err := svc.Run(ctx, f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Equal(t, 1, fresh.Analyzed)
}

func TestAnalysisServiceReportRefreshesAfterNewSubmission(t *testing.T) {
	cache, _ := newTestReportCache(t)

	f := newFixture(t)
	f.addSubmission(t, f.students[0], sharedEssay)
	ctx := context.Background()

	svc := newAnalysisService(f, nil, &recordingPublisher{}, cache)
	before, err := svc.Run(ctx, f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Len(t, before.Submissions, 1)

	submissions := NewSubmissionService(f.submissions, f.assignments, f.classes, validator.New(validator.WithRequiredStructEnabled()), nil, cache, zerolog.Nop())
	_, err = submissions.Create(ctx, submissionRequest(f, f.students[1], distinctEssay), nil)
	require.NoError(t, err)

	after, err := svc.Report(ctx, f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Len(t, after.Submissions, 2)
	require.Equal(t, 1, after.Pending)
}

func TestAnalysisServiceIsScopedToClassTeachers(t *testing.T) {
	f := newFixture(t)
	ada, grace := f.students[0], f.students[1]
	adaSubmission := f.addSubmission(t, ada, sharedEssay)
	f.addSubmission(t, grace, sharedEssay)
	ctx := context.Background()

	outsider := f.addTeacher(t, "mallory", false)
	colleague := f.addTeacher(t, "barbara", true)
	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)

	_, err := svc.Run(ctx, f.assignment.ID, outsider)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Run(ctx, f.assignment.ID, studentRequester(ada))
	require.ErrorIs(t, err, ErrForbidden)

	report, err := svc.Run(ctx, f.assignment.ID, colleague)
	require.NoError(t, err)
	require.Equal(t, 2, report.Analyzed)

	_, err = svc.Report(ctx, f.assignment.ID, outsider)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Report(ctx, f.assignment.ID, colleague)
	require.NoError(t, err)

	_, err = svc.SubmissionResult(ctx, adaSubmission.ID, outsider)
	require.ErrorIs(t, err, ErrForbidden)

	view, err := svc.SubmissionResult(ctx, adaSubmission.ID, colleague)
	require.NoError(t, err)
	require.Len(t, view.Result.SimilarityMatrix, 2)
}

func TestAnalysisServiceSubmissionResult(t *testing.T) {
	f := newFixture(t)
	ada, grace, charles := f.students[0], f.students[1], f.students[2]
	adaSubmission := f.addSubmission(t, ada, sharedEssay)
	f.addSubmission(t, grace, sharedEssay)
	f.addSubmission(t, charles, distinctEssay)

	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)
	_, err := svc.SubmissionResult(context.Background(), adaSubmission.ID, f.teacherRequester())
	require.ErrorIs(t, err, ErrSubmissionNotAnalyzed)

	_, err = svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)

	teacherView, err := svc.SubmissionResult(context.Background(), adaSubmission.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Equal(t, 100, teacherView.Result.PlagiarismScore)
	require.Len(t, teacherView.Result.SimilarityMatrix, 3)
	require.Equal(t, 0, teacherView.Result.SimilarityMatrix[grace.ID][charles.ID])

	ownerView, err := svc.SubmissionResult(context.Background(), adaSubmission.ID, studentRequester(ada))
	require.NoError(t, err)
	require.Len(t, ownerView.Result.SimilarityMatrix, 1)
	require.Equal(t, 100, ownerView.Result.SimilarityMatrix[ada.ID][grace.ID])
	require.Equal(t, teacherView.Result.PlagiarismDetails, ownerView.Result.PlagiarismDetails)

	_, err = svc.SubmissionResult(context.Background(), adaSubmission.ID, studentRequester(grace))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SubmissionResult(context.Background(), "missing", f.teacherRequester())
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestAnalysisServiceSubmissionResultWithoutStoredMatrix(t *testing.T) {
	f := newFixture(t)
	ada := f.students[0]
	submission := f.addSubmission(t, ada, sharedEssay)
	f.addSubmission(t, f.students[1], sharedEssay)

	svc := newAnalysisService(f, nil, &recordingPublisher{}, nil)
	_, err := svc.Run(context.Background(), f.assignment.ID, f.teacherRequester())
	require.NoError(t, err)
	require.NoError(t, f.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.AnalysisMatrix{}).Error)

	view, err := svc.SubmissionResult(context.Background(), submission.ID, f.teacherRequester())
	require.NoError(t, err)
	require.Len(t, view.Result.SimilarityMatrix, 1)
	require.Equal(t, 100, view.Result.SimilarityMatrix[ada.ID][f.students[1].ID])
}
