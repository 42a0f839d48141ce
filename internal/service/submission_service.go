package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/repository"
)

const maxSubmissionFileSize = 1 << 20

var (
	// ErrSubmissionsClosed indicates the assignment is closed or past its deadline.
	ErrSubmissionsClosed = errors.New("submissions are not being accepted for this assignment")
	// ErrAlreadySubmitted indicates the user already submitted for the assignment.
	ErrAlreadySubmitted = errors.New("a submission already exists for this assignment")
	// ErrNotClassMember indicates the user is not enrolled in the assignment's class.
	ErrNotClassMember = errors.New("user is not a member of the assignment's class")
	// ErrEmptySubmission indicates neither content nor a readable file was provided.
	ErrEmptySubmission = errors.New("submission content is empty")
	// ErrUnsupportedFileType indicates the uploaded file is not plain text.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge indicates the uploaded file exceeds the size limit.
	ErrFileTooLarge = errors.New("submission file is too large")
)

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

// SubmissionService orchestrates submission workflows.
type SubmissionService interface {
	Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	ListByAssignment(ctx context.Context, assignmentID string, requester Requester) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id string, requester Requester) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	classes     repository.ClassRepository
	access      classAccess
	validator   *validator.Validate
	uploader    FileUploader
	cache       *ReportCache
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. A nil
// uploader keeps only the original file name. cache may be nil.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, classRepo repository.ClassRepository, validate *validator.Validate, uploader FileUploader, cache *ReportCache, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		classes:     classRepo,
		access:      classAccess{classes: classRepo},
		validator:   validate,
		uploader:    uploader,
		cache:       cache,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !assignment.AcceptsSubmissions(s.now()) {
		return dto.SubmissionResponse{}, ErrSubmissionsClosed
	}

	member, err := s.classes.IsMember(ctx, assignment.ClassID, payload.UserID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !member {
		return dto.SubmissionResponse{}, ErrNotClassMember
	}

	if _, err := s.submissions.GetByAssignmentAndUser(ctx, assignment.ID, payload.UserID); err == nil {
		return dto.SubmissionResponse{}, ErrAlreadySubmitted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		UserID:       payload.UserID,
		Content:      payload.Content,
	}

	var data []byte
	if file != nil {
		data, err = readFile(file)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		submission.Content = string(data)
		submission.FileURL = file.Filename
	}

	submission.Content = s.sanitize(submission.Content)
	if submission.Content == "" {
		return dto.SubmissionResponse{}, ErrEmptySubmission
	}

	uploaded := ""
	if file != nil && s.uploader != nil {
		uploaded = path.Join(assignment.ID, payload.UserID+path.Ext(file.Filename))
		url, err := s.uploader.Upload(ctx, uploaded, bytes.NewReader(data))
		if err != nil {
			return dto.SubmissionResponse{}, fmt.Errorf("failed to upload file: %w", err)
		}
		submission.FileURL = url
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		if uploaded != "" {
			s.discardUpload(ctx, uploaded)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SubmissionResponse{}, ErrAlreadySubmitted
		}
		return dto.SubmissionResponse{}, err
	}

	s.cache.Invalidate(ctx, assignment.ID)

	// Reload with associations
	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Str("submission_id", created.ID).
		Str("assignment_id", created.AssignmentID).
		Str("user_id", created.UserID).
		Msg("submission created")

	return dto.NewSubmissionResponse(created), nil
}

// ListByAssignment returns every submission of the assignment to teachers of
// its class.
func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID string, requester Requester) ([]dto.SubmissionResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	if err := s.access.requireManage(ctx, assignment, requester); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id string, requester Requester) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if requester.Owns(submission.UserID) {
		return dto.NewSubmissionResponse(submission), nil
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.access.requireManage(ctx, assignment, requester); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// discardUpload removes a stored file whose submission row was never written.
func (s *submissionService) discardUpload(ctx context.Context, name string) {
	if err := s.uploader.Delete(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("failed to remove orphaned upload")
	}
}

// readFile returns the bytes of an uploaded plain text file.
func readFile(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > maxSubmissionFileSize {
		return nil, ErrFileTooLarge
	}

	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxSubmissionFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxSubmissionFileSize {
		return nil, ErrFileTooLarge
	}

	detected := mimetype.Detect(data)
	if !detected.Is("text/plain") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, detected.String())
	}

	return data, nil
}

// sanitize strips markup. Entities escaped by the policy are decoded so the
// stored text matches what the student typed.
func (s *submissionService) sanitize(content string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(content)))
}
