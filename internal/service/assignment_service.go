package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/repository"
)

// ErrInvalidDeadline indicates the deadline is malformed or not in the future.
var ErrInvalidDeadline = errors.New("deadline must be a future RFC3339 timestamp")

// AssignmentService exposes the assignment use cases the integrity API needs.
type AssignmentService interface {
	Get(ctx context.Context, id string, requester Requester) (dto.AssignmentResponse, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, requester Requester) (dto.AssignmentResponse, error)
	ToggleSubmissions(ctx context.Context, id string, requester Requester) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	classes   repository.ClassRepository
	access    classAccess
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, classes repository.ClassRepository, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		classes:   classes,
		access:    classAccess{classes: classes},
		validator: validate,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		now:       time.Now,
	}
}

// Get returns the assignment to members of its class and to its creator.
func (s *assignmentService) Get(ctx context.Context, id string, requester Requester) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if err := s.access.requireRead(ctx, assignment, requester); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, requester Requester) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	deadline, err := time.Parse(time.RFC3339, payload.Deadline)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrInvalidDeadline, err)
	}

	if !deadline.After(s.now()) {
		return dto.AssignmentResponse{}, ErrInvalidDeadline
	}

	member, err := s.classes.IsMember(ctx, payload.ClassID, requester.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if !member {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	open := true
	if payload.SubmissionsOpen != nil {
		open = *payload.SubmissionsOpen
	}

	assignment := models.Assignment{
		Title:           payload.Title,
		ClassID:         payload.ClassID,
		CreatedBy:       requester.ID,
		Deadline:        deadline.UTC(),
		SubmissionsOpen: open,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Str("assignment_id", assignment.ID).Str("class_id", assignment.ClassID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

// ToggleSubmissions flips whether the assignment accepts new submissions.
// Only the teacher who created the assignment may do so.
func (s *assignmentService) ToggleSubmissions(ctx context.Context, id string, requester Requester) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if assignment.CreatedBy != requester.ID {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	assignment.SubmissionsOpen = !assignment.SubmissionsOpen
	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Bool("submissions_open", assignment.SubmissionsOpen).
		Msg("assignment submissions toggled")

	return dto.NewAssignmentResponse(assignment), nil
}
