package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-integrity-api/internal/analysis"
	"github.com/noah-isme/gema-integrity-api/internal/middleware"
	"github.com/noah-isme/gema-integrity-api/internal/service"
	"github.com/noah-isme/gema-integrity-api/internal/utils"
)

func requesterFromContext(c *fiber.Ctx) service.Requester {
	return service.Requester{
		ID:   middleware.UserID(c),
		Role: middleware.UserRole(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func pathParam(c *fiber.Ctx, key string) (string, error) {
	value := strings.TrimSpace(c.Params(key))
	if value == "" {
		return "", errors.New("missing " + key)
	}
	return value, nil
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

// respondError maps service and engine errors onto the API envelope.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotClassMember):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSubmissionsClosed),
		errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrAnalysisInProgress),
		errors.Is(err, service.ErrSubmissionNotAnalyzed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptySubmission),
		errors.Is(err, service.ErrInvalidDeadline),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, analysis.ErrInvalidSubmission),
		errors.Is(err, analysis.ErrDuplicateUser),
		errors.Is(err, analysis.ErrMixedAssignments):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if details := validationDetails(err); details != nil {
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", details)
	}

	requestLogger(logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
