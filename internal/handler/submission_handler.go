package handler

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/middleware"
	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/service"
	"github.com/noah-isme/gema-integrity-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/assignments/:id/submissions", middleware.RequireRole(models.RoleStudent), h.create)
	router.Get("/assignments/:id/submissions", middleware.RequireRole(models.RoleTeacher), h.list)
	router.Get("/submissions/:id", middleware.RequireRole(models.RoleTeacher, models.RoleStudent), h.get)
}

// create accepts either a JSON body with content or a multipart form with a
// plain text file.
func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	assignmentID, err := pathParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionCreateRequest
	var file *multipart.FileHeader

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart form")
		}
		if values := form.Value["content"]; len(values) > 0 {
			payload.Content = values[0]
		}
		if files := form.File["file"]; len(files) > 0 {
			file = files[0]
		}
	} else if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	payload.AssignmentID = assignmentID
	payload.UserID = middleware.UserID(c)

	submission, err := h.service.Create(c.UserContext(), payload, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	assignmentID, err := pathParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.ListByAssignment(c.UserContext(), assignmentID, requesterFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), id, requesterFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}
