package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-integrity-api/internal/middleware"
	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/service"
	"github.com/noah-isme/gema-integrity-api/internal/utils"
)

// AnalysisHandler exposes analysis runs and their results.
type AnalysisHandler struct {
	service service.AnalysisService
	logger  zerolog.Logger
}

// NewAnalysisHandler builds an analysis handler instance.
func NewAnalysisHandler(service service.AnalysisService, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger.With().Str("component", "analysis_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Starting a run
// is rate limited per teacher.
func (h *AnalysisHandler) Register(router fiber.Router) {
	teacherOnly := middleware.RequireRole(models.RoleTeacher)

	router.Post("/assignments/:id/analysis", teacherOnly, middleware.RateLimit("analysis_run", 10, time.Minute), h.run)
	router.Get("/assignments/:id/analysis", teacherOnly, h.report)
	router.Get("/submissions/:id/result", middleware.RequireRole(models.RoleTeacher, models.RoleStudent), h.result)
}

func (h *AnalysisHandler) run(c *fiber.Ctx) error {
	assignmentID, err := pathParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Run(c.UserContext(), assignmentID, requesterFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Str("assignment_id", assignmentID).
		Str("run_id", report.RunID).
		Str("requested_by", middleware.UserID(c)).
		Msg("analysis run requested")

	return utils.SendSuccess(c, "analysis completed", report)
}

func (h *AnalysisHandler) report(c *fiber.Ctx) error {
	assignmentID, err := pathParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Report(c.UserContext(), assignmentID, requesterFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "analysis report retrieved", report)
}

func (h *AnalysisHandler) result(c *fiber.Ctx) error {
	submissionID, err := pathParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.SubmissionResult(c.UserContext(), submissionID, requesterFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission result retrieved", result)
}
