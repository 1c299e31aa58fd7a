package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codesage-go-api/internal/dto"
	"github.com/noah-isme/codesage-go-api/internal/middleware"
	"github.com/noah-isme/codesage-go-api/internal/repository"
	"github.com/noah-isme/codesage-go-api/internal/service"
	"github.com/noah-isme/codesage-go-api/internal/utils"
)

// InterviewRecordsHandler exposes read access to stored interview records.
type InterviewRecordsHandler struct {
	repo       repository.InterviewRepository
	interviews service.InterviewService
	logger     zerolog.Logger
}

// NewInterviewRecordsHandler creates a records handler instance.
func NewInterviewRecordsHandler(repo repository.InterviewRepository, interviews service.InterviewService, logger zerolog.Logger) *InterviewRecordsHandler {
	return &InterviewRecordsHandler{
		repo:       repo,
		interviews: interviews,
		logger:     logger.With().Str("component", "interview_records_handler").Logger(),
	}
}

// Register binds record routes under the provided router group.
func (h *InterviewRecordsHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:session_id", h.get)
	router.Get("/:session_id/results", h.results)
}

func (h *InterviewRecordsHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	interviews, err := h.repo.List(h.requestContext(c), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list interviews")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list interviews")
	}

	return utils.SendSuccess(c, "interviews", dto.NewInterviewRecordResponseSlice(interviews))
}

func (h *InterviewRecordsHandler) get(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Params("session_id"))
	if sessionID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "session_id required")
	}

	ctx := h.requestContext(c)

	interview, err := h.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "interview not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("session_id", sessionID).Msg("failed to load interview")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load interview")
	}

	responses, err := h.repo.ListQuestionResponses(ctx, sessionID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("session_id", sessionID).Msg("failed to load question responses")
	}

	return utils.SendSuccess(c, "interview", dto.InterviewDetailResponse{
		Interview:         dto.NewInterviewRecordResponse(interview),
		QuestionResponses: responses,
	})
}

// results serves the completion payload, preferring the short-lived cache
// written at completion time over the final_results document in the DB.
func (h *InterviewRecordsHandler) results(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Params("session_id"))
	if sessionID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "session_id required")
	}

	ctx := h.requestContext(c)

	if results, ok := h.interviews.CachedResults(ctx, sessionID); ok {
		return utils.SendSuccess(c, "interview results", results)
	}

	interview, err := h.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "interview not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("session_id", sessionID).Msg("failed to load interview results")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load interview results")
	}

	if len(interview.FinalResults) == 0 {
		return utils.SendError(c, fiber.StatusNotFound, "interview results not available")
	}

	return utils.SendSuccess(c, "interview results", interview.FinalResults)
}

func (h *InterviewRecordsHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}
