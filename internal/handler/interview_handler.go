package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesage-go-api/internal/dto"
	"github.com/noah-isme/codesage-go-api/internal/middleware"
	"github.com/noah-isme/codesage-go-api/internal/service"
	"github.com/noah-isme/codesage-go-api/internal/utils"
)

// InterviewHandler wires the interview websocket upgrade and the topics listing.
type InterviewHandler struct {
	service service.InterviewService
	logger  zerolog.Logger
}

// NewInterviewHandler creates an interview handler instance.
func NewInterviewHandler(service service.InterviewService, logger zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		service: service,
		logger:  logger.With().Str("component", "interview_handler").Logger(),
	}
}

// Register binds interview routes under the provided router group.
func (h *InterviewHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Get("/topics", h.topics)
}

func (h *InterviewHandler) handleConnection(conn *websocket.Conn) {
	correlation := ""
	if value := conn.Locals("correlation_id"); value != nil {
		correlation = fmt.Sprint(value)
	}
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.InterviewConnectionOptions{
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("correlation_id", correlation).Msg("interview websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("correlation_id", correlation).Msg("interview websocket disconnected")
}

func (h *InterviewHandler) topics(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "interview topics", dto.TopicsResponse{
		Topics: h.service.Topics(),
	})
}
