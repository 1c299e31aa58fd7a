package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesage-go-api/internal/config"
	"github.com/noah-isme/codesage-go-api/internal/database"
	"github.com/noah-isme/codesage-go-api/internal/handler"
	"github.com/noah-isme/codesage-go-api/internal/middleware"
	"github.com/noah-isme/codesage-go-api/internal/models"
	"github.com/noah-isme/codesage-go-api/internal/repository"
	"github.com/noah-isme/codesage-go-api/internal/router"
	"github.com/noah-isme/codesage-go-api/internal/service"
	"github.com/noah-isme/codesage-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Interview{}, &models.QuestionResponse{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, result caching disabled")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, completion events disabled")
		natsConn = nil
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	completer, err := ai.NewOpenAICompleter(ai.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
		Logger: logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("reasoning service unavailable, running on deterministic fallbacks")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	interviewRepo := repository.NewInterviewRepository(db)
	registry := service.NewSessionRegistry()

	var reasoner ai.Completer
	if completer != nil {
		reasoner = completer
	}

	questionService := service.NewQuestionService(reasoner, logger)
	evaluationService := service.NewEvaluationService(reasoner, logger)
	coachingService := service.NewCoachingService(reasoner, logger)
	interviewService := service.NewInterviewService(
		questionService,
		evaluationService,
		coachingService,
		interviewRepo,
		registry,
		redisClient,
		cfg.ChannelBase,
		natsConn,
		validate,
		logger,
		cfg.TotalQuestions,
		cfg.ResultCacheTTL,
	)

	interviewHandler := handler.NewInterviewHandler(interviewService, logger)
	recordsHandler := handler.NewInterviewRecordsHandler(interviewRepo, interviewService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		InterviewHandler:        interviewHandler,
		InterviewRecordsHandler: recordsHandler,
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		RecordsGuard:            middleware.RequireRole("admin", "interviewer"),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
