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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/terakoya-dev/terakoya-api/internal/config"
	"github.com/terakoya-dev/terakoya-api/internal/database"
	"github.com/terakoya-dev/terakoya-api/internal/handler"
	"github.com/terakoya-dev/terakoya-api/internal/limiter"
	"github.com/terakoya-dev/terakoya-api/internal/middleware"
	"github.com/terakoya-dev/terakoya-api/internal/models"
	"github.com/terakoya-dev/terakoya-api/internal/observability"
	"github.com/terakoya-dev/terakoya-api/internal/prompt"
	"github.com/terakoya-dev/terakoya-api/internal/repository"
	"github.com/terakoya-dev/terakoya-api/internal/router"
	"github.com/terakoya-dev/terakoya-api/internal/service"
	"github.com/terakoya-dev/terakoya-api/pkg/llm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	provider, err := llm.New(llm.ParseKind(cfg.LLMProvider), llm.SelectorConfig{
		Ollama: llm.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.LLMTimeout,
			Logger:  logger,
		},
		Gemini: llm.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.LLMTimeout,
			Logger:  logger,
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
			Logger:  logger,
		},
	})
	if err != nil {
		log.Fatalf("failed to create llm provider: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	templates := prompt.NewLoader(cfg.PromptDir)
	rateLimiter := limiter.New(limiter.Config{
		MaxRequests: cfg.RateMaxRequests,
		MaxTokens:   cfg.RateMaxTokens,
		Window:      cfg.RateWindow,
	}, logger)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, evaluation caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not set, evaluation events disabled")
	}

	evaluationService := service.NewEvaluationService(provider, rateLimiter, templates, redisClient, natsConn, validate, logger, service.EvaluationConfig{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		CacheTTL:    cfg.EvalCacheTTL,
	})
	mentorService := service.NewMentorChatService(provider, rateLimiter, templates, validate, logger)

	evaluationHandler := handler.NewEvaluationHandler(evaluationService, logger)
	mentorHandler := handler.NewMentorHandler(mentorService, logger)

	var submissionHandler *handler.SubmissionHandler
	if cfg.DatabaseURL != "" {
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.Submission{}, &models.Answer{}); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}

		submissionRepo := repository.NewSubmissionRepository(db)
		submissionService := service.NewSubmissionService(submissionRepo, evaluationService, logger)
		submissionHandler = handler.NewSubmissionHandler(submissionService, logger)
	} else {
		logger.Warn().Msg("database url not set, submission endpoints disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/metrics", observability.MetricsHandler())
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: evaluationHandler,
		MentorHandler:     mentorHandler,
		SubmissionHandler: submissionHandler,
		Provider:          provider,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
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
