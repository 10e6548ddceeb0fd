package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/arludent/assistant/backend"
	"github.com/arludent/assistant/clinic"
	"github.com/arludent/assistant/followup"
	"github.com/arludent/assistant/orchestrator"
	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx/memoryinfra"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx/memorysrv"
	aiopenai "github.com/arludent/assistant/pkg/ai/providers/openai"
	"github.com/arludent/assistant/pkg/config"
	"github.com/arludent/assistant/pkg/errx"
	"github.com/arludent/assistant/pkg/logx"
	"github.com/arludent/assistant/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Failed to load configuration: %v", err)
	}

	initLogger(cfg)

	logx.Infof("Starting %s", cfg.Server.Name)
	logx.Infof("Environment: %s", cfg.Server.Environment)

	if cfg.OpenAI.APIKey == "" {
		logx.Warn("OPENAI_API_KEY not set, chat requests will fail")
	}

	// Session repository: Postgres, Redis or in-memory.
	sessionRepo, cleanup := initSessionRepository(cfg)
	defer cleanup()

	sessionService := memorysrv.NewSessionService(sessionRepo, cfg.Agent.HistoryLimit)

	// LLM client.
	providerOpts := []aiopenai.ProviderOption{
		aiopenai.WithDefaultModel(cfg.OpenAI.Model),
	}
	if cfg.OpenAI.BaseURL != "" {
		providerOpts = append(providerOpts, aiopenai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	llmClient := llm.NewClient(aiopenai.New(cfg.OpenAI.APIKey, providerOpts...))

	// Clinic profile and system prompt.
	profile, err := clinic.LoadProfile(cfg.Agent.ProfilePath)
	if err != nil {
		logx.Fatalf("Failed to load clinic profile: %v", err)
	}
	promptBuilder := clinic.NewPromptBuilder(profile)
	logx.WithField("clinic", profile.Name).Info("Clinic profile loaded")

	// Backend client and tool registry.
	backendClient := backend.NewClient(cfg.Backend.URL, cfg.Backend.InternalAPIKey,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithRateLimit(cfg.Backend.RequestsPerSecond),
	)
	toolRegistry := tools.NewRegistry(backendClient)
	logx.WithField("tools", len(toolRegistry.Names())).Info("Tool registry initialized")

	orch := orchestrator.New(orchestrator.Config{
		LLMClient:      llmClient,
		SessionService: sessionService,
		ToolRegistry:   toolRegistry,
		PromptBuilder:  promptBuilder,
		BackendClient:  backendClient,
		Model:          cfg.OpenAI.Model,
		Temperature:    cfg.OpenAI.Temperature,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		MaxIterations:  cfg.Agent.MaxIterations,
		Environment:    cfg.Server.Environment,
	})

	analyzer := followup.NewAnalyzer(
		llmClient,
		followup.NewNotifier(cfg.Webhook.URL, cfg.Webhook.InternalAPIKey),
		cfg.OpenAI.Model,
	)

	app := fiber.New(fiber.Config{
		AppName:               cfg.Server.Name,
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(),
		BodyLimit:             1 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	setupMiddleware(app, cfg)
	registerRoutes(app, cfg, orch, analyzer)

	startServer(app, cfg)
}

// initSessionRepository picks the session driver from the configuration.
// The returned cleanup releases driver resources on shutdown.
func initSessionRepository(cfg *config.Config) (memoryx.SessionRepository, func()) {
	if cfg.Database.Enabled {
		db, err := sqlx.Connect("postgres", cfg.DatabaseDSN())
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		logx.Info("Using PostgreSQL session repository")
		return memoryinfra.NewPostgresSessionRepository(db), func() { db.Close() }
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}

		logx.Info("Using Redis session repository")
		return memoryinfra.NewRedisSessionRepository(client, cfg.Agent.SessionTTL), func() { client.Close() }
	}

	logx.WithField("ttl", cfg.Agent.SessionTTL).Info("Using in-memory session repository")
	repo := memoryinfra.NewInMemorySessionRepository(cfg.Agent.SessionTTL)
	return repo, repo.Stop
}

func registerRoutes(app *fiber.App, cfg *config.Config, orch *orchestrator.Orchestrator, analyzer *followup.Analyzer) {
	healthHandler := func(c *fiber.Ctx) error {
		health := orch.Health(c.Context())
		status := fiber.StatusOK
		if !health.Healthy() {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}

	app.Get("/health", healthHandler)

	api := app.Group("/api/v1")
	api.Get("/health", healthHandler)

	api.Get("/info", func(c *fiber.Ctx) error {
		return c.JSON(orch.Info())
	})

	identify := userIdentification(cfg)

	api.Post("/chat", identify, func(c *fiber.Ctx) error {
		var req orchestrator.ChatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			req.UserID = userID
		}

		response, err := orch.HandleChat(c.Context(), req)
		if err != nil {
			return err
		}

		return c.JSON(response)
	})

	api.Post("/chat/stream", identify, func(c *fiber.Ctx) error {
		var req orchestrator.ChatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			req.UserID = userID
		}

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")

		ctx := c.Context()
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			_ = orch.HandleChatStream(ctx, req, func(chunk orchestrator.StreamChunk) {
				data, err := json.Marshal(chunk)
				if err != nil {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				_ = w.Flush()
			})
		})
		return nil
	})

	sessions := api.Group("/sessions")

	// Registered before the :session_id routes so "active" is not
	// captured as a session ID.
	sessions.Get("/active/count", func(c *fiber.Ctx) error {
		count, err := orch.ActiveSessionCount(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"active_sessions": count})
	})

	sessions.Get("/:session_id/history", func(c *fiber.Ctx) error {
		history, err := orch.GetSessionHistory(c.Context(), c.Params("session_id"))
		if err != nil {
			return err
		}
		return c.JSON(history)
	})

	sessions.Delete("/:session_id", func(c *fiber.Ctx) error {
		err := orch.DeleteSession(c.Context(), c.Params("session_id"))
		if err != nil {
			// Deleting an unknown session is a no-op, not a failure.
			if e, ok := err.(*errx.Error); ok && e.Type == errx.TypeNotFound {
				return c.SendStatus(fiber.StatusNoContent)
			}
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Post("/followup/analyze", func(c *fiber.Ctx) error {
		var req followup.AnalyzeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		verdict, err := analyzer.Analyze(c.Context(), req)
		if err != nil {
			return err
		}

		return c.JSON(verdict)
	})
}

// userIdentification resolves the caller's user ID. With a JWT secret
// configured a valid bearer token wins; the X-User-ID header is the
// fallback for trusted internal callers.
func userIdentification(cfg *config.Config) fiber.Handler {
	secret := []byte(cfg.Security.JWTSecret)

	return func(c *fiber.Ctx) error {
		if header := c.Get("X-User-ID"); header != "" {
			c.Locals("user_id", header)
		}

		if len(secret) == 0 {
			return c.Next()
		}

		auth := c.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.Next()
		}

		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			logx.WithError(err).Warn("Rejected invalid bearer token")
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			c.Locals("user_id", sub)
		}

		return c.Next()
	}
}

func initLogger(cfg *config.Config) {
	switch cfg.Server.LogLevel {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "trace":
		logx.SetLevel(logx.LevelTrace)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	logx.WithField("level", cfg.Server.LogLevel).Info("Logger initialized")
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.IsDevelopment(),
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginsList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	if cfg.RateLimit.Enabled {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.Requests,
			Expiration: cfg.RateLimit.Period,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests, slow down",
				})
			},
		}))
	}

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
}

func globalErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logx.WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"request_id": c.Get("X-Request-ID"),
		}).Errorf("Request error: %v", err)

		if e, ok := err.(*errx.Error); ok {
			return c.Status(e.HTTPStatus).JSON(fiber.Map{
				"error":   e.Message,
				"code":    e.Code,
				"details": e.Details,
			})
		}

		if e, ok := err.(*fiber.Error); ok {
			return c.Status(e.Code).JSON(fiber.Map{
				"error": e.Message,
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}
}

func startServer(app *fiber.App, cfg *config.Config) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		logx.Infof("Server listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logx.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("Server exited gracefully")
}
