package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ComplianceRelish/lexassist-backend/internal/clients/redis"
	"github.com/ComplianceRelish/lexassist-backend/internal/db"
	"github.com/ComplianceRelish/lexassist-backend/internal/handlers"
	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/middleware"
	"github.com/ComplianceRelish/lexassist-backend/internal/observability"
	"github.com/ComplianceRelish/lexassist-backend/internal/repos"
	"github.com/ComplianceRelish/lexassist-backend/internal/server"
	"github.com/ComplianceRelish/lexassist-backend/internal/services"
	"github.com/ComplianceRelish/lexassist-backend/internal/sse"
	"github.com/ComplianceRelish/lexassist-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "lexassist-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(shutdownCtx)
	}()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecret := utils.GetEnv("SUPABASE_JWT_SECRET", "", log)
	if jwtSecret == "" {
		log.Error("Missing SUPABASE_JWT_SECRET")
		os.Exit(1)
	}
	pollIntervalSec := utils.GetEnvAsInt("DEEP_DIVE_POLL_INTERVAL_SECONDS", 8, log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	briefRepo := repos.NewBriefRepo(thePG, log)
	deepDiveRunRepo := repos.NewDeepDiveRunRepo(thePG, log)
	caseDiaryRepo := repos.NewCaseDiaryRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Redis: cross-instance SSE fan-out + deep-dive trigger dedup. Without
	// redis, services broadcast straight to the local hub.
	var broadcaster sse.Broadcaster = sseHub
	sseBus, err := redis.NewSSEBus(log)
	if err != nil {
		log.Warn("Redis SSE bus init failed; running single-instance", "error", err)
	} else {
		if err := sseBus.StartForwarder(ctx, func(m sse.SSEMessage) {
			sseHub.Broadcast(m)
		}); err != nil {
			log.Warn("Redis SSE forwarder failed to start", "error", err)
		} else {
			broadcaster = redis.NewBusBroadcaster(log, sseBus)
		}
	}
	triggerLock, err := redis.NewTriggerLock(log, redisAddr)
	if err != nil {
		log.Warn("Redis trigger lock init failed; dedup falls back to DB lookups", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	basicService := services.NewBasicAnalysisService(log)
	aiService := services.NewAIAnalysisService(log, basicService, openaiClient)
	deepDiveService := services.NewDeepDiveService(thePG, log, broadcaster, briefRepo, deepDiveRunRepo, openaiClient, triggerLock)
	deepDiveService.StartWorker(ctx)
	diaryService := services.NewCaseDiaryService(thePG, log, caseDiaryRepo)
	sessionService := services.NewAnalysisSessionService(
		thePG,
		log,
		broadcaster,
		briefRepo,
		basicService,
		aiService,
		deepDiveService,
		diaryService,
		time.Duration(pollIntervalSec)*time.Second,
	)

	speechService, err := services.NewSpeechProviderService(ctx, log)
	if err != nil {
		log.Warn("Could not init SpeechProviderService; transcription uploads disabled", "error", err)
	}
	docService, err := services.NewDocumentExtractService(ctx, log)
	if err != nil {
		log.Warn("Could not init DocumentExtractService; document uploads disabled", "error", err)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	briefHandler := handlers.NewBriefHandler(log, sessionService, speechService, docService)
	analysisHandler := handlers.NewBriefAnalysisHandler(log, sessionService, deepDiveService)
	diaryHandler := handlers.NewCaseDiaryHandler(log, diaryService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecret)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:       authMiddleware,
		BriefHandler:         briefHandler,
		BriefAnalysisHandler: analysisHandler,
		CaseDiaryHandler:     diaryHandler,
		SSEHandler:           sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
