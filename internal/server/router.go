package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ComplianceRelish/lexassist-backend/internal/handlers"
	"github.com/ComplianceRelish/lexassist-backend/internal/middleware"
	"github.com/ComplianceRelish/lexassist-backend/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware       *middleware.AuthMiddleware
	BriefHandler         *handlers.BriefHandler
	BriefAnalysisHandler *handlers.BriefAnalysisHandler
	CaseDiaryHandler     *handlers.CaseDiaryHandler
	SSEHandler           *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("lexassist-backend"))

	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS",
		"http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)

	api := protected.Group("/api")

	// Briefs
	api.POST("/briefs", cfg.BriefHandler.CreateBrief)
	api.PUT("/briefs/:id/text", cfg.BriefHandler.SetText)
	api.POST("/briefs/:id/transcription", cfg.BriefHandler.UploadTranscription)
	api.POST("/briefs/:id/document", cfg.BriefHandler.UploadDocument)

	// Analysis
	api.POST("/briefs/:id/analyze", cfg.BriefAnalysisHandler.Analyze)
	api.GET("/briefs/:id/analysis", cfg.BriefAnalysisHandler.GetAnalysis)
	api.DELETE("/briefs/:id/analysis", cfg.BriefAnalysisHandler.CancelAnalysis)
	api.POST("/briefs/:id/deep-dive", cfg.BriefAnalysisHandler.StartDeepDive)
	api.GET("/briefs/:id/deep-dive", cfg.BriefAnalysisHandler.GetDeepDiveStatus)

	// Case diary
	api.GET("/cases/:id/diary", cfg.CaseDiaryHandler.GetTimeline)

	return router
}
