package app

import (
	"github.com/gin-gonic/gin"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/config"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/middleware"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/monitoring"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		// Question bank: reads for everyone, authoring for graders.
		api.GET("/assessments", c.assessment.ListAssessments)
		api.GET("/assessments/:id", c.assessment.GetAssessment)

		authoring := api.Group("/")
		authoring.Use(middleware.RoleMiddleware(model.Teacher))
		{
			authoring.POST("/assessments", c.assessment.CreateAssessment)
			authoring.POST("/assessments/:id/questions", c.assessment.AddQuestion)
			authoring.PUT("/questions/:questionId", c.assessment.UpdateQuestion)
			authoring.GET("/assessments/:id/attempts", c.attempt.ListAttempts)
			authoring.POST("/attempts/:id/grade", c.attempt.GradeAttempt)
		}

		// Attempt lifecycle.
		api.POST("/assessments/:id/attempts", c.attempt.StartAttempt)
		api.POST("/attempts/:id/submit", c.attempt.SubmitAnswers)
		api.GET("/attempts/:id", c.attempt.GetResult)

		// Performance analysis.
		api.POST("/attempts/:id/analysis", c.analysis.RequestAnalysis)
		api.GET("/attempts/:id/analysis", c.analysis.GetAnalysisByAttempt)
		api.GET("/analysis/:analysisId", c.analysis.GetAnalysis)

		// Adaptive sessions.
		adaptive := api.Group("/adaptive")
		{
			adaptive.POST("/sessions", c.adaptive.StartSession)
			adaptive.GET("/sessions/:id/question", c.adaptive.GetCurrentQuestion)
			adaptive.POST("/sessions/:id/questions/:questionId/answer", c.adaptive.AnswerQuestion)
			adaptive.GET("/sessions/:id/results", c.adaptive.GetResults)
			adaptive.DELETE("/sessions/:id", c.adaptive.AbandonSession)
		}
	}
}
