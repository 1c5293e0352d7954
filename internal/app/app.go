package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/config"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/controller"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/repository"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/service"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/database"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/logger"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/monitoring"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/security"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/tracing"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	attempt  *repository.AttemptRepository
	question *repository.QuestionRepository
	analysis *repository.AnalysisRepository
	adaptive *repository.AdaptiveRepository
}

type services struct {
	reasoning  *service.AIService
	attempt    *service.AttemptService
	assessment *service.AssessmentService
	analysis   *service.AnalysisService
	adaptive   *service.AdaptiveService
}

type controllers struct {
	attempt    *controller.AttemptController
	assessment *controller.AssessmentController
	analysis   *controller.AnalysisController
	adaptive   *controller.AdaptiveController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		attempt:  repository.NewAttemptRepository(db),
		question: repository.NewQuestionRepository(db, rdb),
		analysis: repository.NewAnalysisRepository(db),
		adaptive: repository.NewAdaptiveRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.reasoning = service.NewAIService(cfg.AI)
	s.attempt = service.NewAttemptService(repos.attempt, repos.question, cfg.Assessment.MaxAttempts)
	s.assessment = service.NewAssessmentService(repos.question)
	s.analysis = service.NewAnalysisService(repos.attempt, repos.question, repos.analysis, s.reasoning, cfg.Analysis.StaleAfter)
	s.adaptive = service.NewAdaptiveService(repos.adaptive, s.reasoning)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		attempt:    controller.NewAttemptController(s.attempt),
		assessment: controller.NewAssessmentController(s.assessment),
		analysis:   controller.NewAnalysisController(s.analysis),
		adaptive:   controller.NewAdaptiveController(s.adaptive),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("adaptive-assessment", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
