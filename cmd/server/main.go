package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hokkaidev/task-curation-api/internal/ai"
	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/config"
	"github.com/hokkaidev/task-curation-api/internal/curation"
	"github.com/hokkaidev/task-curation-api/internal/database"
	"github.com/hokkaidev/task-curation-api/internal/handlers"
	"github.com/hokkaidev/task-curation-api/internal/ordering"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"github.com/hokkaidev/task-curation-api/internal/scheduler"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	logger, err := zap.NewProduction()
	if cfg.GinMode != "release" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		logger.Fatal("Failed to add indexes", zap.Error(err))
	}

	db := database.GetDB()
	clk := clock.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	curationRepo := repository.NewCurationRepository(db)

	// AI capability is optional; without it every project takes the
	// deterministic fallback path.
	var chat ai.ChatClient
	if cfg.AI.Enabled() {
		chat = ai.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.Timeout)
	}

	// Curation pipeline
	resolver := curation.NewVisibilityResolver(projectRepo, curationRepo, clk, logger)
	history := curation.NewHistoryAnalyzer(taskRepo, curationRepo, clk, logger)
	engine := curation.NewEngine(chat, cfg.AI, curationRepo, clk, logger)
	store := curation.NewAssignmentStore(curationRepo, clk, logger)
	weights := curation.NewWeightCalculator(curationRepo, clk, logger)
	job := curation.NewUserCurationJob(resolver, history, engine, store, weights, curationRepo, logger)

	// Ordering engine
	orderingEngine := ordering.NewEngine(db, clk, logger)

	// Daily scheduler
	sched := scheduler.New(userRepo, job, clk, scheduler.Config{
		Hour:    cfg.CurationHour,
		Workers: cfg.CurationWorkers,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go sched.Run(ctx)

	// Handlers
	taskHandler := handlers.NewTaskHandler(orderingEngine)
	curationHandler := handlers.NewCurationHandler(userRepo, curationRepo, job, clk)

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task Curation API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		tasks := api.Group("/tasks")
		{
			tasks.POST("/:id/move", taskHandler.MoveTask)
		}

		curationGroup := api.Group("/curation")
		{
			curationGroup.POST("/run", curationHandler.RunCuration)
		}

		users := api.Group("/users")
		{
			users.GET("/:id/curated", curationHandler.GetCuratedTasks)
			users.GET("/:id/curations", curationHandler.GetCurationHistory)
			users.GET("/:id/metrics", curationHandler.GetWeightMetric)
		}
	}

	// Start server
	logger.Info("Server starting", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
