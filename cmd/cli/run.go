package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/config"
	"github.com/Adriano-Lengruber/flowtasks/internal/handlers"
	"github.com/Adriano-Lengruber/flowtasks/internal/middleware"
	"github.com/Adriano-Lengruber/flowtasks/internal/models"
	"github.com/Adriano-Lengruber/flowtasks/internal/observability"
	"github.com/Adriano-Lengruber/flowtasks/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the flowtasks server",
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	if shutdown, err := observability.SetupTracing(context.Background(), cfg); err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	} else {
		appLogger.Warnf("init tracing: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Project{}, &models.Section{},
		&models.Task{}, &models.TaskComment{}, &models.Notification{},
		&models.AutomationRule{}, &models.AutomationLog{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	wsHub := services.NewWebSocketHub()
	go wsHub.Run()

	notificationService := services.NewNotificationService(db, appLogger)
	notificationService.SetHub(wsHub)

	var engineOpts []services.EngineOption
	if cfg.Automation.ActionTimeout > 0 {
		engineOpts = append(engineOpts, services.WithActionTimeout(cfg.Automation.ActionTimeout))
	}
	engine := services.NewAutomationEngine(
		services.NewGormRuleStore(db),
		services.NewJSONConditionEvaluator(appLogger),
		services.NewActionRegistry(db, notificationService, appLogger),
		services.NewAutomationLogStore(db, appLogger),
		appLogger,
		engineOpts...,
	)

	automationService := services.NewAutomationService(db, appLogger)
	taskService := services.NewTaskService(db, appLogger)
	taskService.SetAutomationEngine(engine)
	projectService := services.NewProjectService(db, appLogger)
	projectService.SetAutomationEngine(engine)
	commentService := services.NewCommentService(db, appLogger, notificationService)

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimitMiddleware(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	systemHandler := handlers.NewSystemHandler(db, wsHub)
	r.GET("/health", systemHandler.Health)
	if cfg.Monitoring.Enabled {
		r.GET(cfg.Monitoring.MetricsPath, systemHandler.Metrics)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	handlers.RegisterProjectRoutes(api, handlers.NewProjectHandler(projectService))
	handlers.RegisterTaskRoutes(api, handlers.NewTaskHandler(taskService, commentService))
	handlers.RegisterAutomationRoutes(api, handlers.NewAutomationHandler(automationService))
	handlers.RegisterNotificationRoutes(api, handlers.NewNotificationHandler(notificationService))
	api.GET("/ws", systemHandler.WebSocket)

	listenAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: listenAddr, Handler: r}
	go func() {
		appLogger.Infof("Starting server on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}
	appLogger.Info("Server exited")
}
