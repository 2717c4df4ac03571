package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transaction-svc/cache"
	"transaction-svc/catalog"
	"transaction-svc/config"
	"transaction-svc/database"
	"transaction-svc/handlers"
	"transaction-svc/kafka"
	"transaction-svc/middleware"
	"transaction-svc/report"
	"transaction-svc/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize database
	db, err := database.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	rdb, err := cache.InitRedis(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(cfg.KafkaBroker, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize Kafka consumer
	consumer, err := kafka.InitConsumer(cfg.KafkaBroker, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("transaction-service", cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	productCatalog := catalog.NewPostgresCatalog(db, rdb, logger)
	transactionService := service.NewTransactionService(db, productCatalog, producer, cfg.KafkaTopic, logger)
	reportView := report.NewView(db, rdb, logger)

	// Start Kafka consumer in background to apply payment outcomes
	go func() {
		if err := kafka.StartConsumer(consumer, cfg.KafkaTopic, transactionService, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	// Start daily sales report snapshot
	reportCtx, stopReport := context.WithCancel(context.Background())
	defer stopReport()
	generator := report.NewGenerator(db, cfg.ReportHour, logger)
	go generator.Run(reportCtx)

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("transaction-service"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret, logger)
	transactionHandler := handlers.NewTransactionHandler(transactionService, logger)
	reportHandler := handlers.NewReportHandler(reportView, logger)

	router.POST("/customer/register", authHandler.Register)
	router.POST("/customer/login", authHandler.Login)

	customerRoutes := router.Group("/", middleware.Auth(cfg.JWTSecret), middleware.RequireRole(middleware.RoleCustomer))
	{
		customerRoutes.POST("/transactions", transactionHandler.CreateTransaction)
		customerRoutes.GET("/transactions", transactionHandler.ListTransactions)
		customerRoutes.POST("/transactions/:id/cancel", transactionHandler.CancelTransaction)
	}

	sharedRoutes := router.Group("/", middleware.Auth(cfg.JWTSecret), middleware.RequireRole(middleware.RoleCustomer, middleware.RoleAdmin))
	{
		sharedRoutes.GET("/transactions/:id", transactionHandler.GetTransaction)
	}

	adminRoutes := router.Group("/", middleware.Auth(cfg.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
	{
		adminRoutes.PUT("/transactions/:id/status", transactionHandler.UpdateStatus)
		adminRoutes.PUT("/transactions/:id/lines/status", transactionHandler.UpdateLineStatus)
		adminRoutes.GET("/sales-report", reportHandler.SalesReport)
	}

	restSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := restSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("Transaction Service REST API started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopReport()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := restSrv.Shutdown(ctx); err != nil {
		logger.Fatal("REST server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
