package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-fees-api/api/swagger"
	"github.com/noah-isme/school-fees-api/internal/handler"
	"github.com/noah-isme/school-fees-api/internal/middleware"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	"github.com/noah-isme/school-fees-api/internal/service"
	"github.com/noah-isme/school-fees-api/pkg/cache"
	"github.com/noah-isme/school-fees-api/pkg/config"
	"github.com/noah-isme/school-fees-api/pkg/database"
	"github.com/noah-isme/school-fees-api/pkg/logger"
	"github.com/noah-isme/school-fees-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/school-fees-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-fees-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-fees-api/pkg/receipt"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

// @title School Fees API
// @version 1.0.0
// @description Fee ledger, payment reconciliation and promotion service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, fee summaries will not be cached", zap.Error(err))
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	feeRepo := repository.NewFeeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret)
	renderer := receipt.NewRenderer()
	sender := mailer.NewSMTPSender(cfg.SMTP)

	receiptStore, err := storage.NewReceiptStore(cfg.Fees.ReceiptDir)
	if err != nil {
		logr.Fatal("failed to prepare receipt archive", zap.Error(err))
	}
	var receiptSigner *storage.DownloadSigner
	if cfg.Fees.ReceiptLinkSecret != "" {
		receiptSigner = storage.NewDownloadSigner(cfg.Fees.ReceiptLinkSecret, cfg.Fees.ReceiptLinkTTL)
	}

	receiptSvc := service.NewReceiptService(renderer, sender, receiptStore, receiptSigner, logr, service.ReceiptServiceConfig{
		Workers:       cfg.Fees.ReceiptWorkers,
		MaxRetries:    cfg.Fees.ReceiptRetries,
		SchoolName:    cfg.Fees.SchoolName,
		PublicBaseURL: cfg.Fees.PublicBaseURL,
	})
	receiptSvc.Start(ctx)
	defer receiptSvc.Stop()

	schedules := service.DefaultFeeScheduleTable()

	feeSvc := service.NewFeeService(feeRepo, studentRepo, cacheRepo, receiptSvc, renderer, metricsSvc, schedules, validate, logr, service.FeeServiceConfig{
		GatewaySecret:   cfg.Gateway.KeySecret,
		SummaryCacheTTL: cfg.Fees.SummaryCacheTTL,
		MaxApplyRetries: cfg.Fees.MaxApplyRetries,
		SchoolName:      cfg.Fees.SchoolName,
	})
	studentSvc := service.NewStudentService(studentRepo, feeSvc, feeRepo, validate, logr)
	promotionSvc := service.NewPromotionService(promotionRepo, studentRepo, feeRepo, cacheRepo, schedules, validate, logr, cfg.Fees.MaxApplyRetries)
	reportSvc := service.NewReportService(feeRepo)

	if cfg.Reminders.Enabled {
		reminderSvc := service.NewReminderService(feeRepo, sender, logr, service.ReminderServiceConfig{
			Schedule:   cfg.Reminders.Schedule,
			DueDate:    cfg.Reminders.DueDate,
			SchoolName: cfg.Fees.SchoolName,
		})
		if err := reminderSvc.Start(); err != nil {
			logr.Fatal("failed to start fee reminder scheduler", zap.Error(err))
		}
		defer reminderSvc.Stop()
	}

	feeHandler := handler.NewFeeHandler(feeSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	promotionHandler := handler.NewPromotionHandler(promotionSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if receiptSigner != nil {
		receiptHandler := handler.NewReceiptHandler(receiptStore, receiptSigner)
		r.GET("/receipts/download", receiptHandler.Download)
	}

	admin := string(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		students := api.Group("/students")
		students.GET("", middleware.RBAC(admin), studentHandler.List)
		students.POST("", middleware.RBAC(admin), studentHandler.Create)
		students.GET("/:id", middleware.RBAC(admin, "SELF"), studentHandler.Get)
		students.PUT("/:id", middleware.RBAC(admin), studentHandler.Update)
		students.DELETE("/:id", middleware.RBAC(admin), studentHandler.Delete)

		students.GET("/:id/fees", middleware.RBAC(admin, "SELF"), feeHandler.Summary)
		students.POST("/:id/fees/payments", middleware.RBAC(admin), feeHandler.RecordPayment)
		students.POST("/:id/fees/pay", middleware.RBAC(admin, "SELF"), feeHandler.Pay)
		students.POST("/:id/fees/verify", middleware.RBAC(admin, "SELF"), feeHandler.Verify)
		students.GET("/:id/fees/payments/:paymentId/receipt", middleware.RBAC(admin, "SELF"), feeHandler.Receipt)

		students.POST("/:id/promote", middleware.RBAC(admin), promotionHandler.Promote)
		students.GET("/:id/promotions", middleware.RBAC(admin, "SELF"), promotionHandler.History)

		api.POST("/promotions", middleware.RBAC(admin), promotionHandler.PromoteBatch)
		api.GET("/reports/outstanding-fees", middleware.RBAC(admin), reportHandler.OutstandingFees)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}
