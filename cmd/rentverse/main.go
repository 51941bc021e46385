package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"rentverse/internal/app/dto"
	authsvc "rentverse/internal/app/services/auth"
	bookingsvc "rentverse/internal/app/services/booking"
	paymentsvc "rentverse/internal/app/services/payment"
	propertysvc "rentverse/internal/app/services/property"
	"rentverse/internal/infra/broker/kafka"
	"rentverse/internal/infra/cache"
	"rentverse/internal/infra/config"
	"rentverse/internal/infra/contracts"
	gormdb "rentverse/internal/infra/db/gorm"
	"rentverse/internal/infra/gateway"
	ginserver "rentverse/internal/infra/http/gin"
	"rentverse/internal/infra/obs"
	outboxworker "rentverse/internal/infra/outbox"
	"rentverse/internal/infra/security"
	"rentverse/internal/infra/storage/s3"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := obs.NewLogger(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	db, err := gormdb.Open(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("database handle unavailable", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	app := buildApplication(cfg, db, logger)
	defer app.close(logger)

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: sqlDB.Ping,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *outboxworker.Worker
	producer *kafka.Producer
}

func buildApplication(cfg config.Config, db *gorm.DB, logger *slog.Logger) application {
	uowFactory := gormdb.Factory{DB: db}

	var uploader s3.Uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Warn("object storage unavailable, uploads disabled", "error", err)
		} else {
			uploader = client
		}
	}

	issuer := &contracts.Issuer{Uploader: uploader, Logger: logger}

	var paymentsGateway *gateway.Client
	if cfg.GatewayBaseURL != "" {
		paymentsGateway = &gateway.Client{
			HTTP:    &http.Client{Timeout: 15 * time.Second},
			BaseURL: cfg.GatewayBaseURL,
			APIKey:  cfg.GatewayAPIKey,
			Logger:  logger,
		}
	} else {
		logger.Warn("payment gateway not configured, online payments disabled")
	}

	authService := &authsvc.Service{
		Users:      gormdb.NewUserRepository(db),
		Sessions:   gormdb.NewSessionStore(db),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	propertyService := &propertysvc.Service{
		UoWFactory: uowFactory,
		Uploader:   uploader,
		Cache:      cache.New[dto.PropertyCollection](cfg.CacheTTL),
		Logger:     logger,
	}
	bookingService := &bookingsvc.Service{
		UoWFactory:  uowFactory,
		Contracts:   issuer,
		Idempotency: gormdb.NewIdempotencyStore(db, cfg.IdempotencyTTL),
		Logger:      logger,
	}
	paymentService := &paymentsvc.Service{
		UoWFactory: uowFactory,
		Logger:     logger,
		SuccessURL: cfg.PaymentSuccessURL,
		FailureURL: cfg.PaymentFailureURL,
	}
	if paymentsGateway != nil {
		paymentService.Gateway = paymentsGateway
	}

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Warn("kafka unavailable, events stay queued in the outbox", "error", err)
		} else {
			producer = p
		}
	}

	worker := &outboxworker.Worker{
		Store:       gormdb.NewOutboxStore(db),
		UoWFactory:  uowFactory,
		Contracts:   issuer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	if producer != nil {
		worker.Producer = producer
	}
	if host, err := os.Hostname(); err == nil {
		worker.ID = host
	}

	return application{
		handlers: ginserver.Handlers{
			Auth:             ginserver.AuthHandler{Service: authService, Logger: logger},
			Property:         ginserver.PropertyHandler{Service: propertyService},
			LandlordProperty: ginserver.LandlordPropertyHandler{Service: propertyService},
			Booking:          ginserver.BookingHandler{Service: bookingService},
			Payment:          ginserver.PaymentHandler{Service: paymentService},
			Webhook:          ginserver.WebhookHandler{Service: paymentService, Token: cfg.WebhookToken, Logger: logger},
			AuthMiddleware:   ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
		},
		worker:   worker,
		producer: producer,
	}
}

func (a application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
}
