package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/rental-marketplace/config"
	"github.com/Eursukkul/rental-marketplace/internal/consumer"
	"github.com/Eursukkul/rental-marketplace/internal/events"
	"github.com/Eursukkul/rental-marketplace/internal/gateway"
	"github.com/Eursukkul/rental-marketplace/internal/handler"
	"github.com/Eursukkul/rental-marketplace/internal/jobs"
	"github.com/Eursukkul/rental-marketplace/internal/middleware"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/Eursukkul/rental-marketplace/pkg/auth"
	"github.com/Eursukkul/rental-marketplace/pkg/database"
	"github.com/Eursukkul/rental-marketplace/pkg/geocoding"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/Eursukkul/rental-marketplace/pkg/mailer"
	"github.com/Eursukkul/rental-marketplace/pkg/payment"
	"github.com/Eursukkul/rental-marketplace/pkg/presence"
	"github.com/Eursukkul/rental-marketplace/pkg/rabbitmq"
	"github.com/Eursukkul/rental-marketplace/pkg/search"
	"github.com/Eursukkul/rental-marketplace/pkg/storage"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const searchIndexQueue = "rental.search-index"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.AppName, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		logger.Log.Fatalf("failed to connect to database: %v", err)
	}

	// RabbitMQ publisher: property index events and chat fan-out between instances
	var publisher service.Publisher
	if cfg.RabbitURL != "" {
		mqPublisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			logger.Log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
	} else {
		logger.Log.Warn("RABBITMQ_URL not set, search index is updated inline and chat stays on this instance")
	}

	// Presence
	var presenceStore presence.Store = presence.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisStore, err := presence.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		presenceStore = redisStore
	}

	// File storage
	var objectStore storage.ObjectStore = storage.NewMemoryStore()
	if cfg.MongoURI != "" {
		gridfs, err := storage.NewGridFSStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Log.Fatalf("failed to connect to MongoDB: %v", err)
		}
		defer gridfs.Close(context.Background())
		objectStore = gridfs
	} else {
		logger.Log.Warn("MONGO_URI not set, uploads are kept in memory")
	}

	// Search index
	var searchIndex service.SearchIndex
	if cfg.ElasticsearchURL != "" {
		es, err := search.NewElasticClient(cfg.ElasticsearchURL, cfg.ElasticsearchUsername, cfg.ElasticsearchPassword, cfg.ElasticsearchIndex)
		if err != nil {
			logger.Log.Fatalf("failed to create Elasticsearch client: %v", err)
		}
		if err := es.EnsureIndex(ctx); err != nil {
			logger.Log.Fatalf("failed to prepare search index: %v", err)
		}
		searchIndex = es
	}

	// Payments
	var payments payment.Gateway = payment.Disabled{}
	if cfg.StripeSecretKey != "" {
		payments = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Log.Warn("STRIPE_SECRET_KEY not set, payments are disabled")
	}

	// Email
	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.SendgridAPIKey != "" {
		mail = mailer.NewSendgridMailer(cfg.SendgridAPIKey, cfg.MailFrom, cfg.MailFromName, cfg.SendgridSandbox)
	}

	// Geocoding
	geocoder, err := geocoding.New(cfg.Geocoder, cfg.GoogleMapsAPIKey, cfg.NominatimURL)
	if err != nil {
		logger.Log.WithError(err).Warn("Geocoder unavailable, coordinates must be supplied by clients")
		geocoder = geocoding.Disabled{}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.AppName)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	// Services
	hub := gateway.NewHub(publisher, presenceStore)
	notifier := service.NewNotifier(mail, userRepo)

	authSvc := service.NewAuthService(userRepo, tokens)
	userSvc := service.NewUserService(userRepo, presenceStore)
	uploadSvc := service.NewUploadService(uploadRepo, objectStore, cfg.UploadMaxBytes, cfg.PublicBaseURL)
	searchSvc := service.NewSearchService(searchIndex, propertyRepo)
	propertySvc := service.NewPropertyService(propertyRepo, bookingRepo, uploadSvc, geocoder, publisher, searchSvc)
	bookingSvc := service.NewBookingService(bookingRepo, propertyRepo, conversationRepo, payments, notifier)
	paymentSvc := service.NewPaymentService(bookingRepo, payments, notifier)
	messagingSvc := service.NewMessagingService(conversationRepo, messageRepo, userRepo, bookingRepo, propertyRepo, hub)

	// Consumers
	if cfg.RabbitURL != "" {
		indexConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.ConsumerConfig{
			Queue:    searchIndexQueue,
			Bindings: []string{events.PropertyBinding},
		})
		if err != nil {
			logger.Log.Fatalf("failed to create index consumer: %v", err)
		}
		defer indexConsumer.Close()
		msgs, err := indexConsumer.Consume()
		if err != nil {
			logger.Log.Fatalf("failed to start consuming: %v", err)
		}
		consumer.NewIndexConsumer(searchSvc).Start(msgs)

		chatConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.ConsumerConfig{
			Bindings:  []string{events.ChatBinding},
			Exclusive: true,
		})
		if err != nil {
			logger.Log.Fatalf("failed to create chat consumer: %v", err)
		}
		defer chatConsumer.Close()
		chatMsgs, err := chatConsumer.Consume()
		if err != nil {
			logger.Log.Fatalf("failed to start consuming: %v", err)
		}
		hub.ConsumeBackplane(chatMsgs)
	}

	// Jobs
	scheduler, err := jobs.NewScheduler(bookingSvc, cfg.BookingPendingTTL)
	if err != nil {
		logger.Log.Fatalf("failed to schedule jobs: %v", err)
	}
	scheduler.Start()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	e.Use(echoMw.RequestID())
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			}).Info("request")
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": cfg.AppName})
	})

	authn := middleware.NewAuthenticator(tokens, userRepo)
	requireAuth := middleware.RequireAuth(authn)
	api := e.Group("/api/v1")
	handler.NewAuthHandler(authSvc).RegisterRoutes(api)
	handler.NewUserHandler(userSvc).RegisterRoutes(api, requireAuth)
	handler.NewPropertyHandler(propertySvc, cfg.PaymentCurrency).RegisterRoutes(api, requireAuth)
	handler.NewSearchHandler(searchSvc).RegisterRoutes(api, requireAuth)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(api, requireAuth)
	handler.NewPaymentHandler(paymentSvc).RegisterRoutes(api, requireAuth)
	handler.NewConversationHandler(messagingSvc).RegisterRoutes(api, requireAuth)
	handler.NewUploadHandler(uploadSvc).RegisterRoutes(api, requireAuth)
	gateway.NewGateway(hub, authn, messagingSvc, cfg.CORSAllowedOrigins).RegisterRoutes(e)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", echo.HeaderXRequestID},
		ExposedHeaders:   []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           600,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           corsHandler.Handler(e),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("%s starting on :%s", cfg.AppName, cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Graceful shutdown failed")
	}
}
