package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fotomart/api/internal/handlers"
	"github.com/fotomart/api/internal/mail"
	"github.com/fotomart/api/internal/payments"
	"github.com/fotomart/api/internal/platform/auth"
	"github.com/fotomart/api/internal/platform/config"
	"github.com/fotomart/api/internal/platform/observability"
	platformstorage "github.com/fotomart/api/internal/platform/storage"
	mongorepo "github.com/fotomart/api/internal/repositories/mongo"
	"github.com/fotomart/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	mongoProvider := mongorepo.NewProvider(cfg.Mongo)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoProvider.Close(closeCtx); err != nil {
			logger.Warn("mongo close error", zap.Error(err))
		}
	}()

	productRepo, err := mongorepo.NewProductRepository(mongoProvider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	orderRepo, err := mongorepo.NewOrderRepository(mongoProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}

	imageStore, err := platformstorage.NewLocalImageStore(platformstorage.LocalImageStoreConfig{
		Dir:           cfg.Storage.UploadDir,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("failed to initialise image store", zap.Error(err))
	}

	stripeLogger := logger.Named("stripe")
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.PSP.StripeSecretKey,
		Logger: func(_ context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			stripeLogger.Debug("stripe log", zFields...)
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe provider", zap.Error(err))
	}

	paymentManager, err := payments.NewManager(map[string]payments.Provider{
		"stripe": stripeProvider,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}

	var mailer mail.Mailer
	if strings.TrimSpace(cfg.Mail.SendGridAPIKey) != "" {
		sendgridMailer, err := mail.NewSendGridMailer(mail.SendGridConfig{
			APIKey:      cfg.Mail.SendGridAPIKey,
			FromAddress: cfg.Mail.FromAddress,
			FromName:    cfg.Mail.FromName,
			Logger:      logger,
		})
		if err != nil {
			logger.Fatal("failed to initialise mailer", zap.Error(err))
		}
		mailer = sendgridMailer
	} else {
		logger.Warn("sendgrid api key not set; order confirmation email disabled")
	}

	sessionManager, err := auth.NewSessionManager(auth.SessionConfig{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		MaxAge:     int(cfg.Session.MaxAge.Seconds()),
		Secure:     cfg.Session.Secure,
		Username:   cfg.Admin.Username,
		Password:   cfg.Admin.Password,
	})
	if err != nil {
		logger.Fatal("failed to initialise admin sessions", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: productRepo,
		Images:   imageStore,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Gateway:  paymentManager,
		Products: productRepo,
		Orders:   orderRepo,
		Mailer:   mailer,
		Images:   imageStore,
		Currency: cfg.PSP.Currency,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	catalogHandlers := handlers.NewCatalogHandlers(catalogService, imageStore, cfg.PSP.StripePublishableKey)
	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)
	adminCatalogHandlers := handlers.NewAdminCatalogHandlers(catalogService)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(checkoutService)
	adminSessionHandlers := handlers.NewAdminSessionHandlers(sessionManager)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("mongodb", func(ctx context.Context) error {
			_, err := mongoProvider.Database(ctx)
			return err
		}),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
		sessionManager.AnnotateAdmin,
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithAdminCatalogRoutes(adminCatalogHandlers.Routes),
		handlers.WithAdminOrderRoutes(adminOrderHandlers.Routes),
		handlers.WithAdminMiddlewares(sessionManager.RequireAdmin),
		handlers.WithAdminSessionRoutes(adminSessionHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("fotomart api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
