// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Tzelon/thunder-mail/internal/config"
	"github.com/Tzelon/thunder-mail/internal/controller"
	"github.com/Tzelon/thunder-mail/internal/db"
	"github.com/Tzelon/thunder-mail/internal/handler"
	"github.com/Tzelon/thunder-mail/internal/middleware"
	"github.com/Tzelon/thunder-mail/internal/provider"
	"github.com/Tzelon/thunder-mail/internal/queue"
	"github.com/Tzelon/thunder-mail/internal/repository"
	"github.com/Tzelon/thunder-mail/internal/secrets"
	"github.com/Tzelon/thunder-mail/internal/service"
)

func main() {
	cfg := config.MustLoad()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	cipher := secrets.NewCipher(cfg.EncryptionKey)

	orgRepo := &repository.OrgRepository{DB: conn, Cipher: cipher}
	subscriberRepo := &repository.SubscriberRepository{DB: conn}
	activityRepo := &repository.ActivityRepository{DB: conn}

	providerFactory := provider.NewSESFactory("")
	if cfg.Env != "production" && cfg.DevSendRate > 0 {
		logger.Info().Int("rate", cfg.DevSendRate).Msg("dev send-rate override active")
	}

	emailService := &service.EmailService{
		Subscribers:    subscriberRepo,
		Activities:     activityRepo,
		Orgs:           orgRepo,
		Providers:      providerFactory,
		Dispatcher:     service.NewDispatcher(),
		PublicHostname: cfg.PublicHostname,
		DevSendRate:    cfg.DevSendRate,
		Env:            cfg.Env,
		Logger:         logger.With().Str("component", "email").Logger(),
	}
	statsService := &service.StatsService{Activities: activityRepo}
	feedbackService := &service.FeedbackService{
		Activities: activityRepo,
		Logger:     logger.With().Str("component", "feedback").Logger(),
	}

	queueFactory := queue.NewSQSFactory()
	if cfg.QueueDriver == "amqp" {
		queueFactory = queue.NewAMQPFactory(cfg.AMQPUrl)
	}
	manager := &queue.Manager{
		Orgs:    orgRepo,
		Queues:  queueFactory,
		Handler: feedbackService,
		Logger:  logger.With().Str("component", "consumer").Logger(),
	}

	emailController := &controller.EmailController{EmailService: emailService, Logger: logger}
	orgController := &controller.OrgController{Orgs: orgRepo, Logger: logger}
	statsController := &controller.StatsController{StatsService: statsService, Logger: logger}
	trackingHandler := &handler.TrackingHandler{
		Activities:  activityRepo,
		Subscribers: subscriberRepo,
		Logger:      logger.With().Str("component", "tracking").Logger(),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CheckAPIKey(orgRepo))
			r.Post("/emails", emailController.SendEmail)
			r.Get("/stats", statsController.GetStats)
		})
		r.Get("/orgs/{domain}", orgController.GetOrg)
		r.Patch("/orgs/{domain}", orgController.UpdateOrg)
	})

	// Tracking routes hit by recipients
	r.Get("/unsubscribe/{trackingId}", trackingHandler.Unsubscribe)
	r.Get("/trackopen/{trackingId}", trackingHandler.TrackOpen)
	r.Get("/clickthrough/{trackingId}", trackingHandler.ClickThrough)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start feedback consumers")
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("thunder-mail server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	manager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}
