// cmd/consumer/main.go
//
// Standalone feedback consumer. Runs the same per-org pollers the server
// embeds, for deployments that want feedback intake isolated from the API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Tzelon/thunder-mail/internal/config"
	"github.com/Tzelon/thunder-mail/internal/db"
	"github.com/Tzelon/thunder-mail/internal/queue"
	"github.com/Tzelon/thunder-mail/internal/repository"
	"github.com/Tzelon/thunder-mail/internal/secrets"
	"github.com/Tzelon/thunder-mail/internal/service"
)

func main() {
	cfg := config.MustLoad()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "consumer").Logger()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	orgRepo := &repository.OrgRepository{DB: conn, Cipher: secrets.NewCipher(cfg.EncryptionKey)}
	activityRepo := &repository.ActivityRepository{DB: conn}

	queueFactory := queue.NewSQSFactory()
	if cfg.QueueDriver == "amqp" {
		queueFactory = queue.NewAMQPFactory(cfg.AMQPUrl)
	}

	manager := &queue.Manager{
		Orgs:   orgRepo,
		Queues: queueFactory,
		Handler: &service.FeedbackService{
			Activities: activityRepo,
			Logger:     logger,
		},
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start feedback consumers")
	}
	logger.Info().Msg("consumer running, waiting for notifications")

	<-ctx.Done()
	manager.Stop()
}
