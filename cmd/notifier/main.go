package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/online-library/internal/config"
	"github.com/example/online-library/internal/email"
	"github.com/example/online-library/internal/infrastructure/kafka"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/notification"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("service", "notifier").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()

	readStore := store.NewPostgresReadStore(db)

	mailer := email.NewService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)
	handler := notification.NewHandler(mailer, readStore)

	// A dedicated group so email delivery keeps its own offset, independent
	// of the projector.
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, "library-notifier")
	defer consumer.Close()

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Str("smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port).
		Msg("notifier started")

	if err := consumer.Consume(ctx, handler.HandleMessage); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("consumer exited")
	}
	log.Info().Msg("notifier stopped")
}
