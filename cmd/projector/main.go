package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/online-library/internal/config"
	"github.com/example/online-library/internal/infrastructure/kafka"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/projection"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("service", "projector").Logger()

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
	projector := projection.NewProjector(readStore)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	defer consumer.Close()

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Str("group", cfg.Kafka.GroupID).
		Msg("projector started")

	if err := consumer.Consume(ctx, projector.HandleMessage); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("consumer exited")
	}
	log.Info().Msg("projector stopped")
}
