package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/example/online-library/internal/api"
	"github.com/example/online-library/internal/auth"
	"github.com/example/online-library/internal/command"
	"github.com/example/online-library/internal/config"
	"github.com/example/online-library/internal/domain/book"
	"github.com/example/online-library/internal/domain/borrow"
	"github.com/example/online-library/internal/domain/cart"
	"github.com/example/online-library/internal/domain/category"
	"github.com/example/online-library/internal/domain/inventory"
	"github.com/example/online-library/internal/domain/order"
	"github.com/example/online-library/internal/domain/user"
	"github.com/example/online-library/internal/infrastructure/idempotency"
	"github.com/example/online-library/internal/infrastructure/kafka"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/payment"
	"github.com/example/online-library/internal/projection"
	"github.com/example/online-library/internal/query"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("service", "api").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.ValidateAuth(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	var eventStore store.EventStoreInterface
	switch cfg.EventStore.Backend {
	case "dynamo":
		client, err := store.NewDynamoClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("dynamo client")
		}
		eventStore = store.NewDynamoEventStore(client, cfg.EventStore.TableName, cfg.EventStore.SnapshotTableName)
	default:
		eventStore = store.NewPostgresEventStore(db, producer)
	}
	readStore := store.NewPostgresReadStore(db)

	bookSvc := book.NewService(eventStore)
	categorySvc := category.NewService(eventStore)
	cartSvc := cart.NewService(eventStore)
	orderSvc := order.NewService(eventStore)
	inventorySvc := inventory.NewService(eventStore)
	userSvc := user.NewService(eventStore)
	borrowSvc := borrow.NewService(eventStore)
	membershipSvc := borrow.NewMembershipService(eventStore)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	gateway := payment.NewClient(payment.Config{
		StoreID:       cfg.Gateway.StoreID,
		StorePassword: cfg.Gateway.StorePassword,
		SessionURL:    cfg.Gateway.SessionURL,
		ValidationURL: cfg.Gateway.ValidationURL,
	})

	redisClient := idempotency.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
	defer redisClient.Close()
	idem := idempotency.NewStore(redisClient, 24*time.Hour)

	callbacks := command.CallbackURLs{
		Success: cfg.BaseURL + "/api/payment/success",
		Fail:    cfg.BaseURL + "/api/payment/fail",
		Cancel:  cfg.BaseURL + "/api/payment/cancel",
		IPN:     cfg.BaseURL + "/api/payment/ipn",
	}

	cmdHandler := command.NewHandler(
		bookSvc, categorySvc, cartSvc, orderSvc, inventorySvc,
		borrowSvc, membershipSvc,
		readStore, gateway, idem, callbacks,
	)
	queryHandler := query.NewHandler(readStore)
	projector := projection.NewProjector(readStore)

	replayEvents(ctx, eventStore, projector)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	defer consumer.Close()

	handlers := api.NewHandlers(cmdHandler, queryHandler)
	authHandlers := api.NewAuthHandlers(userSvc, jwtService, readStore, queryHandler)
	router := api.NewRouter(handlers, authHandlers, jwtService)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("topic", cfg.Kafka.Topic).Msg("starting projection consumer")
		if err := consumer.Consume(gctx, projector.HandleMessage); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server started")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// replayEvents rebuilds the read models from the event store before the
// server starts accepting requests. New events arriving via Kafka keep the
// models current afterward.
func replayEvents(ctx context.Context, eventStore store.EventStoreInterface, projector *projection.Projector) {
	events := eventStore.GetAllEvents()
	log.Info().Int("count", len(events)).Msg("replaying events")

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("marshal event for replay")
			continue
		}
		if err := projector.HandleMessage(ctx, []byte(event.AggregateID), data); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("replay event")
		}
	}
	log.Info().Msg("event replay completed")
}

func init() {
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
