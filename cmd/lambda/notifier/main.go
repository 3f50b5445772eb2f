package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/online-library/internal/config"
	"github.com/example/online-library/internal/email"
	"github.com/example/online-library/internal/infrastructure/kinesis"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/notification"
)

var handler *notification.Handler

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("service", "lambda-notifier").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}

	mailer := email.NewService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)
	handler = notification.NewHandler(mailer, store.NewPostgresReadStore(db))
}

func handle(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	var failures []events.KinesisBatchItemFailure

	for _, record := range kinesisEvent.Records {
		event, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			log.Error().Err(err).Str("record", record.EventID).Msg("convert kinesis record")
			failures = append(failures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}
		if event == nil {
			continue
		}

		if err := handler.HandleEvent(ctx, *event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("notify for event")
			failures = append(failures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
		}
	}

	return events.KinesisEventResponse{BatchItemFailures: failures}, nil
}

func main() {
	lambda.Start(handle)
}
