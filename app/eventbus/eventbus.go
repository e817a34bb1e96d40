// Package eventbus builds the Watermill publisher and subscriber the
// importer uses: NATS when a URL is configured, an in-process channel
// otherwise.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// QueueGroup spreads each subject over all running importers.
const QueueGroup = "pinfall-import"

// Bus holds the publisher and subscriber pair.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	natsConn   *nc.Conn
	logger     *slog.Logger
}

// New connects the event bus described by cfg.
func New(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (*Bus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	if cfg.URL == "" {
		logger.InfoContext(ctx, "No NATS URL configured, using in-process event bus")
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermillLogger)
		return &Bus{Publisher: pubSub, Subscriber: pubSub, logger: logger}, nil
	}

	natsConn, err := nc.Connect(cfg.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}
	if err := InitializeStreams(ctx, js, logger); err != nil {
		natsConn.Close()
		return nil, err
	}

	marshaler := &nats.NATSMarshaler{}
	natsOptions := []nc.Option{nc.RetryOnFailedConnect(true)}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         cfg.URL,
			Marshaler:   marshaler,
			NatsOptions: natsOptions,
			JetStream:   nats.JetStreamConfig{Disabled: true},
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              cfg.URL,
			QueueGroupPrefix: QueueGroup,
			Unmarshaler:      marshaler,
			NatsOptions:      natsOptions,
			JetStream:        nats.JetStreamConfig{Disabled: true},
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		publisher.Close()
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	return &Bus{
		Publisher:  publisher,
		Subscriber: subscriber,
		natsConn:   natsConn,
		logger:     logger,
	}, nil
}

// Close closes the publisher, the subscriber and the NATS connection.
func (b *Bus) Close() error {
	var errs []error
	if b.Publisher != nil {
		if err := b.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	// The in-process bus uses one value for both sides.
	if b.Subscriber != nil && any(b.Subscriber) != any(b.Publisher) {
		if err := b.Subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if b.natsConn != nil {
		b.natsConn.Close()
	}
	return errors.Join(errs...)
}
