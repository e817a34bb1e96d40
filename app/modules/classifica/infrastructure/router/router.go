package classificarouter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	classificaevents "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/events"
	classificahandlers "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/handlers"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// ClassificaRouter wires classifica handlers to the event bus.
type ClassificaRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	publisher      message.Publisher
	metricsBuilder *metrics.PrometheusMetricsBuilder
	maxRetries     int
}

// NewClassificaRouter creates a ClassificaRouter. Router metrics are
// registered on prometheusRegistry unless it is nil or APP_ENV=test.
func NewClassificaRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	prometheusRegistry prometheus.Registerer,
) *ClassificaRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}
	return &ClassificaRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		metricsBuilder: metricsBuilder,
		maxRetries:     3,
	}
}

// Configure adds middleware and registers handlers.
func (r *ClassificaRouter) Configure(routerCtx context.Context, handlers classificahandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.logger.Info("Adding Prometheus router metrics middleware")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	} else {
		r.logger.Info("Skipping Prometheus router metrics middleware - either in test environment or metrics not configured")
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: r.maxRetries}.Middleware,
	)

	if err := r.RegisterHandlers(routerCtx, handlers); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	return nil
}

// RegisterHandlers registers event handlers using V1 versioned event constants.
func (r *ClassificaRouter) RegisterHandlers(ctx context.Context, handlers classificahandlers.Handlers) error {
	eventsToHandlers := map[string]message.HandlerFunc{
		classificaevents.CommitRequestedV1: handlers.HandleCommitRequested,
	}

	for topic, handlerFunc := range eventsToHandlers {
		handlerName := fmt.Sprintf("classifica.%s", topic)
		r.Router.AddHandler(
			handlerName,
			topic,
			r.subscriber,
			"",
			nil,
			func(msg *message.Message) ([]*message.Message, error) {
				messages, err := handlerFunc(msg)
				if err != nil {
					r.logger.ErrorContext(ctx, "Error processing message",
						slog.String("message_id", msg.UUID),
						observability.ErrorAttr(err),
					)
					return nil, err
				}
				for _, m := range messages {
					publishTopic := r.getPublishTopic(handlerName, m)
					if publishTopic == "" {
						r.logger.Error("router failed to resolve publish topic - MESSAGE DROPPED",
							slog.String("handler", handlerName),
							slog.String("msg_uuid", m.UUID),
							slog.String("correlation_id", middleware.MessageCorrelationID(m)),
						)
						continue
					}

					r.logger.InfoContext(ctx, "publishing message",
						slog.String("topic", publishTopic),
						slog.String("handler", handlerName),
						slog.String("correlation_id", middleware.MessageCorrelationID(m)),
					)

					if err := r.publisher.Publish(publishTopic, m); err != nil {
						return nil, fmt.Errorf("failed to publish to %s: %w", publishTopic, err)
					}
				}
				return nil, nil
			},
		)
	}
	return nil
}

// Run blocks until the router stops.
func (r *ClassificaRouter) Run(ctx context.Context) error {
	return r.Router.Run(ctx)
}

func (r *ClassificaRouter) Close() error {
	return r.Router.Close()
}

// getPublishTopic resolves the topic for a message returned by a handler.
func (r *ClassificaRouter) getPublishTopic(handlerName string, msg *message.Message) string {
	switch handlerName {
	case "classifica." + classificaevents.CommitRequestedV1:
		return classificaevents.CommitFailedV1
	default:
		r.logger.Warn("unknown handler in topic resolution",
			slog.String("handler", handlerName),
		)
		return msg.Metadata.Get("topic")
	}
}
