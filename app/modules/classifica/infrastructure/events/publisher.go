package classificaevents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Publisher sends classifica events through a Watermill publisher.
type Publisher struct {
	pub message.Publisher
}

// NewPublisher wraps pub.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// PublishResultsImported announces a successful commit.
func (p *Publisher) PublishResultsImported(ctx context.Context, payload ResultsImportedPayloadV1) error {
	return p.publish(ctx, ResultsImportedV1, payload)
}

// PublishCommitRequested queues a commit for the event consumer.
func (p *Publisher) PublishCommitRequested(ctx context.Context, payload CommitRequestedPayloadV1) error {
	return p.publish(ctx, CommitRequestedV1, payload)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload any) error {
	msg, err := NewMessage(ctx, payload)
	if err != nil {
		return err
	}
	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

// NewMessage marshals payload into a message that carries the correlation
// id found on ctx, or a fresh one.
func NewMessage(ctx context.Context, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), body)

	correlationID := observability.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)
	msg.SetContext(ctx)
	return msg, nil
}

// Decode unmarshals a message payload.
func Decode[T any](msg *message.Message) (T, error) {
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal %T: %w", payload, err)
	}
	return payload, nil
}
