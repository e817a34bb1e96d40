package classificaevents

import (
	"context"
	"testing"
	"time"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishResultsImported(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, ResultsImportedV1)
	require.NoError(t, err)

	payload := ResultsImportedPayloadV1{
		TournamentID: "t-1",
		Saved:        2,
		PlayerIDs:    []string{"p-1", "p-2"},
		Unmatched:    []string{"BIANCHI LUCA"},
		ImportedAt:   time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC),
	}
	ctxWithID := observability.WithCorrelationID(ctx, "corr-1")
	require.NoError(t, NewPublisher(pubSub).PublishResultsImported(ctxWithID, payload))

	select {
	case msg := <-messages:
		assert.Equal(t, "corr-1", middleware.MessageCorrelationID(msg))
		got, err := Decode[ResultsImportedPayloadV1](msg)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestNewMessage_GeneratesCorrelationID(t *testing.T) {
	msg, err := NewMessage(context.Background(), CommitRequestedPayloadV1{
		Source:       classificadomain.Source{URL: "https://example.org"},
		TournamentID: "t-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.UUID)
	assert.NotEmpty(t, middleware.MessageCorrelationID(msg))
}

func TestDecode_InvalidPayload(t *testing.T) {
	msg, err := NewMessage(context.Background(), "not an object")
	require.NoError(t, err)
	_, err = Decode[CommitRequestedPayloadV1](msg)
	require.Error(t, err)
}
