package eventbus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InProcessRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus, err := New(ctx, config.NATSConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer bus.Close()

	messages, err := bus.Subscriber.Subscribe(ctx, "classifica.test.v1")
	require.NoError(t, err)

	require.NoError(t, bus.Publisher.Publish("classifica.test.v1", message.NewMessage("m-1", []byte(`{"ok":true}`))))

	select {
	case msg := <-messages:
		assert.Equal(t, "m-1", msg.UUID)
		assert.JSONEq(t, `{"ok":true}`, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestBus_CloseIsSafeForSharedPubSub(t *testing.T) {
	bus, err := New(context.Background(), config.NATSConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.NoError(t, bus.Close())
}
