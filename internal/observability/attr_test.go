package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationID(ctx))
	assert.Equal(t, ctx, WithCorrelationID(ctx, ""), "empty ids leave the context untouched")

	ctx = WithCorrelationID(ctx, "corr-1")
	assert.Equal(t, "corr-1", CorrelationID(ctx))
	assert.Equal(t, "corr-1", CorrelationAttr(ctx).Value.String())

	ctx = WithCorrelationID(ctx, "corr-2")
	assert.Equal(t, "corr-2", CorrelationID(ctx))
}

func TestErrorAttr(t *testing.T) {
	assert.Equal(t, "error", ErrorAttr(nil).Key)
	assert.Empty(t, ErrorAttr(nil).Value.String())
	assert.Equal(t, "boom", ErrorAttr(errors.New("boom")).Value.String())
}
