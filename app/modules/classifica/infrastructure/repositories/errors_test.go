package classificadb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapConflict(t *testing.T) {
	assert.NoError(t, mapConflict(nil))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapConflict(plain))
	assert.False(t, IsConflict(plain))

	wrapped := fmt.Errorf("failed to lock tournament: %w", ErrCommitConflict)
	assert.True(t, IsConflict(wrapped))
	assert.True(t, IsConflict(fmt.Errorf("tx: %w", wrapped)))

	assert.False(t, IsConflict(ErrNotFound))
}
