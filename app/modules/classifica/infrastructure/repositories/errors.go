package classificadb

import (
	"errors"
	"fmt"

	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCommitConflict indicates the tournament rows were locked or
	// modified by a concurrent transaction. The whole commit can be retried.
	ErrCommitConflict = errors.New("commit conflict")
)

// SQLSTATE codes that mean another transaction got in the way.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// mapConflict wraps lock and serialization failures in ErrCommitConflict.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return fmt.Errorf("%w: %s", ErrCommitConflict, pgErr.Field('M'))
		}
	}
	return err
}

// IsConflict reports whether err is a retryable commit conflict, including
// raw driver errors that were not mapped yet.
func IsConflict(err error) bool {
	return errors.Is(mapConflict(err), ErrCommitConflict)
}
