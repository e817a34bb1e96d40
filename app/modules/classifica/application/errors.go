package classificaservice

import (
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application/matching"
	"github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application/parsers"
	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
)

var (
	// ErrFetchFailed means the source URL could not be downloaded.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrInvalidSource means the request did not name exactly one usable
	// source.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidRequest means a required field is missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTournamentNotFound means the commit target does not exist.
	ErrTournamentNotFound = errors.New("tournament not found")

	ErrNoTabularDataFound = parsers.ErrNoTabularDataFound
	ErrNoColumnsInferred  = parsers.ErrNoColumnsInferred
	ErrNoNameMatch        = matching.ErrNoNameMatch
	ErrCommitConflict     = classificadb.ErrCommitConflict
)

// ImportError ties a failure to the source that caused it. It matches
// both its Code sentinel and the underlying error with errors.Is.
type ImportError struct {
	Code   error
	Source string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Code, e.Source)
	}
	return fmt.Sprintf("%v: %s: %v", e.Code, e.Source, e.Err)
}

func (e *ImportError) Unwrap() []error {
	return []error{e.Code, e.Err}
}

// IsPermanent reports whether retrying the same request can never succeed.
// Conflicts, fetch failures and storage errors are transient.
func IsPermanent(err error) bool {
	for _, target := range []error{
		ErrInvalidSource,
		ErrInvalidRequest,
		ErrNoTabularDataFound,
		ErrTournamentNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
