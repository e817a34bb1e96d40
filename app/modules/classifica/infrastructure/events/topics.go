// Package classificaevents defines the topics and payloads the importer
// exchanges over the event bus.
package classificaevents

import (
	"time"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
)

const (
	// CommitRequestedV1 asks the importer to fetch, match and commit a
	// classifica.
	CommitRequestedV1 = "classifica.commit.requested.v1"

	// ResultsImportedV1 is published after a commit succeeds.
	ResultsImportedV1 = "classifica.results.imported.v1"

	// CommitFailedV1 is published when a requested commit cannot complete.
	CommitFailedV1 = "classifica.commit.failed.v1"
)

// CommitRequestedPayloadV1 is the payload of CommitRequestedV1.
type CommitRequestedPayloadV1 struct {
	Source       classificadomain.Source `json:"source"`
	TournamentID string                  `json:"tournament_id"`
	Overrides    map[string]string       `json:"overrides,omitempty"`
}

// ResultsImportedPayloadV1 is the payload of ResultsImportedV1.
type ResultsImportedPayloadV1 struct {
	TournamentID string    `json:"tournament_id"`
	Saved        int       `json:"saved"`
	PlayerIDs    []string  `json:"player_ids"`
	Unmatched    []string  `json:"unmatched,omitempty"`
	ImportedAt   time.Time `json:"imported_at"`
}

// CommitFailedPayloadV1 is the payload of CommitFailedV1.
type CommitFailedPayloadV1 struct {
	TournamentID string `json:"tournament_id"`
	Source       string `json:"source"`
	Reason       string `json:"reason"`
}
