package classificaservice

import (
	"context"
	"time"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificaevents "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/events"
)

// Service defines the contract for classifica imports.
type Service interface {
	// Preview parses a source and resolves every athlete without writing.
	Preview(ctx context.Context, req PreviewRequest) (*classificadomain.PreviewResult, error)

	// Commit parses, resolves and replaces a tournament's results.
	Commit(ctx context.Context, req CommitRequest) (*classificadomain.CommitResult, error)

	// CreateTournament registers an import target.
	CreateTournament(ctx context.Context, req CreateTournamentRequest) (*TournamentInfo, error)

	// GetResults returns the committed results of a tournament.
	GetResults(ctx context.Context, tournamentID string) ([]classificadomain.ResultRecord, error)
}

// PreviewRequest names the classifica to preview.
type PreviewRequest struct {
	Source classificadomain.Source `json:"source"`
}

// CommitRequest names the classifica, the target tournament and the
// reviewer's overrides (scraped name to player id, "" forces unmatched).
type CommitRequest struct {
	Source       classificadomain.Source `json:"source"`
	TournamentID string                  `json:"tournament_id"`
	Overrides    map[string]string       `json:"overrides,omitempty"`
}

// CreateTournamentRequest describes a new tournament.
type CreateTournamentRequest struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// TournamentInfo is the public view of a tournament.
type TournamentInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	SourceURL  *string    `json:"source_url,omitempty"`
	ImportedAt *time.Time `json:"imported_at,omitempty"`
}

// EventPublisher announces committed imports.
type EventPublisher interface {
	PublishResultsImported(ctx context.Context, payload classificaevents.ResultsImportedPayloadV1) error
}
