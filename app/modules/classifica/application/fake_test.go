package classificaservice

import (
	"context"
	"time"

	classificaevents "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/events"
	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Classifica Repo
// ------------------------

type FakeClassificaRepo struct {
	trace []string

	ListPlayersFunc               func(ctx context.Context, db bun.IDB) ([]classificadb.Player, error)
	CreateTournamentFunc          func(ctx context.Context, db bun.IDB, tournament *classificadb.Tournament) error
	GetTournamentFunc             func(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) (*classificadb.Tournament, error)
	LockTournamentFunc            func(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, lockTimeout time.Duration) (*classificadb.Tournament, error)
	MarkImportedFunc              func(ctx context.Context, db bun.IDB, tournament *classificadb.Tournament) error
	DeleteResultsFunc             func(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]uuid.UUID, error)
	InsertResultsFunc             func(ctx context.Context, db bun.IDB, results []classificadb.TournamentResult) error
	RecomputePlayerAggregatesFunc func(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) error
	GetResultsFunc                func(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]classificadb.TournamentResult, error)
}

func NewFakeClassificaRepo() *FakeClassificaRepo {
	return &FakeClassificaRepo{
		trace: []string{},
	}
}

func (f *FakeClassificaRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeClassificaRepo) ListPlayers(ctx context.Context, db bun.IDB) ([]classificadb.Player, error) {
	f.record("ListPlayers")
	if f.ListPlayersFunc != nil {
		return f.ListPlayersFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeClassificaRepo) CreateTournament(ctx context.Context, db bun.IDB, tournament *classificadb.Tournament) error {
	f.record("CreateTournament")
	if f.CreateTournamentFunc != nil {
		return f.CreateTournamentFunc(ctx, db, tournament)
	}
	return nil
}

func (f *FakeClassificaRepo) GetTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) (*classificadb.Tournament, error) {
	f.record("GetTournament")
	if f.GetTournamentFunc != nil {
		return f.GetTournamentFunc(ctx, db, tournamentID)
	}
	return nil, classificadb.ErrNotFound
}

func (f *FakeClassificaRepo) LockTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, lockTimeout time.Duration) (*classificadb.Tournament, error) {
	f.record("LockTournament")
	if f.LockTournamentFunc != nil {
		return f.LockTournamentFunc(ctx, db, tournamentID, lockTimeout)
	}
	return &classificadb.Tournament{ID: tournamentID}, nil
}

func (f *FakeClassificaRepo) MarkImported(ctx context.Context, db bun.IDB, tournament *classificadb.Tournament) error {
	f.record("MarkImported")
	if f.MarkImportedFunc != nil {
		return f.MarkImportedFunc(ctx, db, tournament)
	}
	return nil
}

func (f *FakeClassificaRepo) DeleteResults(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]uuid.UUID, error) {
	f.record("DeleteResults")
	if f.DeleteResultsFunc != nil {
		return f.DeleteResultsFunc(ctx, db, tournamentID)
	}
	return nil, nil
}

func (f *FakeClassificaRepo) InsertResults(ctx context.Context, db bun.IDB, results []classificadb.TournamentResult) error {
	f.record("InsertResults")
	if f.InsertResultsFunc != nil {
		return f.InsertResultsFunc(ctx, db, results)
	}
	return nil
}

func (f *FakeClassificaRepo) RecomputePlayerAggregates(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) error {
	f.record("RecomputePlayerAggregates")
	if f.RecomputePlayerAggregatesFunc != nil {
		return f.RecomputePlayerAggregatesFunc(ctx, db, playerIDs)
	}
	return nil
}

func (f *FakeClassificaRepo) GetResults(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]classificadb.TournamentResult, error) {
	f.record("GetResults")
	if f.GetResultsFunc != nil {
		return f.GetResultsFunc(ctx, db, tournamentID)
	}
	return nil, nil
}

// --- Accessors for assertions ---

func (f *FakeClassificaRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ classificadb.Repository = (*FakeClassificaRepo)(nil)

// ------------------------
// Fake Fetcher
// ------------------------

type FakeFetcher struct {
	FetchFunc func(ctx context.Context, rawURL string) (*FetchedPage, error)
	calls     []string
}

func (f *FakeFetcher) Fetch(ctx context.Context, rawURL string) (*FetchedPage, error) {
	f.calls = append(f.calls, rawURL)
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, rawURL)
	}
	return &FetchedPage{ContentType: "text/html"}, nil
}

var _ Fetcher = (*FakeFetcher)(nil)

// ------------------------
// Fake Event Publisher
// ------------------------

type FakePublisher struct {
	PublishFunc func(ctx context.Context, payload classificaevents.ResultsImportedPayloadV1) error
	published   []classificaevents.ResultsImportedPayloadV1
}

func (f *FakePublisher) PublishResultsImported(ctx context.Context, payload classificaevents.ResultsImportedPayloadV1) error {
	f.published = append(f.published, payload)
	if f.PublishFunc != nil {
		return f.PublishFunc(ctx, payload)
	}
	return nil
}

var _ EventPublisher = (*FakePublisher)(nil)
