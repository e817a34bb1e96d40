package classificahandlers

import (
	"context"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificaqueue "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/queue"
)

// FakeService is a programmable classificaservice.Service.
type FakeService struct {
	trace []string

	PreviewFunc          func(ctx context.Context, req classificaservice.PreviewRequest) (*classificadomain.PreviewResult, error)
	CommitFunc           func(ctx context.Context, req classificaservice.CommitRequest) (*classificadomain.CommitResult, error)
	CreateTournamentFunc func(ctx context.Context, req classificaservice.CreateTournamentRequest) (*classificaservice.TournamentInfo, error)
	GetResultsFunc       func(ctx context.Context, tournamentID string) ([]classificadomain.ResultRecord, error)
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the methods called, in order.
func (f *FakeService) Trace() []string {
	return append([]string(nil), f.trace...)
}

func (f *FakeService) Preview(ctx context.Context, req classificaservice.PreviewRequest) (*classificadomain.PreviewResult, error) {
	f.record("Preview")
	if f.PreviewFunc != nil {
		return f.PreviewFunc(ctx, req)
	}
	return &classificadomain.PreviewResult{}, nil
}

func (f *FakeService) Commit(ctx context.Context, req classificaservice.CommitRequest) (*classificadomain.CommitResult, error) {
	f.record("Commit")
	if f.CommitFunc != nil {
		return f.CommitFunc(ctx, req)
	}
	return &classificadomain.CommitResult{TournamentID: req.TournamentID}, nil
}

func (f *FakeService) CreateTournament(ctx context.Context, req classificaservice.CreateTournamentRequest) (*classificaservice.TournamentInfo, error) {
	f.record("CreateTournament")
	if f.CreateTournamentFunc != nil {
		return f.CreateTournamentFunc(ctx, req)
	}
	return &classificaservice.TournamentInfo{Name: req.Name}, nil
}

func (f *FakeService) GetResults(ctx context.Context, tournamentID string) ([]classificadomain.ResultRecord, error) {
	f.record("GetResults")
	if f.GetResultsFunc != nil {
		return f.GetResultsFunc(ctx, tournamentID)
	}
	return nil, nil
}

var _ classificaservice.Service = (*FakeService)(nil)

// FakeJobQueue is a programmable JobQueue.
type FakeJobQueue struct {
	EnqueueCommitFunc func(ctx context.Context, job classificaqueue.CommitJob) (int64, error)
	GetJobFunc        func(ctx context.Context, id int64) (*classificaqueue.JobInfo, error)

	enqueued []classificaqueue.CommitJob
}

func (f *FakeJobQueue) EnqueueCommit(ctx context.Context, job classificaqueue.CommitJob) (int64, error) {
	f.enqueued = append(f.enqueued, job)
	if f.EnqueueCommitFunc != nil {
		return f.EnqueueCommitFunc(ctx, job)
	}
	return int64(len(f.enqueued)), nil
}

func (f *FakeJobQueue) GetJob(ctx context.Context, id int64) (*classificaqueue.JobInfo, error) {
	if f.GetJobFunc != nil {
		return f.GetJobFunc(ctx, id)
	}
	return nil, classificaqueue.ErrJobNotFound
}

var _ JobQueue = (*FakeJobQueue)(nil)
