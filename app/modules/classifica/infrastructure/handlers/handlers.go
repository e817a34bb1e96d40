package classificahandlers

import (
	"context"
	"log/slog"
	"net/http"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificaqueue "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/queue"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// defaultMaxUploadBytes caps request bodies when no limit is configured.
const defaultMaxUploadBytes = 10 << 20

// Handlers exposes the classifica operations over HTTP and the event bus.
type Handlers interface {
	HandlePreview(w http.ResponseWriter, r *http.Request)
	HandleCommit(w http.ResponseWriter, r *http.Request)
	HandleEnqueueCommit(w http.ResponseWriter, r *http.Request)
	HandleGetJob(w http.ResponseWriter, r *http.Request)
	HandleCreateTournament(w http.ResponseWriter, r *http.Request)
	HandleGetResults(w http.ResponseWriter, r *http.Request)
	HandleHealth(w http.ResponseWriter, r *http.Request)

	HandleCommitRequested(msg *message.Message) ([]*message.Message, error)
}

// JobQueue schedules background commits.
type JobQueue interface {
	EnqueueCommit(ctx context.Context, job classificaqueue.CommitJob) (int64, error)
	GetJob(ctx context.Context, id int64) (*classificaqueue.JobInfo, error)
}

// ClassificaHandlers implements Handlers.
type ClassificaHandlers struct {
	service        classificaservice.Service
	queue          JobQueue
	logger         *slog.Logger
	tracer         trace.Tracer
	maxUploadBytes int64
}

// NewClassificaHandlers creates a new ClassificaHandlers. queue may be nil
// when background commits are disabled.
func NewClassificaHandlers(
	service classificaservice.Service,
	queue JobQueue,
	logger *slog.Logger,
	tracer trace.Tracer,
	maxUploadBytes int64,
) *ClassificaHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("classifica")
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ClassificaHandlers{
		service:        service,
		queue:          queue,
		logger:         logger,
		tracer:         tracer,
		maxUploadBytes: maxUploadBytes,
	}
}

var _ Handlers = (*ClassificaHandlers)(nil)
