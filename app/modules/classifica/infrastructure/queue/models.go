package classificaqueue

import (
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/riverqueue/river"
)

// QueueName is the dedicated River queue for import commits.
const QueueName = "classifica"

// CommitJob commits a classifica in the background.
type CommitJob struct {
	Source       classificadomain.Source `json:"source"`
	TournamentID string                  `json:"tournament_id"`
	Overrides    map[string]string       `json:"overrides,omitempty"`
}

// Kind returns the job type identifier for River
func (CommitJob) Kind() string { return "classifica_commit" }

// InsertOpts routes commits to the classifica queue.
func (CommitJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueName}
}

// JobInfo represents the state of a commit job.
type JobInfo struct {
	ID           int64    `json:"id"`
	Kind         string   `json:"kind"`
	TournamentID string   `json:"tournament_id"`
	State        string   `json:"state"`
	CreatedAt    string   `json:"created_at"`
	FinalizedAt  string   `json:"finalized_at,omitempty"`
	Attempt      int      `json:"attempt"`
	MaxAttempts  int      `json:"max_attempts"`
	Errors       []string `json:"errors,omitempty"`
}
