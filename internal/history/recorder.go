package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helena/sidework/internal/logging"
)

// Recorder observes one background invocation and inserts a finished
// Record when the terminal event arrives. It runs on the owning dispatcher
// like any other observer, so it needs no locking; the stream delivers the
// terminal event exactly once.
type Recorder struct {
	store  *Store
	logger *logging.Logger
	rec    Record
}

// NewRecorder starts a record for an invocation about to run. command is
// the human-readable command line being executed.
func NewRecorder(store *Store, description, command string) *Recorder {
	return &Recorder{
		store:  store,
		logger: logging.Component("history"),
		rec: Record{
			ID:          uuid.NewString(),
			Description: description,
			Command:     command,
			StartedAt:   time.Now(),
		},
	}
}

// ID returns the record's identifier, available before the invocation
// finishes.
func (r *Recorder) ID() string {
	return r.rec.ID
}

// OnLog counts log lines.
func (r *Recorder) OnLog(string) {
	r.rec.LogLines++
}

// OnProgress keeps the most recent fraction.
func (r *Recorder) OnProgress(fraction float64) {
	r.rec.LastProgress = fraction
	r.rec.HasProgress = true
}

// OnTerminal finalizes the record and writes it to the store. A failed
// insert is logged, never surfaced into the invocation's outcome.
func (r *Recorder) OnTerminal(result any, err error) {
	r.rec.FinishedAt = time.Now()
	r.rec.Duration = r.rec.FinishedAt.Sub(r.rec.StartedAt)

	if err != nil {
		r.rec.Status = StatusFailed
		r.rec.Error = err.Error()
	} else {
		r.rec.Status = StatusCompleted
		if result != nil {
			r.rec.Result = fmt.Sprint(result)
		}
	}

	if err := r.store.Insert(&r.rec); err != nil {
		r.logger.Err(err).Str("id", r.rec.ID).Msg("recording invocation")
	}
}
