// Package scheduler handles time-based job scheduling. Supports standard
// five-field cron expressions and @-descriptors like @daily and @every.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/helena/sidework/internal/logging"
)

// Scheduler manages recurring jobs. Overlapping fires of the same job are
// skipped rather than queued; each fire is expected to launch its own
// independent background invocation.
type Scheduler struct {
	cron     *cron.Cron
	logger   *logging.Logger
	mu       sync.Mutex
	entries  map[string]cron.EntryID
	stopped  chan struct{}
	stopOnce sync.Once
}

// Job describes one scheduled entry.
type Job struct {
	Name string
	Next time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger for scheduler and cron runtime messages.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a stopped scheduler; call Start after adding jobs.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:  logging.Component("scheduler"),
		entries: make(map[string]cron.EntryID),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	bridge := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithChain(cron.SkipIfStillRunning(bridge)),
		cron.WithLogger(bridge),
	)
	return s
}

// Add registers job under name to run on the given cron spec. Names must
// be unique.
func (s *Scheduler) Add(name, spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already scheduled", name)
	}

	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("invalid cron expression for %q: %w", name, err)
	}

	s.entries[name] = id
	s.logger.InfoCtx("scheduled job", map[string]any{"job": name, "cron": spec})
	return nil
}

// Start begins firing jobs. It returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops firing and waits for jobs already running to finish. Safe to
// call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		ctx := s.cron.Stop()
		<-ctx.Done()
		close(s.stopped)
		s.logger.Info("scheduler stopped")
	})
}

// Done is closed once Stop has completed.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}

// Jobs returns the registered jobs sorted by name, with their next fire
// times (zero until Start).
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.entries))
	for name, id := range s.entries {
		jobs = append(jobs, Job{Name: name, Next: s.cron.Entry(id).Next})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// cronLogger adapts the logging wrapper to cron's logger interface. The
// cron runtime's chatter maps to debug level.
type cronLogger struct {
	l *logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.DebugCtx(msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := kvFields(keysAndValues)
	fields["error"] = err.Error()
	c.l.ErrorCtx(msg, fields)
}

func kvFields(kv []any) map[string]any {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	return fields
}
