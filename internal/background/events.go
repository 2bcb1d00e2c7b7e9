package background

import "time"

// EventKind classifies events crossing the worker boundary.
type EventKind int

const (
	EventLog       EventKind = iota // task emitted a log message
	EventProgress                   // task reported a progress fraction
	EventCompleted                  // task returned normally (terminal)
	EventFailed                     // task failed or panicked (terminal)
)

func (k EventKind) String() string {
	switch k {
	case EventLog:
		return "log"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event carries one log, progress, or terminal notification from the
// execution goroutine to the owning dispatcher. Per invocation, exactly one
// Completed or Failed event is produced, and it is always the last event
// delivered.
type Event struct {
	Kind     EventKind
	Time     time.Time
	Text     string  // EventLog
	Fraction float64 // EventProgress
	Result   any     // EventCompleted
	Err      error   // EventFailed
}

// Terminal reports whether the event ends its invocation.
func (e Event) Terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventFailed
}

// Handler receives events of the kind it was registered for. Handlers run
// on the owning dispatcher, one event at a time, in emission order.
type Handler func(Event)

// Observer bundles the three consumption points of the event stream. Any
// component implementing it (a progress view, a logger, a recorder) may
// subscribe via Worker.Subscribe or the runner's WithObserver option. For a
// Completed invocation OnTerminal receives (result, nil); for a Failed one
// it receives (nil, err). Observers consume the stream; they have no say in
// scheduling.
type Observer interface {
	OnLog(text string)
	OnProgress(fraction float64)
	OnTerminal(result any, err error)
}
