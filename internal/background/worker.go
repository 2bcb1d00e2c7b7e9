// Package background runs a single unit of work off the owning thread,
// streams its log and progress events back in order, and delivers exactly
// one terminal outcome per invocation.
//
// The owning side constructs a Worker (usually through Runner.Run), wires
// handlers or an Observer, and calls Start. The task body receives a
// Context and reports through it. All events arrive on the owning
// Dispatcher in emission order, with the Completed or Failed event last.
package background

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Task is the unit of work a Worker executes. It runs on a dedicated
// goroutine, reports through ctx, and finishes by returning a result or an
// error. The package never inspects the result; it is handed to Completed
// handlers as-is. A nil error means success even when the result is nil.
type Task func(ctx *Context) (any, error)

// State identifies where a Worker is in its lifecycle.
type State int32

const (
	Idle       State = iota // constructed, not yet started
	Running                 // task body executing on the worker goroutine
	Completed               // task returned normally, terminal event emitted
	Failed                  // task returned an error or panicked, terminal event emitted
	Terminated              // goroutine released, no further events possible
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Worker executes one Task on its own goroutine and forwards every event to
// the owning dispatcher. A Worker is single-use: construct it, register
// handlers, Start it, and let it go after the terminal event.
type Worker struct {
	owner Dispatcher
	task  Task

	mu       sync.Mutex
	handlers map[EventKind][]Handler
	started  bool

	state atomic.Int32
	done  chan struct{}
}

// NewWorker creates an Idle worker that will execute task and deliver its
// events through owner. Both arguments are required.
func NewWorker(owner Dispatcher, task Task) *Worker {
	if owner == nil {
		panic(&MisuseError{Op: "background.NewWorker", Reason: "nil owner dispatcher"})
	}
	if task == nil {
		panic(&MisuseError{Op: "background.NewWorker", Reason: "nil task"})
	}
	return &Worker{
		owner:    owner,
		task:     task,
		handlers: make(map[EventKind][]Handler),
		done:     make(chan struct{}),
	}
}

// Handle registers h for events of the given kind. Handlers for one kind
// run in registration order. All registration must happen before Start;
// afterwards the handler set is frozen and Handle panics with
// *MisuseError.
func (w *Worker) Handle(kind EventKind, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		panic(&MisuseError{Op: "Worker.Handle", Reason: "handler registered after Start"})
	}
	w.handlers[kind] = append(w.handlers[kind], h)
}

// OnLog registers a handler for log messages.
func (w *Worker) OnLog(fn func(text string)) {
	w.Handle(EventLog, func(e Event) { fn(e.Text) })
}

// OnProgress registers a handler for progress updates. Registering at least
// one gives the invocation a progress sink; without one the task's Progress
// calls are no-ops.
func (w *Worker) OnProgress(fn func(fraction float64)) {
	w.Handle(EventProgress, func(e Event) { fn(e.Fraction) })
}

// OnCompleted registers a handler for the Completed terminal event.
func (w *Worker) OnCompleted(fn func(result any)) {
	w.Handle(EventCompleted, func(e Event) { fn(e.Result) })
}

// OnFailed registers a handler for the Failed terminal event.
func (w *Worker) OnFailed(fn func(err error)) {
	w.Handle(EventFailed, func(e Event) { fn(e.Err) })
}

// Subscribe wires all three consumption points of o to this worker.
func (w *Worker) Subscribe(o Observer) {
	w.Handle(EventLog, func(e Event) { o.OnLog(e.Text) })
	w.Handle(EventProgress, func(e Event) { o.OnProgress(e.Fraction) })
	w.Handle(EventCompleted, func(e Event) { o.OnTerminal(e.Result, nil) })
	w.Handle(EventFailed, func(e Event) { o.OnTerminal(nil, e.Err) })
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start freezes the handler set, moves the worker to Running, and spawns
// the execution goroutine. It returns immediately. Starting a worker twice
// is a programming error: the second call panics with *MisuseError and no
// second goroutine is spawned.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		panic(&MisuseError{Op: "Worker.Start", Reason: "worker already started"})
	}
	w.started = true
	hasProgress := len(w.handlers[EventProgress]) > 0
	w.mu.Unlock()

	w.state.Store(int32(Running))
	go w.run(&Context{worker: w, hasProgress: hasProgress})
}

// Wait blocks until the execution goroutine has exited. The terminal event
// is handed to the owner before that happens, so after Wait returns it is
// at least enqueued. Owners normally just react to the terminal event;
// Wait exists for tests and for callers that sequence work themselves.
func (w *Worker) Wait() {
	<-w.done
}

// run is the execution goroutine. It invokes the task body, emits the one
// terminal event, and tears down. Teardown runs on every path.
func (w *Worker) run(ctx *Context) {
	defer func() {
		w.state.Store(int32(Terminated))
		close(w.done)
	}()

	result, err := invoke(w.task, ctx)
	if err != nil {
		w.state.Store(int32(Failed))
		w.deliver(Event{Kind: EventFailed, Time: time.Now(), Err: err})
		return
	}
	w.state.Store(int32(Completed))
	w.deliver(Event{Kind: EventCompleted, Time: time.Now(), Result: result})
}

// invoke runs the task body with panic recovery, so a panicking task turns
// into an ordinary failure instead of crashing the process.
func invoke(task Task, ctx *Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}

// checkLive panics when the invocation is no longer running. A Context
// used after its invocation terminated indicates a leaked reference, which
// is misuse.
func (w *Worker) checkLive() {
	if State(w.state.Load()) != Running {
		panic(&MisuseError{Op: "Context", Reason: "used after its invocation terminated"})
	}
}

// emit forwards a log or progress event from the task body.
func (w *Worker) emit(e Event) {
	w.checkLive()
	e.Time = time.Now()
	w.deliver(e)
}

// deliver hands one event to the owning dispatcher, which fans it out to
// the handlers registered for its kind. The handler slice is frozen at
// Start, so reading it here without the lock is safe.
func (w *Worker) deliver(e Event) {
	hs := w.handlers[e.Kind]
	if len(hs) == 0 {
		return
	}
	w.owner.Dispatch(func() {
		for _, h := range hs {
			h(e)
		}
	})
}
