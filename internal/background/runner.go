package background

import (
	"errors"

	"github.com/helena/sidework/internal/logging"
)

// Runner is the high-level entry point for launching background work. It
// owns the cross-cutting wiring a bare Worker leaves to the caller: every
// invocation's lifecycle and log output are mirrored into the structured
// logger, observers and sinks are attached, and the caller supplies at most
// a result callback and an error callback. Run never blocks the owner.
type Runner struct {
	logger *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger invocations are mirrored into.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{logger: logging.Component("background")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type runConfig struct {
	onResult      func(any)
	onError       func(error)
	observers     []Observer
	logSinks      []func(string)
	progressSinks []func(float64)
}

// RunOption configures a single Run invocation.
type RunOption func(*runConfig)

// OnResult sets the callback receiving the task's result on success. It
// runs on the owning dispatcher, at most once, and never together with the
// OnError callback.
func OnResult(fn func(result any)) RunOption {
	return func(c *runConfig) {
		c.onResult = fn
	}
}

// OnError sets the callback receiving the task's failure. It runs on the
// owning dispatcher, at most once, and never together with the OnResult
// callback.
func OnError(fn func(err error)) RunOption {
	return func(c *runConfig) {
		c.onError = fn
	}
}

// WithObserver subscribes o to the invocation's event stream. May be given
// multiple times; observers see events in subscription order.
func WithObserver(o Observer) RunOption {
	return func(c *runConfig) {
		c.observers = append(c.observers, o)
	}
}

// WithLogSink routes the task's log messages to fn, in addition to the
// structured log mirror.
func WithLogSink(fn func(text string)) RunOption {
	return func(c *runConfig) {
		c.logSinks = append(c.logSinks, fn)
	}
}

// WithProgressSink routes the task's progress updates to fn. An invocation
// run without any progress consumer treats the task's Progress calls as
// no-ops.
func WithProgressSink(fn func(fraction float64)) RunOption {
	return func(c *runConfig) {
		c.progressSinks = append(c.progressSinks, fn)
	}
}

// Run wires up a Worker for task, starts it, and returns the handle
// without waiting. description names the invocation in log output. All
// callbacks, sinks, and observers run on owner in event order, terminal
// callback last.
func (r *Runner) Run(owner Dispatcher, description string, task Task, opts ...RunOption) *Worker {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	w := NewWorker(owner, task)

	// The log mirror is registered first so the structured log always
	// reflects the full stream, whatever the caller's sinks do with it.
	w.OnLog(func(text string) {
		r.logger.InfoCtx(text, map[string]any{"task": description})
	})

	for _, o := range cfg.observers {
		w.Subscribe(o)
	}
	for _, fn := range cfg.logSinks {
		w.OnLog(fn)
	}
	for _, fn := range cfg.progressSinks {
		w.OnProgress(fn)
	}

	w.OnCompleted(func(result any) {
		r.logger.InfoCtx("task completed", map[string]any{"task": description})
		if cfg.onResult != nil {
			cfg.onResult(result)
		}
	})
	w.OnFailed(func(err error) {
		fields := map[string]any{"task": description, "error": err.Error()}
		var pe *PanicError
		if errors.As(err, &pe) {
			fields["stack"] = string(pe.Stack)
		}
		r.logger.ErrorCtx("task failed", fields)
		if cfg.onError != nil {
			cfg.onError(err)
		}
	})

	r.logger.InfoCtx("task started", map[string]any{"task": description})
	w.Start()
	return w
}
