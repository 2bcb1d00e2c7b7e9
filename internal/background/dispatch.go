package background

import "sync"

// Dispatcher marshals functions onto the owning thread. Implementations
// must run dispatched functions one at a time, in submission order; every
// delivery guarantee in this package reduces to that property. Dispatch
// must not block the caller.
//
// Loop is the stock implementation for plain programs. Anything with a
// serial queue works equally well, e.g. a bubbletea program forwarding into
// its update loop.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Loop is a serial event loop: an unbounded FIFO queue drained by a single
// goroutine. It gives event consumers the single-threaded world they
// expect, with no locking required inside handlers.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// NewLoop starts a loop. The caller must Close it to release the
// goroutine.
func NewLoop() *Loop {
	l := &Loop{done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Dispatch enqueues fn without blocking. After Close the function is
// dropped silently; a consumer that tore down its loop has declared it no
// longer wants deliveries.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.cond.Signal()
}

// Close stops intake, runs everything already queued, and returns once the
// loop goroutine has exited. Closing twice is safe. Close must not be
// called from inside a dispatched function.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.cond.Signal()
	}
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}
