package background

import "fmt"

// Context is the one-way reporting handle handed to a task body. It is
// created for exactly one Worker invocation, lives only while that
// invocation runs, and must not be retained after the task returns. Using
// it past the terminal event panics with *MisuseError.
//
// All methods are called from the execution goroutine and never block on
// the owner.
type Context struct {
	worker      *Worker
	hasProgress bool
}

// Log emits one log message toward the owning dispatcher. Messages are
// delivered in call order, uncoalesced. Log cannot fail from the task's
// point of view; a message nobody listens for is simply dropped.
func (c *Context) Log(text string) {
	c.worker.emit(Event{Kind: EventLog, Text: text})
}

// Logf formats its arguments and emits the result like Log.
func (c *Context) Logf(format string, args ...any) {
	c.Log(fmt.Sprintf(format, args...))
}

// Progress reports a completion fraction, by convention in [0, 1]. The
// value is forwarded untouched; consumers decide how to render it. When the
// invocation was started without any progress consumer the call emits
// nothing. Like every Context method it still panics on a context held
// past its invocation.
func (c *Context) Progress(fraction float64) {
	if !c.hasProgress {
		c.worker.checkLive()
		return
	}
	c.worker.emit(Event{Kind: EventProgress, Fraction: fraction})
}
