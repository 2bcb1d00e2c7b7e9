package background

import "fmt"

// MisuseError reports a programming error in how the package was used:
// starting a worker twice, registering a handler after Start, or holding a
// Context past its invocation's terminal event. Misuse fails fast via panic
// so the defect surfaces where it was introduced; it is never converted
// into a Failed event.
type MisuseError struct {
	Op     string // the offending operation, e.g. "Worker.Start"
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("background: %s: %s", e.Op, e.Reason)
}

// PanicError wraps a panic recovered from a task body. The panic never
// escapes the execution goroutine; it becomes a Failed terminal event whose
// error is a *PanicError carrying the stack captured at recovery time.
type PanicError struct {
	Value any    // the value passed to panic
	Stack []byte // goroutine stack at the recovery point
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error, so
// errors.Is and errors.As see through the recovery.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
