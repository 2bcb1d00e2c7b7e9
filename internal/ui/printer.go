package ui

import (
	"fmt"
	"io"
	"time"
)

// Printer writes the event stream as plain lines for non-interactive
// runs. Callbacks arrive synchronously from the dispatch goroutine, so
// no mutex is needed.
type Printer struct {
	w       io.Writer
	styles  *Styles
	start   time.Time
	lastPct int
}

// NewPrinter creates a printer and writes the invocation banner.
func NewPrinter(w io.Writer, description string) *Printer {
	p := &Printer{
		w:       w,
		styles:  newStyles(),
		start:   time.Now(),
		lastPct: -1,
	}
	fmt.Fprintf(w, "%s %s\n", p.styles.Accent.Render(">>>"), p.styles.Title.Render(description))
	return p
}

func (p *Printer) OnLog(line string) {
	fmt.Fprintf(p.w, "  %s\n", line)
}

// OnProgress prints one line per whole percent so repeated updates
// within the same percent stay quiet.
func (p *Printer) OnProgress(fraction float64) {
	pct := int(fraction * 100)
	if pct == p.lastPct {
		return
	}
	p.lastPct = pct
	fmt.Fprintf(p.w, "  %s %s\n",
		p.styles.StatusRunning.Render("PROGRESS"),
		p.styles.Muted.Render(fmt.Sprintf("%d%%", pct)))
}

func (p *Printer) OnTerminal(result any, err error) {
	elapsed := p.styles.Muted.Render(fmt.Sprintf("(%s)", time.Since(p.start).Round(time.Millisecond)))
	if err != nil {
		fmt.Fprintf(p.w, "  %s %s\n", p.styles.StatusError.Render(fmt.Sprintf("FAILED: %v", err)), elapsed)
		return
	}
	fmt.Fprintf(p.w, "  %s %s\n", p.styles.StatusOK.Render("COMPLETED"), elapsed)
	if result != nil {
		fmt.Fprintf(p.w, "  %s\n", p.styles.Value.Render(fmt.Sprintf("%v", result)))
	}
}
