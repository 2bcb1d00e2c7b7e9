package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// logTail is how many log lines the dialog keeps on screen.
const logTail = 6

// Messages fed into the dialog from the invocation's event stream.
type logMsg string

type progressMsg float64

type doneMsg struct {
	result any
	err    error
}

// Loader is the dialog shown while an invocation runs: a spinner next
// to the description, a scrolling tail of log lines, and a progress
// bar that appears once the task reports progress. The terminal event
// replaces the spinner with an outcome line and exits the dialog.
type Loader struct {
	description string
	styles      *Styles

	spinner spinner.Model
	bar     progress.Model

	lines []string
	total int

	showBar  bool
	fraction float64

	done   bool
	result any
	err    error

	start   time.Time
	elapsed time.Duration

	quitting bool
}

// NewLoader creates the dialog model for one invocation.
func NewLoader(description string) Loader {
	styles := newStyles()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = styles.Spinner

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return Loader{
		description: description,
		styles:      styles,
		spinner:     spin,
		bar:         bar,
		lines:       make([]string, 0, logTail),
		start:       time.Now(),
	}
}

// Finished reports whether the terminal event arrived before the
// dialog exited. False means the user dismissed a still-running task.
func (m Loader) Finished() bool {
	return m.done
}

// Init implements tea.Model.
func (m Loader) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Loader) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := msg.Width - 8
		if width < 20 {
			width = 20
		}
		if width > 60 {
			width = 60
		}
		m.bar.Width = width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		barModel, cmd := m.bar.Update(msg)
		m.bar = barModel.(progress.Model)
		return m, cmd

	case logMsg:
		m.total++
		m.lines = append(m.lines, string(msg))
		if len(m.lines) > logTail {
			m.lines = m.lines[len(m.lines)-logTail:]
		}
		return m, nil

	case progressMsg:
		m.showBar = true
		m.fraction = float64(msg)
		return m, m.bar.SetPercent(float64(msg))

	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		m.elapsed = time.Since(m.start)
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Loader) View() string {
	if m.quitting && !m.done {
		return ""
	}

	var b strings.Builder

	if m.done {
		b.WriteString(m.outcomeLine())
	} else {
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.styles.Title.Render(m.description)))
	}

	if m.total > logTail {
		b.WriteString("  " + m.styles.Muted.Render("…") + "\n")
	}
	for _, line := range m.lines {
		b.WriteString("  " + m.styles.Muted.Render(line) + "\n")
	}

	if m.done {
		if m.err != nil {
			b.WriteString("  " + m.styles.StatusError.Render(m.err.Error()) + "\n")
		} else if m.result != nil {
			b.WriteString("  " + m.styles.Value.Render(fmt.Sprintf("%v", m.result)) + "\n")
		}
		return b.String()
	}

	if m.showBar {
		b.WriteString("  " + m.bar.View() + "\n")
	}
	b.WriteString(m.styles.HelpText.Render("q to dismiss") + "\n")

	return b.String()
}

func (m Loader) outcomeLine() string {
	elapsed := m.styles.Muted.Render(fmt.Sprintf("(%s)", m.elapsed.Round(time.Millisecond)))
	if m.err != nil {
		return fmt.Sprintf("%s %s %s\n", m.styles.StatusError.Render("FAILED"), m.styles.Title.Render(m.description), elapsed)
	}
	return fmt.Sprintf("%s %s %s\n", m.styles.StatusOK.Render("COMPLETED"), m.styles.Title.Render(m.description), elapsed)
}

// Session couples a running loader program with the observer feeding
// it. Observer callbacks translate events into program messages, so
// the bubbletea runtime serializes all screen updates; sends after the
// program has exited are dropped.
type Session struct {
	program *tea.Program
	done    chan struct{}
	final   Loader
	runErr  error
}

// StartLoader runs the dialog on its own goroutine and returns the
// session feeding it.
func StartLoader(description string) *Session {
	p := tea.NewProgram(NewLoader(description))
	s := &Session{program: p, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		final, err := p.Run()
		if m, ok := final.(Loader); ok {
			s.final = m
		}
		s.runErr = err
	}()
	return s
}

func (s *Session) OnLog(line string) {
	s.program.Send(logMsg(line))
}

func (s *Session) OnProgress(fraction float64) {
	s.program.Send(progressMsg(fraction))
}

func (s *Session) OnTerminal(result any, err error) {
	s.program.Send(doneMsg{result: result, err: err})
}

// Wait blocks until the dialog has exited and returns its final state.
func (s *Session) Wait() (Loader, error) {
	<-s.done
	return s.final, s.runErr
}
