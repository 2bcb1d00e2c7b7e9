// Package tasks builds background task closures around subprocess
// execution. A task streams the child's merged output through its Context
// line by line, so the owner sees the command run live.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/helena/sidework/internal/background"
)

// Spec describes one command to execute.
type Spec struct {
	Name string
	Args []string
	Dir  string
}

// String renders the command line for banners and history records.
func (s Spec) String() string {
	parts := append([]string{s.Name}, s.Args...)
	for i, p := range parts {
		if strings.ContainsAny(p, " \t\"") {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, " ")
}

// Outcome is the success result of a command or pipeline task.
type Outcome struct {
	Command  string
	Steps    int
	Duration time.Duration
}

func (o Outcome) String() string {
	d := o.Duration.Round(time.Millisecond)
	if o.Steps > 1 {
		return fmt.Sprintf("%d steps in %s", o.Steps, d)
	}
	return fmt.Sprintf("completed in %s", d)
}

// Builder constructs tasks bound to a command runner and an execution
// context. The context covers the subprocesses only; the task lifecycle
// itself has no cancellation.
type Builder struct {
	runner CommandRunner
	ctx    context.Context
}

// Option configures a Builder.
type Option func(*Builder)

// WithRunner sets a custom command runner (for testing).
func WithRunner(r CommandRunner) Option {
	return func(b *Builder) {
		b.runner = r
	}
}

// WithContext sets the context passed to subprocesses, so an interrupted
// caller can kill a child that is still running.
func WithContext(ctx context.Context) Option {
	return func(b *Builder) {
		b.ctx = ctx
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		runner: &ExecRunner{},
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Command returns a task that runs one subprocess. Each line of merged
// stdout/stderr becomes one log event; a non-zero exit fails the task.
func (b *Builder) Command(spec Spec) background.Task {
	return func(tc *background.Context) (any, error) {
		start := time.Now()
		tc.Logf("$ %s", spec)

		if err := b.runStep(spec, tc); err != nil {
			return nil, err
		}

		return Outcome{
			Command:  spec.String(),
			Steps:    1,
			Duration: time.Since(start),
		}, nil
	}
}

// Pipeline returns a task that runs steps sequentially, reporting progress
// after each one. The first failing step fails the whole invocation;
// remaining steps do not run.
func (b *Builder) Pipeline(steps []Spec) background.Task {
	return func(tc *background.Context) (any, error) {
		if len(steps) == 0 {
			return nil, errors.New("pipeline has no steps")
		}

		start := time.Now()
		total := len(steps)
		for i, spec := range steps {
			tc.Logf("[%d/%d] $ %s", i+1, total, spec)
			if err := b.runStep(spec, tc); err != nil {
				return nil, fmt.Errorf("step %d of %d: %w", i+1, total, err)
			}
			tc.Progress(float64(i+1) / float64(total))
		}

		return Outcome{
			Command:  steps[0].String(),
			Steps:    total,
			Duration: time.Since(start),
		}, nil
	}
}

func (b *Builder) runStep(spec Spec, tc *background.Context) error {
	_, err := b.runner.Run(b.ctx, spec, tc.Log)
	if err != nil {
		return fmt.Errorf("%s: %w", spec.Name, err)
	}
	return nil
}
