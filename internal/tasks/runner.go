package tasks

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// CommandRunner executes one command, streaming merged output lines to
// emit. Allows mocking in tests. emit is called from the runner's own
// goroutine, one line at a time, in output order.
type CommandRunner interface {
	Run(ctx context.Context, spec Spec, emit func(line string)) (exitCode int, err error)
}

// ExecRunner is the default CommandRunner using os/exec. stdout and stderr
// share a single pipe, so the task sees lines roughly in the order the
// child produced them.
type ExecRunner struct{}

// Run executes the command and streams its output.
func (r *ExecRunner) Run(ctx context.Context, spec Spec, emit func(line string)) (int, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("creating pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return -1, err
	}

	// The child holds its own copy of the write end; drop ours so the
	// read side sees EOF when the child exits.
	_ = pw.Close()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(scanner.Text())
	}
	scanErr := scanner.Err()
	_ = pr.Close()

	err = cmd.Wait()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil && scanErr != nil {
		err = fmt.Errorf("reading output: %w", scanErr)
	}
	return exitCode, err
}
