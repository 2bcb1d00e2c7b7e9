package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/helena/sidework/internal/background"
)

var direct = background.DispatcherFunc(func(fn func()) { fn() })

// mockRunner replays canned output per command name.
type mockRunner struct {
	calls []Spec
	lines map[string][]string
	errs  map[string]error
}

func (m *mockRunner) Run(ctx context.Context, spec Spec, emit func(string)) (int, error) {
	m.calls = append(m.calls, spec)
	for _, line := range m.lines[spec.Name] {
		emit(line)
	}
	if err := m.errs[spec.Name]; err != nil {
		return 1, err
	}
	return 0, nil
}

func runTask(t *testing.T, task background.Task) (logs []string, fractions []float64, result any, failure error) {
	t.Helper()

	w := background.NewWorker(direct, task)
	w.OnLog(func(text string) { logs = append(logs, text) })
	w.OnProgress(func(f float64) { fractions = append(fractions, f) })
	w.OnCompleted(func(r any) { result = r })
	w.OnFailed(func(err error) { failure = err })
	w.Start()
	w.Wait()
	return logs, fractions, result, failure
}

func TestCommandStreamsOutput(t *testing.T) {
	runner := &mockRunner{
		lines: map[string][]string{
			"make": {"compiling", "linking"},
		},
	}
	b := NewBuilder(WithRunner(runner))

	logs, _, result, failure := runTask(t, b.Command(Spec{Name: "make", Args: []string{"all"}}))

	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	want := []string{"$ make all", "compiling", "linking"}
	if len(logs) != len(want) {
		t.Fatalf("expected %d log lines, got %v", len(want), logs)
	}
	for i, line := range want {
		if logs[i] != line {
			t.Errorf("log %d: expected %q, got %q", i, line, logs[i])
		}
	}

	outcome, ok := result.(Outcome)
	if !ok {
		t.Fatalf("expected Outcome result, got %T", result)
	}
	if outcome.Steps != 1 || outcome.Command != "make all" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestCommandFailure(t *testing.T) {
	cause := errors.New("exit status 2")
	runner := &mockRunner{
		lines: map[string][]string{"make": {"error: no rule"}},
		errs:  map[string]error{"make": cause},
	}
	b := NewBuilder(WithRunner(runner))

	logs, _, result, failure := runTask(t, b.Command(Spec{Name: "make"}))

	if result != nil {
		t.Errorf("failed command must not produce a result, got %v", result)
	}
	if !errors.Is(failure, cause) {
		t.Fatalf("expected the runner error, got %v", failure)
	}
	if !strings.Contains(failure.Error(), "make") {
		t.Errorf("failure should name the command, got %q", failure.Error())
	}
	if len(logs) != 2 {
		t.Errorf("output before the failure must be delivered, got %v", logs)
	}
}

func TestPipelineProgress(t *testing.T) {
	runner := &mockRunner{
		lines: map[string][]string{
			"fmt":  {"formatted"},
			"vet":  {},
			"test": {"ok"},
		},
	}
	b := NewBuilder(WithRunner(runner))

	steps := []Spec{{Name: "fmt"}, {Name: "vet"}, {Name: "test"}}
	logs, fractions, result, failure := runTask(t, b.Pipeline(steps))

	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if len(fractions) != 3 {
		t.Fatalf("expected 3 progress updates, got %v", fractions)
	}
	wantFractions := []float64{1.0 / 3, 2.0 / 3, 1}
	for i, f := range wantFractions {
		if fractions[i] != f {
			t.Errorf("progress %d: expected %v, got %v", i, f, fractions[i])
		}
	}

	if logs[0] != "[1/3] $ fmt" {
		t.Errorf("expected a step banner first, got %q", logs[0])
	}

	outcome, ok := result.(Outcome)
	if !ok || outcome.Steps != 3 {
		t.Errorf("unexpected outcome: %v", result)
	}
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	cause := errors.New("exit status 1")
	runner := &mockRunner{
		errs: map[string]error{"vet": cause},
	}
	b := NewBuilder(WithRunner(runner))

	steps := []Spec{{Name: "fmt"}, {Name: "vet"}, {Name: "test"}}
	_, fractions, _, failure := runTask(t, b.Pipeline(steps))

	if !errors.Is(failure, cause) {
		t.Fatalf("expected the step error, got %v", failure)
	}
	if !strings.Contains(failure.Error(), "step 2 of 3") {
		t.Errorf("failure should name the step, got %q", failure.Error())
	}
	if len(runner.calls) != 2 {
		t.Errorf("steps after the failure must not run, got calls %v", runner.calls)
	}
	if len(fractions) != 1 {
		t.Errorf("only the completed step reports progress, got %v", fractions)
	}
}

func TestPipelineEmpty(t *testing.T) {
	b := NewBuilder(WithRunner(&mockRunner{}))
	_, _, _, failure := runTask(t, b.Pipeline(nil))
	if failure == nil {
		t.Fatal("expected an empty pipeline to fail")
	}
}

func TestSpecString(t *testing.T) {
	tests := []struct {
		spec Spec
		want string
	}{
		{Spec{Name: "ls"}, "ls"},
		{Spec{Name: "ls", Args: []string{"-la", "/tmp"}}, "ls -la /tmp"},
		{Spec{Name: "sh", Args: []string{"-c", "echo hi"}}, `sh -c "echo hi"`},
	}
	for _, tc := range tests {
		if got := tc.spec.String(); got != tc.want {
			t.Errorf("Spec.String() = %q, want %q", got, tc.want)
		}
	}
}

func TestExecRunnerStreams(t *testing.T) {
	var lines []string
	code, err := (&ExecRunner{}).Run(context.Background(),
		Spec{Name: "sh", Args: []string{"-c", "echo one; echo two"}},
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 0 {
		t.Errorf("expected exit 0, got %d", code)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("unexpected output: %v", lines)
	}
}

func TestExecRunnerMergesStderr(t *testing.T) {
	var lines []string
	_, err := (&ExecRunner{}).Run(context.Background(),
		Spec{Name: "sh", Args: []string{"-c", "echo out; echo err 1>&2"}},
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected stderr in the stream, got %v", lines)
	}
}

func TestExecRunnerExitCode(t *testing.T) {
	code, err := (&ExecRunner{}).Run(context.Background(),
		Spec{Name: "sh", Args: []string{"-c", "exit 3"}},
		func(string) {})
	if err == nil {
		t.Fatal("expected an error for a non-zero exit")
	}
	if code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := (&ExecRunner{}).Run(context.Background(),
		Spec{Name: "definitely-not-a-real-binary-xyz"},
		func(string) {})
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}
}
