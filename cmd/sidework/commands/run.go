package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helena/sidework/internal/background"
	"github.com/helena/sidework/internal/history"
	"github.com/helena/sidework/internal/logging"
	"github.com/helena/sidework/internal/tasks"
	"github.com/helena/sidework/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- COMMAND [ARGS...]",
	Short: "Run a command as a background task",
	Long: `Run a command on a background worker with live output.

The command's stdout and stderr are merged and streamed as ordered log
lines. In an interactive terminal a loader dialog shows a spinner, the
log tail, and a progress bar for pipelines; elsewhere plain lines are
printed. Every invocation finishes with exactly one outcome, recorded
in the history unless --no-history is set.

Use --step to run a pipeline instead of a single command. Steps run
sequentially and the first failure stops the pipeline. Step strings are
split on whitespace; shell quoting is not interpreted.

Examples:
  sidework run -- go build ./...
  sidework run -d "test suite" -- go test ./...
  sidework run --step "go vet ./..." --step "go test ./..."
  sidework run --plain -- make release
  sidework run --json -- ls -l`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("description", "d", "", "Description shown in the dialog and the history")
	runCmd.Flags().StringArray("step", nil, "Pipeline step, repeatable (replaces the positional command)")
	runCmd.Flags().String("dir", "", "Working directory for the command")
	runCmd.Flags().Bool("no-history", false, "Do not record this invocation")
	runCmd.Flags().Bool("json", false, "Print the finished history record as JSON")
	runCmd.SilenceUsage = true
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")
	steps, _ := cmd.Flags().GetStringArray("step")
	dir, _ := cmd.Flags().GetString("dir")
	noHistory, _ := cmd.Flags().GetBool("no-history")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := initLogging(cmd, cfg); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()
	applyColorProfile(cmd, cfg)

	specs, err := buildSpecs(args, steps, dir)
	if err != nil {
		return err
	}
	command := commandLine(specs)
	if description == "" {
		description = command
	}

	recording := !noHistory && cfg.History.Enabled
	if asJSON && !recording {
		return fmt.Errorf("--json needs the history record (enable history, drop --no-history)")
	}

	// Interrupts kill the running subprocess; the invocation still
	// finishes through its normal failure outcome.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	builder := tasks.NewBuilder(tasks.WithContext(ctx))
	var task background.Task
	if len(specs) == 1 {
		task = builder.Command(specs[0])
	} else {
		task = builder.Pipeline(specs)
	}

	var (
		store *history.Store
		rec   *history.Recorder
	)
	if recording {
		store, err = openStore(cfg)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer func() { _ = store.Close() }()
		rec = history.NewRecorder(store, description, command)
	}

	var (
		runErr error
		result any
	)
	opts := []background.RunOption{
		background.OnResult(func(v any) { result = v }),
		background.OnError(func(e error) { runErr = e }),
	}
	if rec != nil {
		opts = append(opts, background.WithObserver(rec))
	}

	var sess *ui.Session
	if usePlain(cmd, cfg) {
		opts = append(opts, background.WithObserver(ui.NewPrinter(os.Stdout, description)))
	} else {
		sess = ui.StartLoader(description)
		opts = append(opts, background.WithObserver(sess))
	}

	loop := background.NewLoop()
	runner := background.New(background.WithLogger(logging.Component("background")))
	w := runner.Run(loop, description, task, opts...)

	if sess != nil {
		final, uiErr := sess.Wait()
		w.Wait()
		loop.Close()
		if uiErr != nil || !final.Finished() {
			// Dialog gone before the outcome arrived, report it plainly.
			if runErr != nil {
				fmt.Printf("FAILED: %v\n", runErr)
			} else if result != nil {
				fmt.Printf("COMPLETED: %v\n", result)
			} else {
				fmt.Println("COMPLETED")
			}
		}
	} else {
		w.Wait()
		loop.Close()
	}

	if asJSON {
		record, err := store.Get(rec.ID())
		if err != nil {
			return fmt.Errorf("read history record: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(recordToEntry(record)); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("task failed: %w", runErr)
	}
	return nil
}
