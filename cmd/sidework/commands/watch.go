package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helena/sidework/internal/background"
	"github.com/helena/sidework/internal/config"
	"github.com/helena/sidework/internal/history"
	"github.com/helena/sidework/internal/logging"
	"github.com/helena/sidework/internal/scheduler"
	"github.com/helena/sidework/internal/tasks"
	"github.com/helena/sidework/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run scheduled tasks until interrupted",
	Long: `Run the schedule entries from the config file.

Each entry fires on its cron expression and runs its command as one
background invocation with plain output and history recording. A fire
that overlaps a still-running invocation of the same entry is skipped.

Config example:

  schedule:
    - name: backup
      cron: "0 2 * * *"
      command: ["rsync", "-a", "/data/", "/backup/"]

Watch runs in the foreground until SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func init() {
	watchCmd.SilenceUsage = true
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := initLogging(cmd, cfg); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()
	applyColorProfile(cmd, cfg)
	log := logging.Component("watch")

	if len(cfg.Schedule) == 0 {
		return fmt.Errorf("no schedule entries configured (add a schedule section to the config)")
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = openStore(cfg)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	runner := background.New(background.WithLogger(logging.Component("background")))
	sched := scheduler.New(scheduler.WithLogger(logging.Component("scheduler")))

	for _, entry := range cfg.Schedule {
		entry := entry
		err := sched.Add(entry.Name, entry.Cron, func() {
			runScheduled(runner, store, entry)
		})
		if err != nil {
			return fmt.Errorf("schedule %q: %w", entry.Name, err)
		}
	}

	sched.Start()
	for _, job := range sched.Jobs() {
		log.InfoCtx("entry scheduled", map[string]any{
			"name":     job.Name,
			"next_run": job.Next.Format(time.RFC3339),
		})
	}
	fmt.Printf("Watching %d scheduled task(s) (Ctrl+C to stop)\n", len(cfg.Schedule))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Infof("received signal %v, shutting down", sig)
	sched.Stop()
	log.Info("watch stopped")
	return nil
}

// runScheduled executes one schedule entry as a single invocation and
// blocks until its outcome has been delivered.
func runScheduled(runner *background.Runner, store *history.Store, entry config.ScheduleEntry) {
	spec := tasks.Spec{Name: entry.Command[0], Args: entry.Command[1:]}
	task := tasks.NewBuilder().Command(spec)

	var opts []background.RunOption
	if store != nil {
		opts = append(opts, background.WithObserver(history.NewRecorder(store, entry.Name, spec.String())))
	}
	opts = append(opts, background.WithObserver(ui.NewPrinter(os.Stdout, entry.Name)))

	loop := background.NewLoop()
	defer loop.Close()

	w := runner.Run(loop, entry.Name, task, opts...)
	w.Wait()
}
