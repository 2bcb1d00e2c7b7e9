package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/helena/sidework/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded invocations",
	Long:  `List, show, and clear the invocation history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent invocations",
	Long: `List recorded invocations, newest first.

Use --limit to bound the output and --json for machine-readable records.`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one invocation",
	Long: `Show a recorded invocation in full. The id may be any unique prefix
of the identifier printed by 'sidework history list'.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete recorded invocations",
	Long: `Delete history records. By default everything is removed; use
--older-than to keep recent records.

Examples:
  sidework history clear
  sidework history clear --older-than 168h`,
	RunE: runHistoryClear,
}

func init() {
	historyListCmd.Flags().IntP("limit", "l", 20, "Maximum records to list (0 for all)")
	historyListCmd.Flags().Bool("json", false, "Output as JSON")
	historyShowCmd.Flags().Bool("json", false, "Output as JSON")
	historyClearCmd.Flags().Duration("older-than", 0, "Only delete records older than this duration")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// recordEntry is the JSON shape for a history record.
type recordEntry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Command     string    `json:"command"`
	Status      string    `json:"status"`
	Result      string    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMS  int64     `json:"duration_ms"`
	LogLines    int       `json:"log_lines"`
	Progress    *float64  `json:"progress,omitempty"`
}

func recordToEntry(r *history.Record) recordEntry {
	e := recordEntry{
		ID:          r.ID,
		Description: r.Description,
		Command:     r.Command,
		Status:      string(r.Status),
		Result:      r.Result,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		DurationMS:  r.Duration.Milliseconds(),
		LogLines:    r.LogLines,
	}
	if r.HasProgress {
		p := r.LastProgress
		e.Progress = &p
	}
	return e
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(limit)
	if err != nil {
		return err
	}

	if asJSON {
		entries := make([]recordEntry, len(records))
		for i := range records {
			entries[i] = recordToEntry(&records[i])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(records) == 0 {
		fmt.Println("No invocations recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tDURATION\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Status,
			r.Duration.Round(time.Millisecond),
			r.Description,
		)
	}
	w.Flush()
	fmt.Printf("\n%d invocation(s)\n", len(records))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	record, err := store.Get(args[0])
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recordToEntry(record))
	}

	fmt.Printf("ID:          %s\n", record.ID)
	fmt.Printf("Description: %s\n", record.Description)
	fmt.Printf("Command:     %s\n", record.Command)
	fmt.Printf("Status:      %s\n", record.Status)
	fmt.Printf("Started:     %s\n", record.StartedAt.Format(time.RFC3339))
	fmt.Printf("Finished:    %s\n", record.FinishedAt.Format(time.RFC3339))
	fmt.Printf("Duration:    %s\n", record.Duration.Round(time.Millisecond))
	fmt.Printf("Log lines:   %d\n", record.LogLines)
	if record.HasProgress {
		fmt.Printf("Progress:    %.0f%%\n", record.LastProgress*100)
	}
	if record.Result != "" {
		fmt.Printf("Result:      %s\n", record.Result)
	}
	if record.Error != "" {
		fmt.Printf("Error:       %s\n", record.Error)
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	before := time.Now()
	if olderThan > 0 {
		before = before.Add(-olderThan)
	}
	n, err := store.Purge(before)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d record(s)\n", n)
	return nil
}
