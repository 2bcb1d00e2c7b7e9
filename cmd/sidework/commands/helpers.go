package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/helena/sidework/internal/config"
	"github.com/helena/sidework/internal/history"
	"github.com/helena/sidework/internal/logging"
	"github.com/helena/sidework/internal/tasks"
)

// isInteractive reports whether stdout is a terminal. It is a variable so
// tests can override it.
var isInteractive = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// loadConfig loads configuration, honoring the persistent --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// initLogging initializes logging from config, with --log-level winning
// over the configured level.
func initLogging(cmd *cobra.Command, cfg *config.Config) error {
	level := cfg.Logging.Level
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	return logging.Init(logging.Config{
		Level:         level,
		Path:          cfg.Logging.Path,
		Format:        cfg.Logging.Format,
		RetentionDays: cfg.Logging.RetentionDays,
	})
}

// applyColorProfile strips colors when asked to, via flag, config, or the
// NO_COLOR convention.
func applyColorProfile(cmd *cobra.Command, cfg *config.Config) {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor || cfg.UI.NoColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// usePlain reports whether output should be plain lines rather than the
// interactive loader dialog.
func usePlain(cmd *cobra.Command, cfg *config.Config) bool {
	plain, _ := cmd.Flags().GetBool("plain")
	return plain || cfg.UI.Plain || !isInteractive()
}

// openStore opens the invocation history database named by config.
func openStore(cfg *config.Config) (*history.Store, error) {
	path := cfg.History.Path
	if path == "" {
		path = history.DefaultPath()
	}
	return history.Open(path)
}

// parseStep splits one --step value into a command spec. Words are separated
// by whitespace; shell quoting is not interpreted.
func parseStep(step, dir string) (tasks.Spec, error) {
	fields := strings.Fields(step)
	if len(fields) == 0 {
		return tasks.Spec{}, fmt.Errorf("empty step")
	}
	return tasks.Spec{Name: fields[0], Args: fields[1:], Dir: dir}, nil
}

// buildSpecs turns the positional command or the --step flags into the
// ordered list of commands to run.
func buildSpecs(args, steps []string, dir string) ([]tasks.Spec, error) {
	if len(steps) > 0 {
		if len(args) > 0 {
			return nil, fmt.Errorf("--step and a positional command are mutually exclusive")
		}
		specs := make([]tasks.Spec, 0, len(steps))
		for _, s := range steps {
			spec, err := parseStep(s, dir)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
		return specs, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no command given (pass one after --, or use --step)")
	}
	return []tasks.Spec{{Name: args[0], Args: args[1:], Dir: dir}}, nil
}

// commandLine renders specs the way they show up in history and logs.
func commandLine(specs []tasks.Spec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return strings.Join(parts, " && ")
}

// shortID abbreviates a record ID for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
