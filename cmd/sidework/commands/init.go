package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helena/sidework/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create configuration file",
	Long: `Initialize a new sidework configuration file.

By default, creates sidework.yaml in the current directory.
Use --global to create a global config at ~/.config/sidework/sidework.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("global", false, "Create global config instead of project config")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing config without prompting")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	global, _ := cmd.Flags().GetBool("global")
	force, _ := cmd.Flags().GetBool("force")

	var configPath string
	if global {
		configPath = config.GlobalConfigPath()
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		configPath = filepath.Join(cwd, "sidework.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Printf("Config already exists: %s\n", configPath)
		fmt.Print("Overwrite? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if global {
		// The global config is managed programmatically so later writes
		// preserve hand-edited keys.
		if err := config.Save(config.Default(), configPath); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	} else {
		dir := filepath.Dir(configPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
		if err := os.WriteFile(configPath, []byte(defaultProjectConfig), 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	fmt.Printf("Created config: %s\n\n", configPath)
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit the config to set the log level and history path")
	fmt.Println("  2. Add schedule entries if you plan to use 'sidework watch'")
	fmt.Println("  3. Try 'sidework run -- echo hello'")
	fmt.Println()

	return nil
}

// defaultProjectConfig is the commented starter config written by init.
const defaultProjectConfig = `# Sidework Configuration
# Location: sidework.yaml (project root) or ~/.config/sidework/sidework.yaml
#
# Settings here can be overridden with SIDEWORK_* environment variables,
# e.g. SIDEWORK_LOGGING_LEVEL=debug.

# Logging configuration
logging:
  level: info                    # debug | info | warn | error
  path: ~/.local/share/sidework/logs
  format: json                   # json | text
  retention_days: 7              # Dated log files older than this are removed

# Invocation history
history:
  enabled: true
  path: ~/.local/share/sidework/sidework.db

# Output behavior
ui:
  plain: false                   # true: never show the loader dialog
  no_color: false                # true: disable colored output

# Scheduled tasks for 'sidework watch'
# Each entry runs its command on the cron expression.
schedule:
  # - name: backup
  #   cron: "0 2 * * *"          # Run at 2 AM daily
  #   command: ["rsync", "-a", "/data/", "/backup/"]
  # - name: tidy
  #   cron: "@hourly"
  #   command: ["go", "mod", "tidy"]
`
