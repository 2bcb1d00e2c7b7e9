package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level: "verbose",
		},
	}
	err := Validate(cfg)
	if err != ErrInvalidLogLevel {
		t.Errorf("expected ErrInvalidLogLevel, got %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Format: "xml",
		},
	}
	err := Validate(cfg)
	if err != ErrInvalidLogFormat {
		t.Errorf("expected ErrInvalidLogFormat, got %v", err)
	}
}

func TestValidate_ScheduleEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry ScheduleEntry
		want  error
	}{
		{
			name:  "missing name",
			entry: ScheduleEntry{Cron: "* * * * *", Command: []string{"true"}},
			want:  ErrScheduleMissingName,
		},
		{
			name:  "missing cron",
			entry: ScheduleEntry{Name: "tick", Command: []string{"true"}},
			want:  ErrScheduleMissingCron,
		},
		{
			name:  "missing command",
			entry: ScheduleEntry{Name: "tick", Cron: "* * * * *"},
			want:  ErrScheduleMissingCommand,
		},
		{
			name:  "complete",
			entry: ScheduleEntry{Name: "tick", Cron: "* * * * *", Command: []string{"true"}},
			want:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Schedule: []ScheduleEntry{tc.entry}}
			if err := Validate(cfg); err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		input    string
		expected string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}
	for _, tc := range tests {
		result := expandPath(tc.input)
		if result != tc.expected {
			t.Errorf("expandPath(%q) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sidework.yaml")

	yaml := `
logging:
  level: debug
  format: text
history:
  enabled: false
schedule:
  - name: nightly-backup
    cron: "0 2 * * *"
    command: ["rsync", "-a", "src", "dst"]
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected format text, got %q", cfg.Logging.Format)
	}
	if cfg.History.Enabled {
		t.Error("expected history disabled")
	}
	if len(cfg.Schedule) != 1 {
		t.Fatalf("expected 1 schedule entry, got %d", len(cfg.Schedule))
	}
	entry := cfg.Schedule[0]
	if entry.Name != "nightly-backup" || entry.Cron != "0 2 * * *" || len(entry.Command) != 4 {
		t.Errorf("unexpected schedule entry: %+v", entry)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sidework.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  plain: true\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.UI.Plain {
		t.Error("expected ui.plain from file")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default level info, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.RetentionDays != 7 {
		t.Errorf("expected default retention 7, got %d", cfg.Logging.RetentionDays)
	}
	if !cfg.History.Enabled {
		t.Error("expected history enabled by default")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sidework.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("SIDEWORK_LOGGING_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected env override to win, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sidework.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	_, err := Load(path)
	if err != ErrInvalidLogLevel {
		t.Errorf("expected ErrInvalidLogLevel, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sidework.yaml")

	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.UI.NoColor = true
	cfg.Schedule = []ScheduleEntry{
		{Name: "tick", Cron: "*/5 * * * *", Command: []string{"date"}},
	}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save: %v", err)
	}
	if loaded.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", loaded.Logging.Level)
	}
	if !loaded.UI.NoColor {
		t.Error("expected ui.no_color to survive the round trip")
	}
	if len(loaded.Schedule) != 1 || loaded.Schedule[0].Name != "tick" {
		t.Errorf("schedule did not survive the round trip: %+v", loaded.Schedule)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	path := GlobalConfigPath()
	if filepath.Base(path) != "sidework.yaml" {
		t.Errorf("unexpected config filename in %q", path)
	}
}
