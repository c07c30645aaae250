package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func newFlagBinder(defaults Config, args ...string) (*fakeBinder, error) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &fakeBinder{fs: fs}, nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.DB != "qisas.db" {
		t.Errorf("Paths.DB = %q; want %q", cfg.Paths.DB, "qisas.db")
	}
	if cfg.Paths.CommonVocab != "vocab/common.json" {
		t.Errorf("Paths.CommonVocab = %q; want %q", cfg.Paths.CommonVocab, "vocab/common.json")
	}
	if cfg.Ingest.Workers != 4 || cfg.Ingest.BatchSize != 50 {
		t.Errorf("Ingest = %+v; want 4 workers, batch 50", cfg.Ingest)
	}
	if cfg.Reader.WordBoundaries {
		t.Error("Reader.WordBoundaries = true; want false")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v; want info/text", cfg.Log)
	}
}

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	checks := []struct {
		flag string
		want string
	}{
		{"paths-db", "qisas.db"},
		{"paths-common-vocab", "vocab/common.json"},
		{"ingest-workers", "4"},
		{"reader-word-boundaries", "false"},
		{"log-level", "info"},
	}
	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}
		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
	for _, name := range flagKeys {
		if fs.Lookup(name) == nil {
			t.Errorf("bound flag %q is not registered", name)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	defaults := DefaultConfig()
	binder, err := newFlagBinder(defaults)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != defaults {
		t.Errorf("Load() = %+v; want %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	defaults := DefaultConfig()
	binder, err := newFlagBinder(defaults,
		"--paths-db=stories.db",
		"--ingest-workers=8",
		"--reader-word-boundaries",
		"--log-level=debug",
	)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Paths.DB != "stories.db" {
		t.Errorf("Paths.DB = %q; want %q", cfg.Paths.DB, "stories.db")
	}
	if cfg.Ingest.Workers != 8 {
		t.Errorf("Ingest.Workers = %d; want 8", cfg.Ingest.Workers)
	}
	if !cfg.Reader.WordBoundaries {
		t.Error("Reader.WordBoundaries = false; want true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QISAS_LOG_LEVEL", "warn")
	t.Setenv("QISAS_INGEST_BATCH_SIZE", "7")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "warn")
	}
	if cfg.Ingest.BatchSize != 7 {
		t.Errorf("Ingest.BatchSize = %d; want 7", cfg.Ingest.BatchSize)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "qisas.yaml")
	content := `
paths:
  db: /var/lib/qisas/qisas.db
ingest:
  workers: 2
log:
  format: json
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	binder, err := newFlagBinder(defaults, "--ingest-workers=6")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(LoadOptions{Cmd: binder, ConfigFile: cfgFile, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Paths.DB != "/var/lib/qisas/qisas.db" {
		t.Errorf("Paths.DB = %q; want value from file", cfg.Paths.DB)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q; want %q", cfg.Log.Format, "json")
	}
	// Flags win over the file.
	if cfg.Ingest.Workers != 6 {
		t.Errorf("Ingest.Workers = %d; want 6", cfg.Ingest.Workers)
	}
	if cfg.Ingest.BatchSize != defaults.Ingest.BatchSize {
		t.Errorf("Ingest.BatchSize = %d; want default", cfg.Ingest.BatchSize)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(LoadOptions{ConfigFile: bad, Defaults: DefaultConfig()}); err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
	if _, err := Load(LoadOptions{ConfigFile: "/nonexistent/qisas.yaml", Defaults: DefaultConfig()}); err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}

	t.Chdir(dir)
	defaults := DefaultConfig()
	defaults.Log.Level = "verbose"
	if _, err := Load(LoadOptions{Defaults: defaults}); err == nil {
		t.Error("Load() = nil; want error for unknown log level")
	}
	defaults = DefaultConfig()
	defaults.Log.Format = "xml"
	if _, err := Load(LoadOptions{Defaults: defaults}); err == nil {
		t.Error("Load() = nil; want error for unknown log format")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v; wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}
