package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	for _, key := range []string{"QUERYCHAT_ENDPOINT", "QUERYCHAT_LOG_DIR", "QUERYCHAT_EVENTS_DB", "QUERYCHAT_TIMEOUT", "QUERYCHAT_DEBUG", "QUERYCHAT_NO_TRACE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, DefaultEndpoint)
	}
	if cfg.LogDir != DefaultLogDir {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, DefaultLogDir)
	}
	if cfg.EventsDB != DefaultEventsDB {
		t.Errorf("EventsDB = %q, want %q", cfg.EventsDB, DefaultEventsDB)
	}
	if want := filepath.Join(DefaultLogDir, "querychat_events.db"); cfg.EventsPath() != want {
		t.Errorf("EventsPath() = %q, want %q", cfg.EventsPath(), want)
	}
	if cfg.NoTrace {
		t.Error("NoTrace = true, want false")
	}
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("QUERYCHAT_ENDPOINT", "https://example.com/query")
	t.Setenv("QUERYCHAT_TIMEOUT", "15s")
	t.Setenv("QUERYCHAT_DEBUG", "true")
	t.Setenv("QUERYCHAT_EVENTS_DB", "")
	t.Setenv("QUERYCHAT_NO_TRACE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "https://example.com/query" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.EventsPath() != "" {
		t.Errorf("EventsPath() = %q, want empty", cfg.EventsPath())
	}
	if !cfg.NoTrace {
		t.Error("NoTrace = false, want true")
	}
}

func TestEventsPathFollowsLogDir(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"default", Config{LogDir: "/var/log/qc", EventsDB: DefaultEventsDB}, filepath.Join("/var/log/qc", "querychat_events.db")},
		{"explicit", Config{LogDir: "/var/log/qc", EventsDB: "/data/events.db"}, "/data/events.db"},
		{"disabled", Config{LogDir: "/var/log/qc"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.EventsPath(); got != tt.want {
				t.Errorf("EventsPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("QUERYCHAT_ENDPOINT", "")
	os.Unsetenv("QUERYCHAT_ENDPOINT")
	t.Cleanup(func() { os.Unsetenv("QUERYCHAT_ENDPOINT") })

	content := "QUERYCHAT_ENDPOINT=http://10.0.0.5:8080/query\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "http://10.0.0.5:8080/query" {
		t.Errorf("Endpoint = %q, want value from .env", cfg.Endpoint)
	}
}

func TestLoadInvalidTimeout(t *testing.T) {
	chdirTemp(t)
	t.Setenv("QUERYCHAT_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error for bad timeout")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", Config{Endpoint: DefaultEndpoint, LogDir: "logs"}, false},
		{"https", Config{Endpoint: "https://host/query", LogDir: "logs", Timeout: time.Second}, false},
		{"bad scheme", Config{Endpoint: "ftp://host/query", LogDir: "logs"}, true},
		{"no host", Config{Endpoint: "http:///query", LogDir: "logs"}, true},
		{"negative timeout", Config{Endpoint: DefaultEndpoint, LogDir: "logs", Timeout: -time.Second}, true},
		{"no log dir", Config{Endpoint: DefaultEndpoint}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
