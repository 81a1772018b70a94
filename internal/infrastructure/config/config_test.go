package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_RejectsDefaultJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for default JWT secret")
	}
	if !strings.Contains(err.Error(), "JWT secret") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", "/tmp/tasklog-test.db")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("REPORT_CACHE_TTL", "5s")
	t.Setenv("REPORT_TOP_N", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Fatalf("expected port 9191, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Fatalf("expected sqlite3 driver, got %q", cfg.Database.Driver)
	}
	if got := cfg.Database.GetDSN(); !strings.HasPrefix(got, "file:/tmp/tasklog-test.db?") {
		t.Fatalf("unexpected sqlite DSN %q", got)
	}
	if cfg.Report.CacheTTL != 5*time.Second {
		t.Fatalf("expected 5s cache ttl, got %v", cfg.Report.CacheTTL)
	}
	if cfg.Report.TopN != 7 {
		t.Fatalf("expected top_n 7, got %d", cfg.Report.TopN)
	}
	if cfg.Notification.Driver != "log" {
		t.Fatalf("expected default log notifier, got %q", cfg.Notification.Driver)
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		return Config{
			Server:       ServerConfig{Port: 8080},
			Database:     DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "tasklog"},
			JWT:          JWTConfig{Secret: "s3cret"},
			Notification: NotificationConfig{Driver: "log"},
			Report:       ReportConfig{TopN: 20},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "unsupported database driver"},
		{name: "missing host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "database host"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Driver = "sqlite3" }, wantErr: "database path"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server port"},
		{name: "smtp without host", mutate: func(c *Config) { c.Notification.Driver = "smtp" }, wantErr: "smtp host"},
		{name: "zero top n", mutate: func(c *Config) { c.Report.TopN = 0 }, wantErr: "top_n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
