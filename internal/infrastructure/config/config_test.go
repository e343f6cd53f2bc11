package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != DriverFile || cfg.Storage.Path != "data/malls.json" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.JWT.ExpiresIn != 24*time.Hour {
		t.Fatalf("unexpected jwt expiry %s", cfg.JWT.ExpiresIn)
	}
	if cfg.Events.Enabled {
		t.Fatalf("events must be disabled by default")
	}
	if !cfg.App.IsDevelopment() {
		t.Fatalf("expected development environment")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("expected port 8081, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Logger.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logger.Level)
	}
	brokers := cfg.Events.BrokerList()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", brokers)
	}
}

func TestLoad_ConfigFileWithUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mallmap.yaml")
	body := `
storage:
  driver: sqlite
database:
  path: /tmp/mallmap.db
users:
  - username: alice
    password_hash: "$2a$10$abcdefghijklmnopqrstuv"
    role: admin
  - username: zara
    password_hash: "$2a$10$abcdefghijklmnopqrstuv"
    role: store
    store_id: 1
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Database.Path != "/tmp/mallmap.db" {
		t.Fatalf("unexpected storage %+v / %+v", cfg.Storage, cfg.Database)
	}
	if len(cfg.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(cfg.Users))
	}
	if cfg.Users[1].Username != "zara" || cfg.Users[1].Role != "store" || cfg.Users[1].StoreID != 1 {
		t.Fatalf("unexpected user %+v", cfg.Users[1])
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Environment: "development"},
			Server:   ServerConfig{Port: 5000},
			Storage:  StorageConfig{Driver: DriverFile, Path: "data/malls.json"},
			JWT:      JWTConfig{Secret: DefaultJWTSecret, ExpiresIn: time.Hour},
			Security: SecurityConfig{RateLimitRequests: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }, "JWT secret must be set"},
		{"default secret in production", func(c *Config) { c.App.Environment = "production" }, "default value"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, "unknown storage driver"},
		{"file without path", func(c *Config) { c.Storage.Path = "" }, "storage path"},
		{"s3 without bucket", func(c *Config) { c.Storage.Driver = DriverS3; c.S3.Key = "k" }, "s3 bucket"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = DriverSQLite }, "database path"},
		{"events without topic", func(c *Config) {
			c.Events = EventsConfig{Enabled: true, Brokers: "localhost:9092"}
		}, "kafka brokers and topic"},
		{"user with bad role", func(c *Config) {
			c.Users = []UserConfig{{Username: "bob", PasswordHash: "x", Role: "owner"}}
		}, "unknown role"},
		{"user without hash", func(c *Config) {
			c.Users = []UserConfig{{Username: "bob", Role: "admin"}}
		}, "password_hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
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

func TestDatabaseConfig_URLs(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, Name: "mallmap", User: "u", Password: "p", SSLMode: "disable"}
	if got := db.GetDSN(); got != "host=db port=5432 user=u password=p dbname=mallmap sslmode=disable" {
		t.Fatalf("unexpected DSN %q", got)
	}
	if got := db.GetMigrationURL(); got != "postgres://u:p@db:5432/mallmap?sslmode=disable" {
		t.Fatalf("unexpected migration URL %q", got)
	}
}
