package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

var allEnvVars = []string{
	"CONFIG_FILE",
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "ENVIRONMENT",
	"DB_DRIVER", "DB_SQLITE_PATH", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	"STORE_TIMEOUT", "DB_LOG_LEVEL",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"CACHE_ENABLED", "CACHE_TTL", "CACHE_L1_TTL", "CACHE_KEY_PREFIX",
	"WORKER_CONCURRENCY", "WORKER_POLL_INTERVAL", "WORKER_MAX_TRIES", "WORKER_QUEUES",
	"JWT_SECRET", "JWT_ISSUER", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "BCRYPT_COST",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_CLEANUP",
	"NOTIFY_HORIZON", "NOTIFY_MAX_HORIZON", "NOTIFY_SWEEP_INTERVAL",
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range allEnvVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setEnvVars(t, nil)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}

	if config.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", config.Server.Port)
	}

	if config.Server.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", config.Server.Environment)
	}

	if config.Database.Driver != "postgres" {
		t.Errorf("Expected default DB driver 'postgres', got %s", config.Database.Driver)
	}

	if config.Database.Name != "task_tracker" {
		t.Errorf("Expected default DB name 'task_tracker', got %s", config.Database.Name)
	}

	if config.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default max open conns 25, got %d", config.Database.MaxOpenConns)
	}

	if config.Database.StoreTimeout != 5*time.Second {
		t.Errorf("Expected default store timeout 5s, got %v", config.Database.StoreTimeout)
	}

	if config.Redis.Port != "6379" {
		t.Errorf("Expected default Redis port '6379', got %s", config.Redis.Port)
	}

	if config.Redis.PoolSize != 10 {
		t.Errorf("Expected default Redis pool size 10, got %d", config.Redis.PoolSize)
	}

	if !config.Cache.Enabled {
		t.Error("Expected cache to be enabled by default")
	}

	if config.Cache.KeyPrefix != "tracker:" {
		t.Errorf("Expected default cache key prefix 'tracker:', got %s", config.Cache.KeyPrefix)
	}

	if config.Worker.Concurrency != 4 {
		t.Errorf("Expected default worker concurrency 4, got %d", config.Worker.Concurrency)
	}

	if len(config.Worker.Queues) != 1 || config.Worker.Queues[0] != "maintenance" {
		t.Errorf("Expected the maintenance queue by default, got %v", config.Worker.Queues)
	}

	if config.Auth.BCryptCost != 10 {
		t.Errorf("Expected default bcrypt cost 10, got %d", config.Auth.BCryptCost)
	}

	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}

	if config.Notify.Horizon != 24*time.Hour {
		t.Errorf("Expected default notify horizon 24h, got %v", config.Notify.Horizon)
	}

	if config.Notify.MaxHorizon != 7*24*time.Hour {
		t.Errorf("Expected default max horizon 168h, got %v", config.Notify.MaxHorizon)
	}
}

func TestLoadConfig_CustomEnvironment(t *testing.T) {
	setEnvVars(t, map[string]string{
		"HOST":               "0.0.0.0",
		"PORT":               "9000",
		"ENVIRONMENT":        "production",
		"DB_HOST":            "db.example.com",
		"DB_PASSWORD":        "secure_password",
		"DB_MAX_OPEN_CONNS":  "50",
		"STORE_TIMEOUT":      "2s",
		"REDIS_DB":           "1",
		"CACHE_ENABLED":      "false",
		"WORKER_CONCURRENCY": "8",
		"WORKER_QUEUES":      "maintenance  reminders",
		"CACHE_KEY_PREFIX":   "staging:",
		"JWT_SECRET":         "super-secret-key",
		"RATE_LIMIT_ENABLED": "false",
		"READ_TIMEOUT":       "45s",
		"ACCESS_TOKEN_TTL":   "30m",
		"REFRESH_TOKEN_TTL":  "720h",
		"NOTIFY_HORIZON":     "48h",
	})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with custom config, got: %v", err)
	}

	if config.GetServerAddr() != "0.0.0.0:9000" {
		t.Errorf("Expected server addr '0.0.0.0:9000', got %s", config.GetServerAddr())
	}

	if !config.IsProduction() {
		t.Error("Expected production environment")
	}

	if config.Database.Host != "db.example.com" {
		t.Errorf("Expected DB host 'db.example.com', got %s", config.Database.Host)
	}

	if config.Database.MaxOpenConns != 50 {
		t.Errorf("Expected max open conns 50, got %d", config.Database.MaxOpenConns)
	}

	if config.Database.StoreTimeout != 2*time.Second {
		t.Errorf("Expected store timeout 2s, got %v", config.Database.StoreTimeout)
	}

	if config.Redis.DB != 1 {
		t.Errorf("Expected Redis DB 1, got %d", config.Redis.DB)
	}

	if config.Cache.Enabled {
		t.Error("Expected cache to be disabled")
	}

	if config.Worker.Concurrency != 8 {
		t.Errorf("Expected worker concurrency 8, got %d", config.Worker.Concurrency)
	}

	if len(config.Worker.Queues) != 2 || config.Worker.Queues[1] != "reminders" {
		t.Errorf("Expected queues [maintenance reminders], got %v", config.Worker.Queues)
	}

	if config.Cache.KeyPrefix != "staging:" {
		t.Errorf("Expected cache key prefix 'staging:', got %s", config.Cache.KeyPrefix)
	}

	if config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be disabled")
	}

	if config.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Expected read timeout 45s, got %v", config.Server.ReadTimeout)
	}

	if config.Auth.AccessTokenTTL != 30*time.Minute {
		t.Errorf("Expected access token TTL 30m, got %v", config.Auth.AccessTokenTTL)
	}

	if config.Auth.RefreshTokenTTL != 720*time.Hour {
		t.Errorf("Expected refresh token TTL 720h, got %v", config.Auth.RefreshTokenTTL)
	}

	if config.Notify.Horizon != 48*time.Hour {
		t.Errorf("Expected notify horizon 48h, got %v", config.Notify.Horizon)
	}
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := []byte("PORT: \"7070\"\nDB_DRIVER: sqlite\nDB_SQLITE_PATH: /tmp/tracker.db\nNOTIFY_HORIZON: 12h\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	setEnvVars(t, map[string]string{
		"CONFIG_FILE": path,
		"PORT":        "9090",
	})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Server.Port != "9090" {
		t.Errorf("Expected env to win with port '9090', got %s", config.Server.Port)
	}

	if config.Database.Driver != "sqlite" {
		t.Errorf("Expected driver 'sqlite' from file, got %s", config.Database.Driver)
	}

	if config.GetDatabaseDSN() != "/tmp/tracker.db" {
		t.Errorf("Expected sqlite DSN '/tmp/tracker.db', got %s", config.GetDatabaseDSN())
	}

	if config.Notify.Horizon != 12*time.Hour {
		t.Errorf("Expected notify horizon 12h from file, got %v", config.Notify.Horizon)
	}
}

func TestLoadConfig_ProductionValidation(t *testing.T) {
	setEnvVars(t, map[string]string{
		"ENVIRONMENT": "production",
		"JWT_SECRET":  "secure-jwt-secret",
	})

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("Expected error for missing database password in production")
	}

	if err.Error() != "database password is required in production" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestLoadConfig_ProductionJWTValidation(t *testing.T) {
	setEnvVars(t, map[string]string{
		"ENVIRONMENT": "production",
		"DB_PASSWORD": "secure-db-password",
	})

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("Expected error for default JWT secret in production")
	}

	if err.Error() != "JWT secret must be set in production" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestConfigValidation_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		hasError bool
	}{
		{
			name: "Production with all required fields",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"DB_PASSWORD": "secure-password",
				"JWT_SECRET":  "secure-jwt-secret",
			},
		},
		{
			name: "Production sqlite needs no password",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"DB_DRIVER":   "sqlite",
				"JWT_SECRET":  "secure-jwt-secret",
			},
		},
		{
			name:     "Unknown driver",
			envVars:  map[string]string{"DB_DRIVER": "oracle"},
			hasError: true,
		},
		{
			name:     "Horizon above maximum",
			envVars:  map[string]string{"NOTIFY_HORIZON": "200h"},
			hasError: true,
		},
		{
			name:     "Negative horizon",
			envVars:  map[string]string{"NOTIFY_HORIZON": "-1h"},
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvVars(t, tt.envVars)

			config, err := LoadConfig()

			if tt.hasError {
				if err == nil {
					t.Error("Expected error, but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
			if config == nil {
				t.Error("Expected config to be loaded")
			}
		})
	}
}

func TestConfig_GetDatabaseDSN(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
			SSLMode:  "require",
		},
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"
	if actual := config.GetDatabaseDSN(); actual != expected {
		t.Errorf("Expected DSN '%s', got '%s'", expected, actual)
	}
}

func TestConfig_GetRedisAddr(t *testing.T) {
	config := &Config{
		Redis: RedisConfig{
			Host: "redis.example.com",
			Port: "6380",
		},
	}

	expected := "redis.example.com:6380"
	if actual := config.GetRedisAddr(); actual != expected {
		t.Errorf("Expected Redis addr '%s', got '%s'", expected, actual)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		expected    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, test := range tests {
		config := &Config{Server: ServerConfig{Environment: test.environment}}

		if actual := config.IsProduction(); actual != test.expected {
			t.Errorf("For environment '%s', expected IsProduction() = %v, got %v",
				test.environment, test.expected, actual)
		}
	}
}

func TestGetters_FallBackOnInvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("INT_OK", "100")
	v.Set("INT_BAD", "not-a-number")
	v.Set("BOOL_OK", "False")
	v.Set("BOOL_BAD", "maybe")
	v.Set("DUR_OK", "5m")
	v.Set("DUR_BAD", "not-a-duration")

	if got := getInt(v, "INT_OK", 42); got != 100 {
		t.Errorf("Expected 100, got %d", got)
	}
	if got := getInt(v, "INT_BAD", 42); got != 42 {
		t.Errorf("Expected default 42 for invalid int, got %d", got)
	}
	if got := getInt(v, "INT_MISSING", 42); got != 42 {
		t.Errorf("Expected default 42 for missing int, got %d", got)
	}
	if got := getBool(v, "BOOL_OK", true); got != false {
		t.Errorf("Expected false, got %v", got)
	}
	if got := getBool(v, "BOOL_BAD", true); got != true {
		t.Errorf("Expected default true for invalid bool, got %v", got)
	}
	if got := getDuration(v, "DUR_OK", time.Second); got != 5*time.Minute {
		t.Errorf("Expected 5m, got %v", got)
	}
	if got := getDuration(v, "DUR_BAD", time.Second); got != time.Second {
		t.Errorf("Expected default 1s for invalid duration, got %v", got)
	}
	if got := getString(v, "STR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback', got %s", got)
	}
}

func BenchmarkLoadConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = LoadConfig()
	}
}
