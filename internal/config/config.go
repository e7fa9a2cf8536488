package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key"

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Cache     CacheConfig     `json:"cache"`
	Worker    WorkerConfig    `json:"worker"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Notify    NotifyConfig    `json:"notify"`
}

type ServerConfig struct {
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver"`
	SQLitePath      string        `json:"sqlite_path"`
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	Name            string        `json:"name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	StoreTimeout    time.Duration `json:"store_timeout"`
	LogLevel        string        `json:"log_level"`
}

type RedisConfig struct {
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type CacheConfig struct {
	Enabled   bool          `json:"enabled"`
	TTL       time.Duration `json:"ttl"`
	L1TTL     time.Duration `json:"l1_ttl"`
	KeyPrefix string        `json:"key_prefix"`
}

type WorkerConfig struct {
	Concurrency  int           `json:"concurrency"`
	PollInterval time.Duration `json:"poll_interval"`
	MaxTries     int           `json:"max_tries"`
	Queues       []string      `json:"queues"`
}

type AuthConfig struct {
	JWTSecret       string        `json:"jwt_secret"`
	Issuer          string        `json:"issuer"`
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
	BCryptCost      int           `json:"bcrypt_cost"`
}

type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	RequestsPerMin  int           `json:"requests_per_minute"`
	BurstSize       int           `json:"burst_size"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type NotifyConfig struct {
	Horizon       time.Duration `json:"horizon"`
	MaxHorizon    time.Duration `json:"max_horizon"`
	SweepInterval time.Duration `json:"sweep_interval"`
}

// LoadConfig reads the environment, plus the file named by CONFIG_FILE when
// set. Environment values win over the file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:         getString(v, "HOST", "localhost"),
			Port:         getString(v, "PORT", "8080"),
			ReadTimeout:  getDuration(v, "READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration(v, "WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration(v, "IDLE_TIMEOUT", 60*time.Second),
			Environment:  getString(v, "ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getString(v, "DB_DRIVER", "postgres")),
			SQLitePath:      getString(v, "DB_SQLITE_PATH", "task_tracker.db"),
			Host:            getString(v, "DB_HOST", "localhost"),
			Port:            getString(v, "DB_PORT", "5432"),
			User:            getString(v, "DB_USER", "postgres"),
			Password:        getString(v, "DB_PASSWORD", ""),
			Name:            getString(v, "DB_NAME", "task_tracker"),
			SSLMode:         getString(v, "DB_SSL_MODE", "disable"),
			MaxOpenConns:    getInt(v, "DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt(v, "DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDuration(v, "DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getDuration(v, "DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
			StoreTimeout:    getDuration(v, "STORE_TIMEOUT", 5*time.Second),
			LogLevel:        getString(v, "DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:         getString(v, "REDIS_HOST", "localhost"),
			Port:         getString(v, "REDIS_PORT", "6379"),
			Password:     getString(v, "REDIS_PASSWORD", ""),
			DB:           getInt(v, "REDIS_DB", 0),
			PoolSize:     getInt(v, "REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt(v, "REDIS_MIN_IDLE_CONNS", 5),
			MaxRetries:   getInt(v, "REDIS_MAX_RETRIES", 3),
			DialTimeout:  getDuration(v, "REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration(v, "REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration(v, "REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Cache: CacheConfig{
			Enabled:   getBool(v, "CACHE_ENABLED", true),
			TTL:       getDuration(v, "CACHE_TTL", 5*time.Minute),
			L1TTL:     getDuration(v, "CACHE_L1_TTL", 30*time.Second),
			KeyPrefix: getString(v, "CACHE_KEY_PREFIX", "tracker:"),
		},
		Worker: WorkerConfig{
			Concurrency:  getInt(v, "WORKER_CONCURRENCY", 4),
			PollInterval: getDuration(v, "WORKER_POLL_INTERVAL", 5*time.Second),
			MaxTries:     getInt(v, "WORKER_MAX_TRIES", 3),
			Queues:       cast.ToStringSlice(getString(v, "WORKER_QUEUES", "maintenance")), // space separated
		},
		Auth: AuthConfig{
			JWTSecret:       getString(v, "JWT_SECRET", defaultJWTSecret),
			Issuer:          getString(v, "JWT_ISSUER", "task-tracker"),
			AccessTokenTTL:  getDuration(v, "ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getDuration(v, "REFRESH_TOKEN_TTL", 7*24*time.Hour),
			BCryptCost:      getInt(v, "BCRYPT_COST", 10),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getBool(v, "RATE_LIMIT_ENABLED", true),
			RequestsPerMin:  getInt(v, "RATE_LIMIT_RPM", 100),
			BurstSize:       getInt(v, "RATE_LIMIT_BURST", 10),
			CleanupInterval: getDuration(v, "RATE_LIMIT_CLEANUP", 10*time.Minute),
		},
		Notify: NotifyConfig{
			Horizon:       getDuration(v, "NOTIFY_HORIZON", 24*time.Hour),
			MaxHorizon:    getDuration(v, "NOTIFY_MAX_HORIZON", 7*24*time.Hour),
			SweepInterval: getDuration(v, "NOTIFY_SWEEP_INTERVAL", 15*time.Minute),
		},
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Notify.Horizon <= 0 || config.Notify.Horizon > config.Notify.MaxHorizon {
		return nil, fmt.Errorf("notification horizon must be positive and at most %s", config.Notify.MaxHorizon)
	}

	if config.Database.Password == "" && config.Database.Driver == "postgres" && config.Server.Environment == "production" {
		return nil, fmt.Errorf("database password is required in production")
	}

	if config.Auth.JWTSecret == defaultJWTSecret && config.Server.Environment == "production" {
		return nil, fmt.Errorf("JWT secret must be set in production")
	}

	return config, nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// The getters below fall back to the default when a value is unset or does
// not parse, the same way for env vars and file entries.

func getString(v *viper.Viper, key, defaultValue string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(v *viper.Viper, key string, defaultValue int) int {
	if !v.IsSet(key) {
		return defaultValue
	}
	value, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getBool(v *viper.Viper, key string, defaultValue bool) bool {
	if !v.IsSet(key) {
		return defaultValue
	}
	value, err := cast.ToBoolE(v.Get(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	if !v.IsSet(key) {
		return defaultValue
	}
	value, err := cast.ToDurationE(v.Get(key))
	if err != nil {
		return defaultValue
	}
	return value
}
