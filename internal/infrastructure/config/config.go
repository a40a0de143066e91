package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // rate_sync.location must resolve in minimal images

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Auth       AuthConfig
	RateSync   RateSyncConfig
	Settlement SettlementConfig
	Storage    StorageConfig
	Swagger    SwaggerConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// IsProduction reports whether the service runs with production safeguards
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int // in minutes
	ConnMaxIdleTime    int // in minutes
	LogLevel           string
	SlowQueryThreshold time.Duration
	MigrationsPath     string // empty uses the migrations embedded in the binary
}

// RedisConfig holds Redis connection settings.
// An empty Host disables Redis and the sync guard falls back to memory.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	ShutdownTimeout     time.Duration
	MaxHeaderBytes      int
	MaxBodySize         int64
	CORSAllowOrigins    []string
	TrustedProxies      []string
	SyncTriggerInterval time.Duration // manual rate sync token refill, per caller
	SyncTriggerBurst    int
}

// AuthConfig holds the key used to verify bearer tokens.
// Tokens are issued elsewhere; this service only reads the actor from them.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// RateSyncConfig holds exchange rate synchronizer settings
type RateSyncConfig struct {
	Enabled            bool
	Schedule           string // cron expression, default hourly
	Timeout            time.Duration
	WindowStartHour    int // first hour of the day a tick may fetch
	WindowEndHour      int // exclusive
	Location           string
	Provider           string // cbr, exchangerate or chain
	CBRURL             string
	ExchangeRateURL    string
	ExchangeRateAPIKey string
	GuardTTL           time.Duration
}

// SettlementConfig holds ledger business rules
type SettlementConfig struct {
	FeePolicy        string // DEDUCT or GROSS
	RateFallback     string // PREVIOUS or EXACT
	MaxRetries       int
	RetryBackoff     time.Duration
	ReportIsolation  string // repeatable_read, serializable, read_committed or default
	EnforcePartner   bool
	EnforceDirection bool
}

// StorageConfig holds the S3-compatible archive for exported reports.
// An empty Bucket disables archiving.
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Prefix          string
}

// Enabled reports whether exported reports are archived
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // IPs or CIDRs; empty allows everyone
}

// TelemetryConfig holds OpenTelemetry, Prometheus and Pyroscope configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to export traces
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)

	MetricsEnabled      bool
	MetricsInterval     time.Duration
	PrometheusEnabled   bool
	LogsEnabled         bool
	LogsLevel           string
	DBTraceEnabled      bool
	DBLogFullSQL        bool          // dev only
	DBSlowQueryThresh   time.Duration // slow query threshold for span attributes and warnings
	ProfilingEnabled    bool
	ProfilingServerAddr string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SETTLE_ prefix (e.g., SETTLE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// ".", "./config" and "/etc/settlement" for config.toml.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/settlement")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SETTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("database.host"),
			Port:               v.GetInt("database.port"),
			User:               v.GetString("database.user"),
			Password:           v.GetString("database.password"),
			DBName:             v.GetString("database.dbname"),
			SSLMode:            v.GetString("database.sslmode"),
			MaxOpenConns:       v.GetInt("database.max_open_conns"),
			MaxIdleConns:       v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime:    v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:    v.GetInt("database.conn_max_idle_time"),
			LogLevel:           v.GetString("database.log_level"),
			SlowQueryThreshold: v.GetDuration("database.slow_query_threshold"),
			MigrationsPath:     v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:         v.GetDuration("http.read_timeout"),
			WriteTimeout:        v.GetDuration("http.write_timeout"),
			IdleTimeout:         v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:     v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:      v.GetInt("http.max_header_bytes"),
			MaxBodySize:         v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:    v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:      v.GetStringSlice("http.trusted_proxies"),
			SyncTriggerInterval: v.GetDuration("http.sync_trigger_interval"),
			SyncTriggerBurst:    v.GetInt("http.sync_trigger_burst"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		RateSync: RateSyncConfig{
			Enabled:            v.GetBool("rate_sync.enabled"),
			Schedule:           v.GetString("rate_sync.schedule"),
			Timeout:            v.GetDuration("rate_sync.timeout"),
			WindowStartHour:    v.GetInt("rate_sync.window_start_hour"),
			WindowEndHour:      v.GetInt("rate_sync.window_end_hour"),
			Location:           v.GetString("rate_sync.location"),
			Provider:           v.GetString("rate_sync.provider"),
			CBRURL:             v.GetString("rate_sync.cbr_url"),
			ExchangeRateURL:    v.GetString("rate_sync.exchangerate_url"),
			ExchangeRateAPIKey: v.GetString("rate_sync.exchangerate_api_key"),
			GuardTTL:           v.GetDuration("rate_sync.guard_ttl"),
		},
		Settlement: SettlementConfig{
			FeePolicy:        v.GetString("settlement.fee_policy"),
			RateFallback:     v.GetString("settlement.rate_fallback"),
			MaxRetries:       v.GetInt("settlement.max_retries"),
			RetryBackoff:     v.GetDuration("settlement.retry_backoff"),
			ReportIsolation:  v.GetString("settlement.report_isolation"),
			EnforcePartner:   getBoolDefault(v, "settlement.enforce_partner", true),
			EnforceDirection: getBoolDefault(v, "settlement.enforce_direction", true),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			Prefix:          v.GetString("storage.prefix"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:             v.GetBool("telemetry.enabled"),
			CollectorEndpoint:   v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:       v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:         v.GetString("telemetry.service_name"),
			Insecure:            v.GetBool("telemetry.insecure"),
			MetricsEnabled:      v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:     v.GetDuration("telemetry.metrics_interval"),
			PrometheusEnabled:   getBoolDefault(v, "telemetry.prometheus_enabled", true),
			LogsEnabled:         v.GetBool("telemetry.logs_enabled"),
			LogsLevel:           v.GetString("telemetry.logs_level"),
			DBTraceEnabled:      v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:        v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:   v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:    v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddr: v.GetString("telemetry.profiling_server_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getBoolDefault(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	return v.GetBool(key)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "settlement"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "settlement"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowQueryThreshold == 0 {
		cfg.Database.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second // report export can be slow
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.SyncTriggerInterval == 0 {
		cfg.HTTP.SyncTriggerInterval = 30 * time.Second
	}
	if cfg.HTTP.SyncTriggerBurst == 0 {
		cfg.HTTP.SyncTriggerBurst = 2
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "settlement"
	}
	if cfg.RateSync.Schedule == "" {
		cfg.RateSync.Schedule = "0 * * * *"
	}
	if cfg.RateSync.Timeout == 0 {
		cfg.RateSync.Timeout = 60 * time.Second
	}
	if cfg.RateSync.WindowEndHour == 0 {
		cfg.RateSync.WindowEndHour = 24
	}
	if cfg.RateSync.Location == "" {
		cfg.RateSync.Location = "Europe/Moscow"
	}
	if cfg.RateSync.Provider == "" {
		cfg.RateSync.Provider = "cbr"
	}
	if cfg.RateSync.CBRURL == "" {
		cfg.RateSync.CBRURL = "https://www.cbr.ru/scripts/XML_daily.asp"
	}
	if cfg.RateSync.ExchangeRateURL == "" {
		cfg.RateSync.ExchangeRateURL = "https://api.exchangerate.host"
	}
	if cfg.RateSync.GuardTTL == 0 {
		cfg.RateSync.GuardTTL = 10 * time.Minute
	}
	if cfg.Settlement.FeePolicy == "" {
		cfg.Settlement.FeePolicy = "DEDUCT"
	}
	if cfg.Settlement.RateFallback == "" {
		cfg.Settlement.RateFallback = "PREVIOUS"
	}
	if cfg.Settlement.MaxRetries == 0 {
		cfg.Settlement.MaxRetries = 3
	}
	if cfg.Settlement.RetryBackoff == 0 {
		cfg.Settlement.RetryBackoff = 25 * time.Millisecond
	}
	if cfg.Settlement.ReportIsolation == "" {
		cfg.Settlement.ReportIsolation = "repeatable_read"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "reports/"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.LogsLevel == "" {
		cfg.Telemetry.LogsLevel = "info"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = cfg.Database.SlowQueryThreshold
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	rs := c.RateSync
	if rs.WindowStartHour < 0 || rs.WindowStartHour > 23 {
		return fmt.Errorf("rate_sync.window_start_hour must be between 0 and 23, got %d", rs.WindowStartHour)
	}
	if rs.WindowEndHour <= rs.WindowStartHour || rs.WindowEndHour > 24 {
		return fmt.Errorf("rate_sync.window_end_hour must be after window_start_hour and at most 24, got %d", rs.WindowEndHour)
	}
	if _, err := time.LoadLocation(rs.Location); err != nil {
		return fmt.Errorf("rate_sync.location %q: %w", rs.Location, err)
	}
	switch strings.ToLower(rs.Provider) {
	case "cbr", "exchangerate", "chain":
	default:
		return fmt.Errorf("rate_sync.provider must be cbr, exchangerate or chain, got %q", rs.Provider)
	}

	switch strings.ToUpper(c.Settlement.FeePolicy) {
	case "DEDUCT", "GROSS":
	default:
		return fmt.Errorf("settlement.fee_policy must be DEDUCT or GROSS, got %q", c.Settlement.FeePolicy)
	}
	switch strings.ToUpper(c.Settlement.RateFallback) {
	case "PREVIOUS", "EXACT":
	default:
		return fmt.Errorf("settlement.rate_fallback must be PREVIOUS or EXACT, got %q", c.Settlement.RateFallback)
	}
	if c.Settlement.MaxRetries < 0 {
		return fmt.Errorf("settlement.max_retries cannot be negative")
	}

	if c.App.IsProduction() {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServerAddr == "" {
		return fmt.Errorf("telemetry.profiling_server_address is required when profiling is enabled")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
