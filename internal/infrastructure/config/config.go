package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AGRODASH_DATABASE_PASSWORD
const EnvPrefix = "AGRODASH"

// Config holds all application configuration
type Config struct {
	App        AppConfig
	HTTP       HTTPConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Archive    ArchiveConfig
	Log        LogConfig
	Telemetry  TelemetryConfig
	Projection ProjectionConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
	SwaggerEnabled    bool
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file, ":memory:" for tests
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        string // silent, error, warn, info
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ArchiveConfig holds the S3-compatible report archive settings
type ArchiveConfig struct {
	Enabled      bool
	Endpoint     string // empty uses the AWS endpoint of Region
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool // required by MinIO and RustFS
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // plaintext gRPC, development only
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool // export log records through the OTLP log pipeline
	PrometheusEnabled bool // serve runtime metrics at /metrics
	ProfilingEnabled  bool
	ProfilingServer   string // Pyroscope server address
	DBTraceEnabled    bool
	DBLogFullSQL      bool
}

// ProjectionConfig holds the engine settings
type ProjectionConfig struct {
	// NormalizationCurrency is the currency every report is expressed in
	NormalizationCurrency string
	// ReferenceRates quote one unit of a foreign currency in NormalizationCurrency
	ReferenceRates map[string]decimal.Decimal
	// CurrencyAliases maps raw stored codes to supported currencies. The
	// empty code is mapped explicitly; there is no implicit fallback.
	CurrencyAliases map[string]string
	FetchTimeout    time.Duration
	CacheTTL        time.Duration
	CacheBackend    string // memory or redis
	TopCreditors    int
	OpeningBalance  decimal.Decimal
	MinimumCash     decimal.Decimal
	// WarmInterval recomputes every organization's baseline report on this
	// period. Zero disables warming.
	WarmInterval time.Duration
	WarmWorkers  int
}

// Load reads configuration with this priority (highest first):
//  1. environment variables with the AGRODASH_ prefix
//  2. variables from a .env file in the working directory
//  3. config.toml / config.yaml in ".", "./config" or "/app"
//  4. built-in defaults
func Load() (*Config, error) {
	if err := LoadEnvFiles(".env"); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return load(v)
}

// LoadEnvFiles exports the variables of every existing file in paths.
// Variables already set in the environment keep their value.
func LoadEnvFiles(paths ...string) error {
	var present []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("error reading env file: %w", err)
	}
	return nil
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	rates, err := decimalMap(v, "projection.reference_rates")
	if err != nil {
		return nil, err
	}
	opening, err := decimalValue(v, "projection.opening_balance")
	if err != nil {
		return nil, err
	}
	minimum, err := decimalValue(v, "projection.minimum_cash")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Version: v.GetString("app.version"),
		},
		HTTP: HTTPConfig{
			Port:              v.GetString("http.port"),
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			SwaggerEnabled:    v.GetBool("http.swagger_enabled"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Archive: ArchiveConfig{
			Enabled:      v.GetBool("archive.enabled"),
			Endpoint:     v.GetString("archive.endpoint"),
			Region:       v.GetString("archive.region"),
			Bucket:       v.GetString("archive.bucket"),
			Prefix:       v.GetString("archive.prefix"),
			AccessKey:    v.GetString("archive.access_key"),
			SecretKey:    v.GetString("archive.secret_key"),
			UsePathStyle: v.GetBool("archive.use_path_style"),
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
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			PrometheusEnabled: v.GetBool("telemetry.prometheus_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
		Projection: ProjectionConfig{
			NormalizationCurrency: strings.ToUpper(strings.TrimSpace(v.GetString("projection.normalization_currency"))),
			ReferenceRates:        rates,
			CurrencyAliases:       stringMap(v, "projection.currency_aliases"),
			FetchTimeout:          v.GetDuration("projection.fetch_timeout"),
			CacheTTL:              v.GetDuration("projection.cache_ttl"),
			CacheBackend:          strings.ToLower(v.GetString("projection.cache_backend")),
			TopCreditors:          v.GetInt("projection.top_creditors"),
			OpeningBalance:        opening,
			MinimumCash:           minimum,
			WarmInterval:          v.GetDuration("projection.warm_interval"),
			WarmWorkers:           v.GetInt("projection.warm_workers"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "agrodash-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "dev")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.rate_limit_requests", 100)
	v.SetDefault("http.rate_limit_window", time.Minute)
	v.SetDefault("http.cors_allow_origins", []string{})
	v.SetDefault("http.cors_allow_methods", []string{"GET", "DELETE", "OPTIONS"})
	v.SetDefault("http.cors_allow_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "agrodash")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "agrodash.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.prefix", "reports")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "agrodash-backend")
	v.SetDefault("telemetry.metrics_interval", 30*time.Second)

	v.SetDefault("projection.normalization_currency", "BRL")
	v.SetDefault("projection.reference_rates", map[string]string{"USD": "5.70"})
	v.SetDefault("projection.currency_aliases", map[string]string{"": "BRL"})
	v.SetDefault("projection.fetch_timeout", 10*time.Second)
	v.SetDefault("projection.cache_ttl", 5*time.Minute)
	v.SetDefault("projection.cache_backend", "memory")
	v.SetDefault("projection.top_creditors", 8)
	v.SetDefault("projection.opening_balance", "0")
	v.SetDefault("projection.minimum_cash", "0")
	v.SetDefault("projection.warm_interval", time.Duration(0))
	v.SetDefault("projection.warm_workers", 2)
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) must be between 0 and database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when the report archive is enabled")
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServer == "" {
		return fmt.Errorf("telemetry.profiling_server is required when profiling is enabled")
	}

	if c.HTTP.RateLimitEnabled && (c.HTTP.RateLimitRequests <= 0 || c.HTTP.RateLimitWindow <= 0) {
		return fmt.Errorf("http.rate_limit_requests and http.rate_limit_window must be positive when rate limiting is enabled")
	}

	p := c.Projection
	if p.NormalizationCurrency == "" {
		return fmt.Errorf("projection.normalization_currency is required")
	}
	for code, rate := range p.ReferenceRates {
		if !rate.IsPositive() {
			return fmt.Errorf("projection.reference_rates.%s must be positive, got %s", code, rate)
		}
	}
	if p.FetchTimeout <= 0 {
		return fmt.Errorf("projection.fetch_timeout must be positive")
	}
	if p.CacheTTL < 0 {
		return fmt.Errorf("projection.cache_ttl cannot be negative")
	}
	if p.CacheBackend != "memory" && p.CacheBackend != "redis" {
		return fmt.Errorf("projection.cache_backend must be memory or redis, got %q", p.CacheBackend)
	}
	if p.TopCreditors <= 0 {
		return fmt.Errorf("projection.top_creditors must be positive")
	}
	if p.WarmInterval < 0 {
		return fmt.Errorf("projection.warm_interval cannot be negative")
	}
	if p.WarmInterval > 0 && p.WarmWorkers <= 0 {
		return fmt.Errorf("projection.warm_workers must be positive when warming is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}
	return nil
}

// DSN returns the postgres connection string with escaped values
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

// stringMap reads a map from a config file, or from an environment value
// written as "KEY=VALUE,KEY=VALUE". Keys are upper-cased; an empty key is kept.
func stringMap(v *viper.Viper, key string) map[string]string {
	out := map[string]string{}
	if raw, ok := v.Get(key).(string); ok {
		for _, pair := range strings.Split(raw, ",") {
			k, val, found := strings.Cut(pair, "=")
			if !found {
				continue
			}
			out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(val)
		}
		return out
	}
	for k, val := range v.GetStringMapString(key) {
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(val)
	}
	return out
}

func decimalMap(v *viper.Viper, key string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for k, raw := range stringMap(v, key) {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", key, k, err)
		}
		out[k] = d
	}
	return out, nil
}

func decimalValue(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
