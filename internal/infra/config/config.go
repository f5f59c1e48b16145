package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Search    SearchSettings    `mapstructure:"search"`
	SMTP      SMTPSettings      `mapstructure:"smtp"`
	Account   AccountSettings   `mapstructure:"account"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
}

type AppSettings struct {
	Name        string   `mapstructure:"name"`
	Env         string   `mapstructure:"env"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	Schema            string        `mapstructure:"schema"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// DSN renders a postgres connection URL using the given scheme.
func (s PostgresSettings) DSN(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(s.User, s.Password),
		Host:     net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:     "/" + s.Database,
		RawQuery: url.Values{"sslmode": {s.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	TLSEnabled      bool   `mapstructure:"tls_enabled"`
	RateLimitPrefix string `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// SearchSettings configures the Meilisearch user index.
type SearchSettings struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	UserIndex  string        `mapstructure:"user_index"`
	SyncPolicy string        `mapstructure:"sync_policy"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SMTPSettings configures outgoing mail. An empty host selects the logging sender.
type SMTPSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Secure        bool   `mapstructure:"secure"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SenderAddress string `mapstructure:"sender_address"`
	SenderName    string `mapstructure:"sender_name"`
}

// AccountSettings holds behaviour knobs of the account service.
type AccountSettings struct {
	UIURL          string `mapstructure:"ui_url"`
	PictureMaxSize int64  `mapstructure:"picture_max_size"`
	UploadDir      string `mapstructure:"upload_dir"`
}

type JWTSettings struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	DevTTL     time.Duration `mapstructure:"dev_ttl"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration          time.Duration `mapstructure:"window_duration"`
	PasswordMaxAttempts     int           `mapstructure:"password_max_attempts"`
	EmailRequestMaxAttempts int           `mapstructure:"email_request_max_attempts"`
	DropMaxAttempts         int           `mapstructure:"drop_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

var envKeys = []string{
	"app.name",
	"app.env",
	"app.host",
	"app.port",
	"app.cors_origins",
	"app.shutdown_timeout",
	"postgres.host",
	"postgres.port",
	"postgres.user",
	"postgres.password",
	"postgres.database",
	"postgres.ssl_mode",
	"postgres.schema",
	"postgres.auto_migrate",
	"postgres.max_conns",
	"postgres.min_conns",
	"postgres.max_conn_lifetime",
	"postgres.max_conn_idle_time",
	"postgres.health_check_period",
	"redis.host",
	"redis.port",
	"redis.db",
	"redis.password",
	"redis.tls_enabled",
	"redis.rate_limit_prefix",
	"kafka.brokers",
	"kafka.topic_prefix",
	"kafka.async",
	"search.url",
	"search.api_key",
	"search.user_index",
	"search.sync_policy",
	"search.timeout",
	"smtp.host",
	"smtp.port",
	"smtp.secure",
	"smtp.username",
	"smtp.password",
	"smtp.sender_address",
	"smtp.sender_name",
	"account.ui_url",
	"account.picture_max_size",
	"account.upload_dir",
	"jwt.signing_key",
	"jwt.issuer",
	"jwt.audience",
	"jwt.dev_ttl",
	"telemetry.otlp_endpoint",
	"telemetry.service_name",
	"telemetry.sampling_rate",
	"rate_limit.window_duration",
	"rate_limit.password_max_attempts",
	"rate_limit.email_request_max_attempts",
	"rate_limit.drop_max_attempts",
	"argon2.memory",
	"argon2.iterations",
	"argon2.parallelism",
	"argon2.salt_length",
	"argon2.key_length",
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ACCOUNT")

	setDefaults(v)

	if err := bindEnvs(v, envKeys); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Search.SyncPolicy {
	case "strict", "lenient":
	default:
		return fmt.Errorf("config: search.sync_policy must be strict or lenient, got %q", c.Search.SyncPolicy)
	}
	if c.App.Env == "production" && c.JWT.SigningKey == "" {
		return fmt.Errorf("config: jwt.signing_key is required in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "account-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8081)
	v.SetDefault("app.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("app.shutdown_timeout", "15s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "idp")
	v.SetDefault("postgres.password", "idp_password")
	v.SetDefault("postgres.database", "idp")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.schema", "idp")
	v.SetDefault("postgres.auto_migrate", true)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.rate_limit_prefix", "account:rate-limit")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "")
	v.SetDefault("kafka.async", true)

	v.SetDefault("search.url", "http://127.0.0.1:7700")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.user_index", "user")
	v.SetDefault("search.sync_policy", "strict")
	v.SetDefault("search.timeout", "5s")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.secure", false)
	v.SetDefault("smtp.sender_address", "no-reply@localhost")
	v.SetDefault("smtp.sender_name", "Account Service")

	v.SetDefault("account.ui_url", "http://localhost:3000")
	v.SetDefault("account.picture_max_size", 3*1024*1024)
	v.SetDefault("account.upload_dir", "")

	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.issuer", "localhost")
	v.SetDefault("jwt.audience", "localhost")
	v.SetDefault("jwt.dev_ttl", "1h")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "account-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "15m")
	v.SetDefault("rate_limit.password_max_attempts", 5)
	v.SetDefault("rate_limit.email_request_max_attempts", 5)
	v.SetDefault("rate_limit.drop_max_attempts", 5)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ACCOUNT_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
