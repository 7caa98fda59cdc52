package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App         AppSettings        `mapstructure:"app"`
	Postgres    PostgresSettings   `mapstructure:"postgres"`
	Redis       RedisSettings      `mapstructure:"redis"`
	Kafka       KafkaSettings      `mapstructure:"kafka"`
	WebAuthn    WebAuthnSettings   `mapstructure:"webauthn"`
	Session     SessionSettings    `mapstructure:"session"`
	BackupCodes BackupCodeSettings `mapstructure:"backup_codes"`
	Argon2      Argon2Settings     `mapstructure:"argon2"`
	RateLimit   RateLimitSettings  `mapstructure:"rate_limit"`
	Telemetry   TelemetrySettings  `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	MigrateOnStart    bool          `mapstructure:"migrate_on_start"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// WebAuthnSettings configures relying party identity and ceremony limits.
// RPID and Origins are fallbacks for deployments behind a fixed hostname;
// when OriginFromRequest is true the relying party is derived from each
// request's Origin header instead.
type WebAuthnSettings struct {
	RPDisplayName     string        `mapstructure:"rp_display_name"`
	RPID              string        `mapstructure:"rp_id"`
	Origins           []string      `mapstructure:"origins"`
	OriginFromRequest bool          `mapstructure:"origin_from_request"`
	ChallengeTTL      time.Duration `mapstructure:"challenge_ttl"`
}

// SessionSettings configures the browser session cookie.
type SessionSettings struct {
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	Secure     bool          `mapstructure:"secure"`
}

// BackupCodeSettings controls recovery code issuance.
type BackupCodeSettings struct {
	Count   int `mapstructure:"count"`
	ByteLen int `mapstructure:"byte_len"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	Enabled             bool          `mapstructure:"enabled"`
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	SigninMaxAttempts   int           `mapstructure:"signin_max_attempts"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
	BackupMaxAttempts   int           `mapstructure:"backup_max_attempts"`
}

// Argon2Settings configures Argon2id hashing parameters for backup codes
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type TelemetrySettings struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("BONFIRE")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.migrate_on_start",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"webauthn.rp_display_name",
		"webauthn.rp_id",
		"webauthn.origins",
		"webauthn.origin_from_request",
		"webauthn.challenge_ttl",
		"session.cookie_name",
		"session.ttl",
		"session.secure",
		"backup_codes.count",
		"backup_codes.byte_len",
		"rate_limit.enabled",
		"rate_limit.window_duration",
		"rate_limit.signin_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.backup_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"telemetry.metrics_enabled",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bonfire")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "bonfire")
	v.SetDefault("postgres.password", "bonfire_password")
	v.SetDefault("postgres.database", "bonfire")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.migrate_on_start", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "bonfire")
	v.SetDefault("kafka.async", true)

	v.SetDefault("webauthn.rp_display_name", "Bonfire")
	v.SetDefault("webauthn.rp_id", "localhost")
	v.SetDefault("webauthn.origins", []string{"http://localhost:8080"})
	v.SetDefault("webauthn.origin_from_request", true)
	v.SetDefault("webauthn.challenge_ttl", "5m")

	v.SetDefault("session.cookie_name", "bonfire_session")
	v.SetDefault("session.ttl", "720h") // 30 days
	v.SetDefault("session.secure", false)

	v.SetDefault("backup_codes.count", 10)
	v.SetDefault("backup_codes.byte_len", 4)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.signin_max_attempts", 10)
	v.SetDefault("rate_limit.register_max_attempts", 5)
	v.SetDefault("rate_limit.backup_max_attempts", 5)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("telemetry.metrics_enabled", true)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "BONFIRE_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
