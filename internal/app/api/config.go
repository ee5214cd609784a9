package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.temporal.io/sdk/client"
)

// Audit sink names accepted by AUDIT_SINK. Several may be combined with commas.
const (
	AuditSinkLog      = "log"
	AuditSinkPostgres = "postgres"
	AuditSinkKafka    = "kafka"
	AuditSinkRabbitMQ = "rabbitmq"
	AuditSinkTemporal = "temporal"
)

// Config carries environment-driven settings for the API process and its helpers.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	PostgresDSN          string `mapstructure:"POSTGRES_DSN"`
	PostgresMaxOpenConns int    `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	PostgresMaxIdleConns int    `mapstructure:"POSTGRES_MAX_IDLE_CONNS"`

	RedisAddr string `mapstructure:"REDIS_ADDR"`

	KafkaBrokers    []string `mapstructure:"KAFKA_BROKERS"`
	KafkaAuditTopic string   `mapstructure:"KAFKA_AUDIT_TOPIC"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`

	AuditSinks []string `mapstructure:"AUDIT_SINK"`

	TemporalAddress   string `mapstructure:"TEMPORAL_ADDRESS"`
	TemporalNamespace string `mapstructure:"TEMPORAL_NAMESPACE"`
	TemporalDisabled  bool   `mapstructure:"TEMPORAL_DISABLED"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	BootstrapAdminID string `mapstructure:"BOOTSTRAP_ADMIN_ID"`

	IdempotencyTTLHours             int `mapstructure:"IDEMPOTENCY_TTL_HOURS"`
	IdempotencyPurgeIntervalMinutes int `mapstructure:"IDEMPOTENCY_PURGE_INTERVAL_MINUTES"`
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("POSTGRES_MAX_OPEN_CONNS", 20)
	v.SetDefault("POSTGRES_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ADDR", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_AUDIT_TOPIC", "retail-ops.audit")

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "retail-ops.audit")

	v.SetDefault("AUDIT_SINK", AuditSinkLog)

	v.SetDefault("TEMPORAL_ADDRESS", client.DefaultHostPort)
	v.SetDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace)
	v.SetDefault("TEMPORAL_DISABLED", false)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BOOTSTRAP_ADMIN_ID", "admin")

	v.SetDefault("IDEMPOTENCY_TTL_HOURS", 24)
	v.SetDefault("IDEMPOTENCY_PURGE_INTERVAL_MINUTES", 0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.KafkaBrokers = normalizeList(cfg.KafkaBrokers, false)
	cfg.AuditSinks = normalizeList(cfg.AuditSinks, true)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.IdempotencyTTLHours <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL_HOURS must be a positive integer")
	}
	if c.IdempotencyPurgeIntervalMinutes < 0 {
		return fmt.Errorf("IDEMPOTENCY_PURGE_INTERVAL_MINUTES must not be negative")
	}
	if strings.TrimSpace(c.BootstrapAdminID) == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_ID must not be empty")
	}
	for _, sink := range c.AuditSinks {
		switch sink {
		case AuditSinkLog, AuditSinkPostgres:
		case AuditSinkKafka:
			if len(c.KafkaBrokers) == 0 {
				return fmt.Errorf("AUDIT_SINK=kafka requires KAFKA_BROKERS")
			}
		case AuditSinkRabbitMQ:
			if strings.TrimSpace(c.RabbitMQURL) == "" {
				return fmt.Errorf("AUDIT_SINK=rabbitmq requires RABBITMQ_URL")
			}
		case AuditSinkTemporal:
			if c.TemporalDisabled {
				return fmt.Errorf("AUDIT_SINK=temporal conflicts with TEMPORAL_DISABLED")
			}
		default:
			return fmt.Errorf("unknown AUDIT_SINK %q", sink)
		}
	}
	return nil
}

// IdempotencyTTL is how long idempotency keys are honoured.
func (c Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLHours) * time.Hour
}

// HasAuditSink reports whether name was selected in AUDIT_SINK.
func (c Config) HasAuditSink(name string) bool {
	for _, sink := range c.AuditSinks {
		if sink == name {
			return true
		}
	}
	return false
}

func normalizeList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(value)
		}
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
