// Package config loads the platform's configuration from a YAML file,
// environment variables, and an optional .env file, in that precedence
// order (env overrides YAML; .env only seeds process env that isn't
// already set).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration object for the compliance platform.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Store          StoreConfig          `yaml:"store"`
	Orchestrator   OrchestratorConfig   `yaml:"orchestrator"`
	RuleEngine     RuleEngineConfig     `yaml:"rule_engine"`
	Translator     TranslatorConfig     `yaml:"translator"`
	WSFabric       WSFabricConfig       `yaml:"ws_fabric"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ErrorHandling  ErrorHandlingConfig  `yaml:"error_handling"`
}

// ServerConfig controls the HTTP/WS listener.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// StoreConfig controls the Store Gateway collaborator.
type StoreConfig struct {
	Kind           string        `yaml:"kind" env:"STORE_KIND"`
	DSN            string        `yaml:"dsn" env:"STORE_DSN"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"STORE_REQUEST_TIMEOUT"`
}

// OrchestratorConfig controls the Agent Orchestrator.
type OrchestratorConfig struct {
	QueueCapacity      int           `yaml:"queue_capacity" env:"ORCH_QUEUE_CAPACITY"`
	WorkerCount        int           `yaml:"worker_count" env:"ORCH_WORKER_COUNT"`
	TaskTimeout        time.Duration `yaml:"task_timeout" env:"ORCH_TASK_TIMEOUT"`
	HealthCheckCron    string        `yaml:"health_check_cron" env:"ORCH_HEALTH_CHECK_CRON"`
	StaleAgentAfter    time.Duration `yaml:"stale_agent_after" env:"ORCH_STALE_AGENT_AFTER"`
}

// RuleEngineConfig controls the Rule Execution Engine.
type RuleEngineConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"RULES_DEFAULT_TIMEOUT"`
	MaxConcurrency int           `yaml:"max_concurrency" env:"RULES_MAX_CONCURRENCY"`
	ReloadOnChange bool          `yaml:"reload_on_change" env:"RULES_RELOAD_ON_CHANGE"`
	// ReloadCron is the robfig/cron spec StartAutoReload runs on when
	// ReloadOnChange is true. Empty disables the scheduler even if
	// ReloadOnChange is set.
	ReloadCron string `yaml:"reload_cron" env:"RULES_RELOAD_CRON"`
}

// TranslatorConfig controls the Protocol Translation Engine.
type TranslatorConfig struct {
	DefaultProtocol  string        `yaml:"default_protocol" env:"TRANSLATOR_DEFAULT_PROTOCOL"`
	MaxBatchSize     int           `yaml:"max_batch_size" env:"TRANSLATOR_MAX_BATCH_SIZE"`
	TranslateTimeout time.Duration `yaml:"translate_timeout" env:"TRANSLATOR_TIMEOUT"`
	ValidateSchema   bool          `yaml:"validate_schema" env:"TRANSLATOR_VALIDATE_SCHEMA"`
}

// ErrorHandlingConfig controls how apierrors renders and retains errors:
// the code catalog is fixed in internal/apierrors, but severity mapping,
// localized message templates, and retention are operator-tunable.
type ErrorHandlingConfig struct {
	DefaultLocale     string            `yaml:"default_locale" env:"ERROR_DEFAULT_LOCALE"`
	RetentionDays     int               `yaml:"retention_days" env:"ERROR_RETENTION_DAYS"`
	SeverityOverrides map[string]string `yaml:"severity_overrides"`
}

// WSFabricConfig controls the WebSocket Fabric.
type WSFabricConfig struct {
	HeartbeatCron      string        `yaml:"heartbeat_cron" env:"WS_HEARTBEAT_CRON"`
	OutboundQueueSize  int           `yaml:"outbound_queue_size" env:"WS_OUTBOUND_QUEUE_SIZE"`
	WriteTimeout       time.Duration `yaml:"write_timeout" env:"WS_WRITE_TIMEOUT"`
}

// RateLimitConfig controls the REST rate limiter.
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window" env:"RATE_LIMIT_REQUESTS"`
	Window            time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
}

// Default returns the platform's baked-in defaults, used as the starting
// point before YAML and env overrides are layered on.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Store: StoreConfig{
			Kind:           "memory",
			RequestTimeout: 5 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			QueueCapacity:   1000,
			WorkerCount:     8,
			TaskTimeout:     30 * time.Second,
			HealthCheckCron: "*/5 * * * *",
			StaleAgentAfter: 2 * time.Minute,
		},
		RuleEngine: RuleEngineConfig{
			DefaultTimeout: 5 * time.Second,
			MaxConcurrency: 16,
			ReloadOnChange: true,
			ReloadCron:     "*/2 * * * *",
		},
		Translator: TranslatorConfig{
			DefaultProtocol:  "JSON",
			MaxBatchSize:     100,
			TranslateTimeout: 5 * time.Second,
			ValidateSchema:   true,
		},
		WSFabric: WSFabricConfig{
			HeartbeatCron:     "*/1 * * * *",
			OutboundQueueSize: 256,
			WriteTimeout:      5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 60,
			Window:            time.Minute,
		},
		ErrorHandling: ErrorHandlingConfig{
			DefaultLocale: "en-US",
			RetentionDays: 90,
		},
	}
}

// Load builds a Config by layering, lowest precedence first: the baked-in
// Default, a YAML file at path (if non-empty and present), a .env file in
// the working directory (if present, seeding process env without
// overwriting anything already set), and finally process environment
// variables decoded via struct tags.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, fmt.Errorf("config: decode env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports a configuration error if any field is out of range.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Orchestrator.WorkerCount <= 0 {
		return fmt.Errorf("config: orchestrator.worker_count must be positive")
	}
	if c.Orchestrator.QueueCapacity <= 0 {
		return fmt.Errorf("config: orchestrator.queue_capacity must be positive")
	}
	if c.RuleEngine.MaxConcurrency <= 0 {
		return fmt.Errorf("config: rule_engine.max_concurrency must be positive")
	}
	switch strings.ToLower(c.Store.Kind) {
	case "memory", "postgres", "mysql":
	default:
		return fmt.Errorf("config: store.kind %q unrecognized", c.Store.Kind)
	}
	return nil
}

// Addr returns the host:port the server should bind.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
