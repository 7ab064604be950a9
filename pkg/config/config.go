package config

import "time"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Battery    BatteryConfig    `mapstructure:"battery"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type GatewayConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// MonitorConfig holds the reconciliation cadence. The tolerance and
// freshness values default to the historically observed constants but stay
// configurable because their exact values were never derived from a stated
// requirement.
type MonitorConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	FreshnessWindow  time.Duration `mapstructure:"freshness_window"`
	ElapsedTolerance time.Duration `mapstructure:"elapsed_tolerance"`
	ParkingInterval  time.Duration `mapstructure:"parking_interval"`
	StreamInterval   time.Duration `mapstructure:"stream_interval"`
}

type BatteryConfig struct {
	CapacityKWh float64 `mapstructure:"capacity_kwh"`
}

type AuthConfig struct {
	MaxAuthRetries int           `mapstructure:"max_auth_retries"`
	RedirectDelay  time.Duration `mapstructure:"redirect_delay"`
}

type PaymentConfig struct {
	Provider            string        `mapstructure:"provider"`
	Currency            string        `mapstructure:"currency"`
	ToleranceMinorUnits int64         `mapstructure:"tolerance_minor_units"`
	ReturnURL           string        `mapstructure:"return_url"`
	Stripe              StripeConfig  `mapstructure:"stripe"`
}

type StripeConfig struct {
	SecretKey  string `mapstructure:"secret_key"`
	SuccessURL string `mapstructure:"success_url"`
	CancelURL  string `mapstructure:"cancel_url"`
}

type StoreConfig struct {
	Backend string        `mapstructure:"backend"` // "redis" or "local"
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// QueueConfig selects the lifecycle-event broker. Backend "none" swaps in a
// no-op publisher so the engine runs without a broker at all.
type QueueConfig struct {
	Backend  string         `mapstructure:"backend"` // "nats", "rabbitmq" or "none"
	NATS     NATSConfig     `mapstructure:"nats"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type RabbitMQConfig struct {
	URL string `mapstructure:"url"`
}

// VaultConfig is optional; when an address is set, database and payment
// secrets are pulled from Vault instead of the environment.
type VaultConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
