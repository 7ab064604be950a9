package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	viper.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	viper.BindEnv("gateway.base_url", "GATEWAY_URL", "APP_GATEWAY_BASE_URL")
	viper.BindEnv("store.redis.url", "REDIS_URL", "APP_STORE_REDIS_URL")
	viper.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	viper.BindEnv("queue.nats.url", "NATS_URL", "APP_QUEUE_NATS_URL")
	viper.BindEnv("queue.rabbitmq.url", "RABBITMQ_URL", "APP_QUEUE_RABBITMQ_URL")
	viper.BindEnv("payment.stripe.secret_key", "STRIPE_SECRET_KEY")
	viper.BindEnv("vault.address", "VAULT_ADDR", "APP_VAULT_ADDRESS")
	viper.BindEnv("vault.token", "VAULT_TOKEN", "APP_VAULT_TOKEN")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "chargewatch")
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.read_timeout", 10*time.Second)
	viper.SetDefault("http.write_timeout", 10*time.Second)

	viper.SetDefault("gateway.request_timeout", 5*time.Second)
	viper.SetDefault("gateway.breaker.max_requests", 3)
	viper.SetDefault("gateway.breaker.interval", time.Minute)
	viper.SetDefault("gateway.breaker.timeout", 30*time.Second)
	viper.SetDefault("gateway.breaker.failure_threshold", 5)

	viper.SetDefault("monitor.poll_interval", 5*time.Second)
	viper.SetDefault("monitor.tick_interval", 100*time.Millisecond)
	viper.SetDefault("monitor.freshness_window", 3*time.Second)
	viper.SetDefault("monitor.elapsed_tolerance", 2*time.Second)
	viper.SetDefault("monitor.parking_interval", 15*time.Second)
	viper.SetDefault("monitor.stream_interval", time.Second)

	viper.SetDefault("battery.capacity_kwh", 50.0)

	viper.SetDefault("auth.max_auth_retries", 3)
	viper.SetDefault("auth.redirect_delay", 2*time.Second)

	viper.SetDefault("payment.provider", "gateway")
	viper.SetDefault("payment.currency", "inr")
	viper.SetDefault("payment.tolerance_minor_units", 500)

	viper.SetDefault("store.backend", "local")
	viper.SetDefault("store.ttl", 24*time.Hour)
	viper.SetDefault("store.redis.dial_timeout", 5*time.Second)
	viper.SetDefault("store.redis.read_timeout", 3*time.Second)
	viper.SetDefault("store.redis.write_timeout", 3*time.Second)

	viper.SetDefault("database.max_open_conns", 20)
	viper.SetDefault("database.max_idle_conns", 5)

	viper.SetDefault("queue.backend", "none")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("prometheus.enabled", true)
	viper.SetDefault("prometheus.path", "/metrics")
}
