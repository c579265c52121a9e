package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/provider-dispatcher/internal/strategy"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type RegistryConfig struct {
	Capacity      int    `mapstructure:"capacity"`
	ProbeInterval string `mapstructure:"probe_interval"`
}

type BalancerConfig struct {
	Strategy            string `mapstructure:"strategy"`
	PerProviderCapacity int    `mapstructure:"per_provider_capacity"`
	// Workers sizes the provider call pool; 0 means capacity times
	// per-provider capacity, which is also the smallest accepted value.
	Workers int `mapstructure:"workers"`
}

type SyntheticConfig struct {
	Count       int     `mapstructure:"count"`
	SuccessRate float64 `mapstructure:"success_rate"`
	Latency     string  `mapstructure:"latency"`
}

type HTTPProviderConfig struct {
	URL string `mapstructure:"url"`
}

type ProvidersConfig struct {
	Synthetic SyntheticConfig      `mapstructure:"synthetic"`
	HTTP      []HTTPProviderConfig `mapstructure:"http"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Balancer  BalancerConfig  `mapstructure:"balancer"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// Load reads config.yaml from ./config or the working directory, applies
// environment overrides (REGISTRY_CAPACITY for registry.capacity) and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("registry.capacity", 10)
	v.SetDefault("registry.probe_interval", "2s")
	v.SetDefault("balancer.strategy", strategy.NameRoundRobin)
	v.SetDefault("balancer.per_provider_capacity", 2)
	v.SetDefault("balancer.workers", 0)
	v.SetDefault("providers.synthetic.count", 5)
	v.SetDefault("providers.synthetic.success_rate", 0.9)
	v.SetDefault("providers.synthetic.latency", "0s")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Registry,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RegistryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RegistryConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Capacity,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&rc.ProbeInterval,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Balancer,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BalancerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BalancerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.Strategy,
						validation.Required,
						validation.In(strategy.NameRoundRobin, strategy.NameRandom),
					),
					validation.Field(&bc.PerProviderCapacity,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.Workers,
						validation.Min(0),
						validation.By(c.validateWorkers),
					),
				)
			}),
		),
		validation.Field(&c.Providers,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProvidersConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProvidersConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Synthetic, validation.By(validateSyntheticConfig)),
					validation.Field(&pc.HTTP, validation.Each(validation.By(validateHTTPProviderConfig))),
				)
			}),
		),
	)
}

// ProbeInterval returns the validated probe interval.
func (c *Config) ProbeInterval() time.Duration {
	d, _ := time.ParseDuration(c.Registry.ProbeInterval)
	return d
}

// SyntheticLatency returns the validated synthetic provider latency.
func (c *Config) SyntheticLatency() time.Duration {
	d, _ := time.ParseDuration(c.Providers.Synthetic.Latency)
	return d
}

// validateWorkers rejects pools smaller than the admission limit, which
// would leave admitted dispatches waiting for a worker.
func (c *Config) validateWorkers(value interface{}) error {
	workers, ok := value.(int)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an int")
	}

	limit := c.Registry.Capacity * c.Balancer.PerProviderCapacity
	if workers != 0 && workers < limit {
		return validation.NewError("validation_workers_below_limit",
			fmt.Sprintf("must be 0 or at least registry capacity times per-provider capacity (%d)", limit))
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	if err := validateDuration(value); err != nil {
		return err
	}

	if d, _ := time.ParseDuration(value.(string)); d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be greater than zero")
	}

	return nil
}

func validateSyntheticConfig(value interface{}) error {
	sc, ok := value.(SyntheticConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a SyntheticConfig")
	}

	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Count, validation.Min(0)),
		validation.Field(&sc.SuccessRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&sc.Latency, validation.By(validateDuration)),
	)
}

func validateHTTPProviderConfig(value interface{}) error {
	provider, ok := value.(HTTPProviderConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a HTTPProviderConfig")
	}

	if provider.URL == "" {
		return validation.NewError("validation_empty_url", "provider URL cannot be empty")
	}

	parsedURL, err := url.Parse(provider.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
