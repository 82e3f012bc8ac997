package mapper

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/mapkit/errors"
	"github.com/kbukum/mapkit/validation"
)

// Config declares mapping bounds in configuration rather than code, for
// callers that tune concurrency per environment. Zero values mean
// Unlimited.
type Config struct {
	Concurrency    int  `yaml:"concurrency" mapstructure:"concurrency" validate:"omitempty,gte=1"`
	Backpressure   int  `yaml:"backpressure" mapstructure:"backpressure" validate:"omitempty,gtecsfield=Concurrency"`
	CollectErrors  bool `yaml:"collect_errors" mapstructure:"collect_errors"`
	CancelInFlight bool `yaml:"cancel_in_flight" mapstructure:"cancel_in_flight"`
}

// ApplyDefaults fills unset fields. Backpressure defaults to the
// concurrency bound.
func (c *Config) ApplyDefaults() {
	if c.Backpressure == 0 {
		c.Backpressure = c.Concurrency
	}
}

// Validate checks the configured bounds.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return errors.OutOfRange("concurrency", "a positive integer or zero", c.Concurrency)
	}
	if c.Backpressure < 0 {
		return errors.OutOfRange("backpressure", "a positive integer or zero", c.Backpressure)
	}
	return validation.Validate(c)
}

// Options converts the configuration into invocation options.
func (c *Config) Options() []Option {
	opts := []Option{WithConcurrency(c.Concurrency)}
	if c.Backpressure != Unlimited {
		opts = append(opts, WithBackpressure(c.Backpressure))
	}
	if c.CollectErrors {
		opts = append(opts, WithCollectErrors())
	}
	if c.CancelInFlight {
		opts = append(opts, WithCancelInFlight())
	}
	return opts
}

// LoadConfig reads mapper configuration from an optional YAML file, a
// .env file when present, and MAPPER_* environment variables, in
// increasing precedence. Pass an empty path to skip the YAML file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"concurrency", "backpressure", "collect_errors", "cancel_in_flight"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Internal(err).WithDetail("key", key)
		}
	}

	if _, statErr := os.Stat(".env"); statErr == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Internal(err).WithDetail("file", ".env")
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Internal(err).WithDetail("file", configFile)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Internal(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFromEnv reads mapper configuration from MAPPER_* environment
// variables and an optional .env file only.
func ConfigFromEnv() (*Config, error) {
	return LoadConfig("")
}
