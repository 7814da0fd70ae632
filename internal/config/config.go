// Package config loads the operator configuration: the target environment,
// the risk parameters applied to every placement, and the API credentials
// for the selected environment.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Environment string

const (
	EnvironmentTestnet Environment = "testnet"
	EnvironmentMainnet Environment = "mainnet"
)

const (
	defaultLeverage          = 5
	defaultBalancePercentage = 0.1
)

// Config is the operator configuration file.
type Config struct {
	Environment Environment          `yaml:"environment" validate:"required,oneof=testnet mainnet"`
	Trading     types.RiskParameters `yaml:"trading" validate:"required"`
}

// Credentials holds the API key pair for one environment.
type Credentials struct {
	ApiKey    string `validate:"required"`
	SecretKey string `validate:"required"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() Config {
	return Config{
		Environment: EnvironmentTestnet,
		Trading: types.RiskParameters{
			Leverage:          defaultLeverage,
			BalancePercentage: defaultBalancePercentage,
		},
	}
}

// LoadConfig reads a YAML config from path. An empty path returns the
// defaults. Fields missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

// IsTestnet reports whether the configuration targets the testnet.
func (c *Config) IsTestnet() bool {
	return c.Environment == EnvironmentTestnet
}

// LoadEnv loads environment variables from a .env file if one exists.
// A missing file is not an error; variables may come from the process
// environment instead.
func LoadEnv(path string) {
	_ = godotenv.Load(path)
}

// LoadCredentials reads the API key pair for the configured environment
// from the environment variables TESTNET_API_KEY/TESTNET_SECRET_KEY or
// MAINNET_API_KEY/MAINNET_SECRET_KEY.
func (c *Config) LoadCredentials() (Credentials, error) {
	prefix := "MAINNET"
	if c.IsTestnet() {
		prefix = "TESTNET"
	}

	credentials := Credentials{
		ApiKey:    os.Getenv(prefix + "_API_KEY"),
		SecretKey: os.Getenv(prefix + "_SECRET_KEY"),
	}

	validate := validator.New()
	if err := validate.Struct(&credentials); err != nil {
		return Credentials{}, errors.Wrapf(errors.ErrCodeMissingCredentials, err,
			"missing %s_API_KEY or %s_SECRET_KEY", prefix, prefix)
	}

	return credentials, nil
}
