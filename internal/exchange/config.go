package exchange

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// BinanceGatewayConfig contains credentials for the Binance futures API.
type BinanceGatewayConfig struct {
	ApiKey    string `json:"apiKey" yaml:"api_key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" validate:"required"`
	// BaseURL overrides the endpoint selected by the testnet flag.
	BaseURL string `json:"baseUrl" yaml:"base_url"`
}

// Validate validates the BinanceGatewayConfig struct.
func (c *BinanceGatewayConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeMissingCredentials, "invalid binance gateway config", err)
	}

	return nil
}
