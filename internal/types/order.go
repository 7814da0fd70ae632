package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Opposite returns the side that reduces a position held on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}

	return SideBuy
}

// OrderRequest describes a single order submitted through the gateway.
// Price must be present for limit orders and absent for market orders.
type OrderRequest struct {
	Symbol        string                   `yaml:"symbol" json:"symbol" validate:"required"`
	Side          Side                     `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type          OrderType                `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT"`
	Quantity      decimal.Decimal          `yaml:"quantity" json:"quantity"`
	Price         optional.Option[float64] `yaml:"price" json:"price"`
	ReduceOnly    bool                     `yaml:"reduce_only" json:"reduce_only"`
	ClientOrderID string                   `yaml:"client_order_id" json:"client_order_id"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order request", err)
	}

	if !r.Quantity.IsPositive() {
		return errors.New(errors.ErrCodeInvalidParameter, "order quantity must be greater than zero")
	}

	if r.Type == OrderTypeLimit && r.Price.IsNone() {
		return errors.New(errors.ErrCodeInvalidParameter, "limit order requires a price")
	}

	return nil
}
