package types

import (
	"github.com/shopspring/decimal"
)

// InstrumentRules carries the per-symbol exchange constraints an order must
// respect. Rules are fetched fresh for every order because the exchange can
// change them.
type InstrumentRules struct {
	Symbol       string          `yaml:"symbol" json:"symbol"`
	QuantityStep decimal.Decimal `yaml:"quantity_step" json:"quantity_step"`
}

// RiskParameters is the operator-configured risk snapshot passed by value
// into every orchestration call.
type RiskParameters struct {
	Leverage          int     `yaml:"leverage" json:"leverage" validate:"required,gte=1,lte=20"`
	BalancePercentage float64 `yaml:"balance_percentage" json:"balance_percentage" validate:"required,gt=0,lte=1"`
}

// PositionSizing is the derived order quantity and its split across
// take-profit legs. Recomputed per order, never cached.
type PositionSizing struct {
	TotalQuantity decimal.Decimal
	PerLeg        []decimal.Decimal
}

// PositionSnapshot is a read-only projection of exchange-reported position
// state. Size is zero when no position exists for the symbol.
type PositionSnapshot struct {
	Symbol           string          `yaml:"symbol" json:"symbol"`
	Side             Side            `yaml:"side" json:"side"`
	Size             decimal.Decimal `yaml:"size" json:"size"`
	EntryPrice       float64         `yaml:"entry_price" json:"entry_price"`
	MarkPrice        float64         `yaml:"mark_price" json:"mark_price"`
	UnrealizedPnL    float64         `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	LiquidationPrice float64         `yaml:"liquidation_price" json:"liquidation_price"`
	Leverage         int             `yaml:"leverage" json:"leverage"`
}

// IsOpen reports whether the snapshot describes a live position.
func (p PositionSnapshot) IsOpen() bool {
	return p.Size.IsPositive()
}

// PositionValue returns the notional value at the entry price.
func (p PositionSnapshot) PositionValue() float64 {
	value, _ := p.Size.Mul(decimal.NewFromFloat(p.EntryPrice)).Float64()

	return value
}

// PnLPercentage returns unrealized PnL relative to the position value.
func (p PositionSnapshot) PnLPercentage() float64 {
	value := p.PositionValue()
	if value == 0 {
		return 0
	}

	return p.UnrealizedPnL / value * 100
}
