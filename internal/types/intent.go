package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// TradeIntent is the typed form of a free-text trading instruction.
// EntryPrice of zero means "enter at the current market price".
type TradeIntent struct {
	Direction  Direction `yaml:"direction" json:"direction" validate:"required,oneof=LONG SHORT"`
	Symbol     string    `yaml:"symbol" json:"symbol" validate:"required"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" validate:"gte=0"`
	StopPrice  float64   `yaml:"stop_price" json:"stop_price" validate:"gte=0"`
	// TakeProfits is ordered: the first price is the closest target by
	// convention, not enforced numerically.
	TakeProfits []float64 `yaml:"take_profits" json:"take_profits" validate:"required,min=1,dive,gt=0"`
}

// Side returns the order side that opens a position in this direction.
func (i TradeIntent) Side() Side {
	if i.Direction == DirectionShort {
		return SideSell
	}

	return SideBuy
}

// IsMarket reports whether the intent uses the market-price sentinel.
func (i TradeIntent) IsMarket() bool {
	return i.EntryPrice == 0
}

// Validate validates the TradeIntent struct.
func (i *TradeIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(i); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInstruction, "invalid trade intent", err)
	}

	return nil
}
