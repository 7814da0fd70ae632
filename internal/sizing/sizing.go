// Package sizing computes risk-bounded order quantities from account
// balance and instrument quantization rules. All quantity arithmetic uses
// exact decimals; binary floats systematically drift at small quantity
// steps.
package sizing

import (
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

// QuantizeToStep rounds quantity down to an integer multiple of step.
// Rounding is always down so an order can never commit more than the risk
// budget allows. Quantizing an already-aligned quantity returns it
// unchanged.
func QuantizeToStep(quantity, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return decimal.Zero
	}

	return quantity.Div(step).Floor().Mul(step)
}

// SplitAcrossLegs divides total evenly across legs, flooring each leg to
// step independently. The sum of the legs may fall short of total by up to
// (legs-1) steps; the shortfall stays in the position uncovered by any
// take-profit leg rather than being folded into the last one.
func SplitAcrossLegs(total decimal.Decimal, legs int, step decimal.Decimal) []decimal.Decimal {
	perLeg := QuantizeToStep(total.Div(decimal.NewFromInt(int64(legs))), step)

	sizes := make([]decimal.Decimal, legs)
	for i := range sizes {
		sizes[i] = perLeg
	}

	return sizes
}

// Size computes the total order quantity and its per-leg split for one
// placement. entryPrice is the price used for sizing only; for market
// entries the caller passes the current market price.
func Size(entryPrice float64, balance decimal.Decimal, risk types.RiskParameters, rules types.InstrumentRules, legs int) (types.PositionSizing, error) {
	if entryPrice <= 0 {
		return types.PositionSizing{}, errors.New(errors.ErrCodeInvalidParameter, "sizing price must be greater than zero")
	}

	if legs < 1 {
		return types.PositionSizing{}, errors.New(errors.ErrCodeInvalidParameter, "at least one take-profit leg is required")
	}

	if !rules.QuantityStep.IsPositive() {
		return types.PositionSizing{}, errors.Newf(errors.ErrCodeInvalidStep, "invalid quantity step %s for %s", rules.QuantityStep, rules.Symbol)
	}

	positionValue := balance.
		Mul(decimal.NewFromFloat(risk.BalancePercentage)).
		Mul(decimal.NewFromInt(int64(risk.Leverage)))

	rawQuantity := positionValue.Div(decimal.NewFromFloat(entryPrice))

	total := QuantizeToStep(rawQuantity, rules.QuantityStep)
	if total.IsZero() {
		return types.PositionSizing{}, errors.Newf(errors.ErrCodeBelowMinimumLot,
			"quantity %s rounds to zero at step %s", rawQuantity, rules.QuantityStep)
	}

	return types.PositionSizing{
		TotalQuantity: total,
		PerLeg:        SplitAcrossLegs(total, legs, rules.QuantityStep),
	}, nil
}
