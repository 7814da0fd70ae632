// Package exchange provides the authenticated gateway to the derivatives
// exchange: instrument metadata, balances, prices, position state, and the
// order primitives the orchestrator drives. The exchange remains the sole
// source of truth; every query returns fresh state and nothing is cached
// across calls.
package exchange

import (
	"context"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/shopspring/decimal"
)

// Gateway is the exchange collaborator consumed by the orchestrator and
// sizer. Implementations must be safe for concurrent use; they hold only
// immutable credentials.
type Gateway interface {
	// InstrumentRules returns the quantization rules for a symbol,
	// fetched fresh on every call.
	InstrumentRules(ctx context.Context, symbol string) (types.InstrumentRules, error)
	// AvailableBalance returns the available settle-currency balance.
	AvailableBalance(ctx context.Context) (decimal.Decimal, error)
	// MarketPrice returns the current traded price for a symbol.
	MarketPrice(ctx context.Context, symbol string) (float64, error)
	// Positions returns all open positions.
	Positions(ctx context.Context) ([]types.PositionSnapshot, error)
	// Position returns the position for a symbol. A missing position is
	// reported as a snapshot with zero size, not as an error.
	Position(ctx context.Context, symbol string) (types.PositionSnapshot, error)
	// SetLeverage sets the leverage for a symbol. A rejection meaning
	// "leverage already set" is treated as success.
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// PlaceOrder submits an order and returns the exchange order ID.
	PlaceOrder(ctx context.Context, order types.OrderRequest) (string, error)
	// AttachStopLoss places a close-position stop order protecting the
	// whole position held on positionSide.
	AttachStopLoss(ctx context.Context, symbol string, positionSide types.Side, stopPrice float64) error
	// AttachTakeProfit places one reduce-only take-profit leg against the
	// position held on positionSide.
	AttachTakeProfit(ctx context.Context, symbol string, positionSide types.Side, price float64, quantity decimal.Decimal) error
}
