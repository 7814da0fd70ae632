// Package executor drives the placement and close protocols against the
// exchange gateway. The exchange is the sole source of truth: the executor
// keeps no position state between calls, and the only retry it performs is
// the bounded confirmation poll after a market entry.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/exchange"
	"github.com/rxtech-lab/argo-signal/internal/journal"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/sizing"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultConfirmAttempts = 5
	defaultConfirmDelay    = 2 * time.Second
)

// Recorder receives activity entries for the audit trail. Recording is best
// effort; a failed write is logged and never fails the trading operation.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Executor orchestrates order placement and position closes.
type Executor struct {
	gateway         exchange.Gateway
	journal         Recorder
	log             *logger.Logger
	confirmAttempts int
	confirmDelay    time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfirmation overrides the confirmation poll tuning.
func WithConfirmation(attempts int, delay time.Duration) Option {
	return func(e *Executor) {
		e.confirmAttempts = attempts
		e.confirmDelay = delay
	}
}

// WithJournal attaches an activity recorder.
func WithJournal(recorder Recorder) Option {
	return func(e *Executor) {
		e.journal = recorder
	}
}

// NewExecutor creates an Executor bound to a gateway.
func NewExecutor(gateway exchange.Gateway, log *logger.Logger, opts ...Option) *Executor {
	e := &Executor{
		gateway:         gateway,
		journal:         nil,
		log:             log,
		confirmAttempts: defaultConfirmAttempts,
		confirmDelay:    defaultConfirmDelay,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Place runs the full placement protocol for one trade intent: set leverage,
// size the order, submit the entry, confirm the position for market entries,
// then attach the stop-loss and take-profit legs. Protective-leg failures are
// collected in the report and never roll back the live entry.
func (e *Executor) Place(ctx context.Context, intent types.TradeIntent, risk types.RiskParameters) (types.PlacementReport, error) {
	if err := intent.Validate(); err != nil {
		return types.PlacementReport{}, err
	}

	rules, err := e.gateway.InstrumentRules(ctx, intent.Symbol)
	if err != nil {
		return types.PlacementReport{}, err
	}

	if err := e.gateway.SetLeverage(ctx, intent.Symbol, risk.Leverage); err != nil {
		return types.PlacementReport{}, err
	}

	balance, err := e.gateway.AvailableBalance(ctx)
	if err != nil {
		return types.PlacementReport{}, err
	}

	// The market-price sentinel resolves to a price for sizing only; the
	// entry order itself stays a market order.
	sizingPrice := intent.EntryPrice
	if intent.IsMarket() {
		sizingPrice, err = e.gateway.MarketPrice(ctx, intent.Symbol)
		if err != nil {
			return types.PlacementReport{}, err
		}
	}

	sized, err := sizing.Size(sizingPrice, balance, risk, rules, len(intent.TakeProfits))
	if err != nil {
		return types.PlacementReport{}, err
	}

	order := types.OrderRequest{
		Symbol:        intent.Symbol,
		Side:          intent.Side(),
		Type:          types.OrderTypeMarket,
		Quantity:      sized.TotalQuantity,
		Price:         optional.None[float64](),
		ReduceOnly:    false,
		ClientOrderID: uuid.New().String(),
	}
	if !intent.IsMarket() {
		order.Type = types.OrderTypeLimit
		order.Price = optional.Some(intent.EntryPrice)
	}

	orderID, err := e.gateway.PlaceOrder(ctx, order)
	if err != nil {
		e.record(ctx, journal.KindPlacement, order, sizingPrice, false, err.Error())

		return types.PlacementReport{}, err
	}

	e.log.Info("entry order accepted",
		zap.String("symbol", intent.Symbol),
		zap.String("order_id", orderID),
		zap.String("quantity", sized.TotalQuantity.String()),
		zap.String("type", string(order.Type)))
	e.record(ctx, journal.KindPlacement, order, sizingPrice, true, "entry accepted, order id "+orderID)

	report := types.PlacementReport{
		Success:     true,
		Summary:     "",
		OrderID:     orderID,
		Symbol:      intent.Symbol,
		OrderType:   order.Type,
		Quantity:    sized.TotalQuantity,
		Leverage:    risk.Leverage,
		LegFailures: nil,
	}

	// A market entry fills immediately but the position endpoint lags
	// behind it. Protective legs reference the live position, so they must
	// wait for the position to become visible.
	if intent.IsMarket() {
		if err := e.confirmPosition(ctx, intent.Symbol, intent.Side()); err != nil {
			report.Success = false

			return report, err
		}
	}

	report.LegFailures = e.attachProtectiveLegs(ctx, intent, sized)
	report.Summary = e.summarize(intent, order.Type, sized.TotalQuantity, risk.Leverage)

	return report, nil
}

// confirmPosition polls the position endpoint until a position with nonzero
// size appears on the expected side. Exhausting the attempts means the
// position never became visible; no take-profit legs are attempted and the
// entry order is left in place for the operator to inspect.
func (e *Executor) confirmPosition(ctx context.Context, symbol string, side types.Side) error {
	for attempt := 1; attempt <= e.confirmAttempts; attempt++ {
		position, err := e.gateway.Position(ctx, symbol)
		if err != nil {
			return err
		}

		if position.IsOpen() && position.Side == side {
			return nil
		}

		e.log.Debug("position not visible yet",
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt))

		if attempt == e.confirmAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.confirmDelay):
		}
	}

	return errors.Newf(errors.ErrCodePositionNotOpened,
		"position for %s not visible after %d attempts", symbol, e.confirmAttempts)
}

// attachProtectiveLegs places the stop-loss and every take-profit leg,
// collecting failures instead of aborting. The entry is already live; a
// rejected leg leaves the position partially unprotected but never rolls it
// back.
func (e *Executor) attachProtectiveLegs(ctx context.Context, intent types.TradeIntent, sized types.PositionSizing) []types.LegFailure {
	var failures []types.LegFailure

	if intent.StopPrice > 0 {
		if err := e.gateway.AttachStopLoss(ctx, intent.Symbol, intent.Side(), intent.StopPrice); err != nil {
			e.log.Warn("stop-loss rejected",
				zap.String("symbol", intent.Symbol),
				zap.Float64("stop_price", intent.StopPrice),
				zap.Error(err))
			failures = append(failures, types.LegFailure{Price: intent.StopPrice, Reason: err.Error()})
		}
	}

	for i, price := range intent.TakeProfits {
		quantity := sized.PerLeg[i]
		if !quantity.IsPositive() {
			failures = append(failures, types.LegFailure{
				Price:  price,
				Reason: "leg quantity rounds to zero at the instrument step",
			})

			continue
		}

		if err := e.gateway.AttachTakeProfit(ctx, intent.Symbol, intent.Side(), price, quantity); err != nil {
			e.log.Warn("take-profit leg rejected",
				zap.String("symbol", intent.Symbol),
				zap.Float64("price", price),
				zap.Error(err))
			failures = append(failures, types.LegFailure{Price: price, Reason: err.Error()})
		}
	}

	return failures
}

// Close reduces the position on symbol by percentage (0, 100] using a
// reduce-only market order. A missing position is a tagged outcome, not an
// error.
func (e *Executor) Close(ctx context.Context, symbol string, percentage float64) (types.CloseResult, error) {
	if percentage <= 0 || percentage > 100 {
		return types.CloseResult{}, errors.Newf(errors.ErrCodeInvalidPercentage,
			"close percentage must be in (0, 100], got %v", percentage)
	}

	position, err := e.gateway.Position(ctx, symbol)
	if err != nil {
		return types.CloseResult{}, err
	}

	if !position.IsOpen() {
		return types.CloseResult{
			Outcome: types.CloseOutcomeNoPosition,
			Message: fmt.Sprintf("no active position for %s", strings.ToUpper(symbol)),
		}, nil
	}

	rules, err := e.gateway.InstrumentRules(ctx, symbol)
	if err != nil {
		return types.CloseResult{}, err
	}

	closeQuantity := sizing.QuantizeToStep(
		position.Size.Mul(decimal.NewFromFloat(percentage).Div(decimal.NewFromInt(100))),
		rules.QuantityStep)
	if closeQuantity.IsZero() {
		return types.CloseResult{}, errors.Newf(errors.ErrCodeBelowMinimumLot,
			"closing %v%% of %s rounds to zero at step %s", percentage, position.Size, rules.QuantityStep)
	}

	order := types.OrderRequest{
		Symbol:        symbol,
		Side:          position.Side.Opposite(),
		Type:          types.OrderTypeMarket,
		Quantity:      closeQuantity,
		Price:         optional.None[float64](),
		ReduceOnly:    true,
		ClientOrderID: uuid.New().String(),
	}

	orderID, err := e.gateway.PlaceOrder(ctx, order)
	if err != nil {
		e.record(ctx, journal.KindClose, order, position.MarkPrice, false, err.Error())

		return types.CloseResult{}, err
	}

	e.log.Info("close order accepted",
		zap.String("symbol", symbol),
		zap.String("order_id", orderID),
		zap.String("quantity", closeQuantity.String()),
		zap.Float64("percentage", percentage))
	e.record(ctx, journal.KindClose, order, position.MarkPrice, true, "close accepted, order id "+orderID)

	return types.CloseResult{
		Outcome: types.CloseOutcomeClosed,
		Message: fmt.Sprintf("closed %v%% of %s position (%s)", percentage, strings.ToUpper(symbol), closeQuantity),
	}, nil
}

// CloseAll closes 100% of every open position. Each symbol is attempted
// independently; one failure never blocks the rest.
func (e *Executor) CloseAll(ctx context.Context) (types.CloseAllResult, error) {
	positions, err := e.gateway.Positions(ctx)
	if err != nil {
		return types.CloseAllResult{}, err
	}

	result := types.CloseAllResult{
		Closed: nil,
		Failed: nil,
	}

	for _, position := range positions {
		if _, err := e.Close(ctx, position.Symbol, 100); err != nil {
			result.Failed = append(result.Failed, types.SymbolError{
				Symbol: position.Symbol,
				Reason: err.Error(),
			})

			continue
		}

		result.Closed = append(result.Closed, position.Symbol)
	}

	return result, nil
}

func (e *Executor) summarize(intent types.TradeIntent, orderType types.OrderType, quantity decimal.Decimal, leverage int) string {
	kind := "Market"
	if orderType == types.OrderTypeLimit {
		kind = "Limit"
	}

	return fmt.Sprintf("%s order placed successfully with %dx leverage and %s %s position size",
		kind, leverage, quantity, strings.ToUpper(intent.Symbol))
}

func (e *Executor) record(ctx context.Context, kind journal.Kind, order types.OrderRequest, price float64, success bool, detail string) {
	if e.journal == nil {
		return
	}

	entry := journal.Entry{
		ID:        order.ClientOrderID,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Symbol:    strings.ToUpper(order.Symbol),
		Side:      order.Side,
		OrderType: order.Type,
		Quantity:  order.Quantity.String(),
		Price:     order.Price.TakeOr(price),
		Success:   success,
		Detail:    detail,
	}
	if err := e.journal.Record(ctx, entry); err != nil {
		e.log.Warn("failed to journal activity", zap.Error(err))
	}
}
