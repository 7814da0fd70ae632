package executor

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/journal"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// mockGateway is a hand-written Gateway with per-call function hooks and
// call recording.
type mockGateway struct {
	instrumentRulesFunc  func(ctx context.Context, symbol string) (types.InstrumentRules, error)
	availableBalanceFunc func(ctx context.Context) (decimal.Decimal, error)
	marketPriceFunc      func(ctx context.Context, symbol string) (float64, error)
	positionsFunc        func(ctx context.Context) ([]types.PositionSnapshot, error)
	positionFunc         func(ctx context.Context, symbol string) (types.PositionSnapshot, error)
	setLeverageFunc      func(ctx context.Context, symbol string, leverage int) error
	placeOrderFunc       func(ctx context.Context, order types.OrderRequest) (string, error)
	attachStopLossFunc   func(ctx context.Context, symbol string, side types.Side, stopPrice float64) error
	attachTakeProfitFunc func(ctx context.Context, symbol string, side types.Side, price float64, quantity decimal.Decimal) error

	placedOrders     []types.OrderRequest
	stopLossCalls    []float64
	takeProfitCalls  []float64
	takeProfitSizes  []decimal.Decimal
	positionQueries  int
	leverageRequests []int
}

func (m *mockGateway) InstrumentRules(ctx context.Context, symbol string) (types.InstrumentRules, error) {
	if m.instrumentRulesFunc != nil {
		return m.instrumentRulesFunc(ctx, symbol)
	}

	return types.InstrumentRules{Symbol: "BTCUSDT", QuantityStep: decimal.RequireFromString("0.001")}, nil
}

func (m *mockGateway) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	if m.availableBalanceFunc != nil {
		return m.availableBalanceFunc(ctx)
	}

	return decimal.NewFromInt(1000), nil
}

func (m *mockGateway) MarketPrice(ctx context.Context, symbol string) (float64, error) {
	if m.marketPriceFunc != nil {
		return m.marketPriceFunc(ctx, symbol)
	}

	return 50000, nil
}

func (m *mockGateway) Positions(ctx context.Context) ([]types.PositionSnapshot, error) {
	if m.positionsFunc != nil {
		return m.positionsFunc(ctx)
	}

	return nil, nil
}

func (m *mockGateway) Position(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
	m.positionQueries++
	if m.positionFunc != nil {
		return m.positionFunc(ctx, symbol)
	}

	return types.PositionSnapshot{
		Symbol: "BTCUSDT",
		Side:   types.SideBuy,
		Size:   decimal.RequireFromString("0.02"),
	}, nil
}

func (m *mockGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	m.leverageRequests = append(m.leverageRequests, leverage)
	if m.setLeverageFunc != nil {
		return m.setLeverageFunc(ctx, symbol, leverage)
	}

	return nil
}

func (m *mockGateway) PlaceOrder(ctx context.Context, order types.OrderRequest) (string, error) {
	m.placedOrders = append(m.placedOrders, order)
	if m.placeOrderFunc != nil {
		return m.placeOrderFunc(ctx, order)
	}

	return "12345", nil
}

func (m *mockGateway) AttachStopLoss(ctx context.Context, symbol string, side types.Side, stopPrice float64) error {
	m.stopLossCalls = append(m.stopLossCalls, stopPrice)
	if m.attachStopLossFunc != nil {
		return m.attachStopLossFunc(ctx, symbol, side, stopPrice)
	}

	return nil
}

func (m *mockGateway) AttachTakeProfit(ctx context.Context, symbol string, side types.Side, price float64, quantity decimal.Decimal) error {
	m.takeProfitCalls = append(m.takeProfitCalls, price)
	m.takeProfitSizes = append(m.takeProfitSizes, quantity)
	if m.attachTakeProfitFunc != nil {
		return m.attachTakeProfitFunc(ctx, symbol, side, price, quantity)
	}

	return nil
}

type mockRecorder struct {
	entries []journal.Entry
}

func (m *mockRecorder) Record(ctx context.Context, entry journal.Entry) error {
	m.entries = append(m.entries, entry)

	return nil
}

type ExecutorTestSuite struct {
	suite.Suite
	gateway  *mockGateway
	recorder *mockRecorder
	executor *Executor
	ctx      context.Context
}

func (s *ExecutorTestSuite) SetupTest() {
	s.gateway = &mockGateway{}
	s.recorder = &mockRecorder{}
	s.executor = NewExecutor(s.gateway, logger.NewNopLogger(),
		WithConfirmation(3, time.Millisecond),
		WithJournal(s.recorder))
	s.ctx = context.Background()
}

func TestExecutorTestSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

func (s *ExecutorTestSuite) longIntent() types.TradeIntent {
	return types.TradeIntent{
		Direction:   types.DirectionLong,
		Symbol:      "BTC",
		EntryPrice:  0,
		StopPrice:   42800,
		TakeProfits: []float64{44000, 44500, 45000},
	}
}

func (s *ExecutorTestSuite) risk() types.RiskParameters {
	return types.RiskParameters{Leverage: 10, BalancePercentage: 0.1}
}

func (s *ExecutorTestSuite) TestPlaceMarketEntry() {
	report, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().NoError(err)

	s.True(report.Success)
	s.Equal("12345", report.OrderID)
	s.Equal(types.OrderTypeMarket, report.OrderType)
	s.Equal(10, report.Leverage)
	s.Empty(report.LegFailures)
	// balance 1000 * 10% * 10x / 50000 = 0.02
	s.Equal("0.02", report.Quantity.String())
	s.Equal("Market order placed successfully with 10x leverage and 0.02 BTC position size", report.Summary)

	s.Equal([]int{10}, s.gateway.leverageRequests)
	s.Require().Len(s.gateway.placedOrders, 1)
	entry := s.gateway.placedOrders[0]
	s.Equal(types.SideBuy, entry.Side)
	s.Equal(types.OrderTypeMarket, entry.Type)
	s.False(entry.ReduceOnly)
	s.True(entry.Price.IsNone())
	s.NotEmpty(entry.ClientOrderID)

	s.Equal([]float64{42800}, s.gateway.stopLossCalls)
	s.Equal([]float64{44000, 44500, 45000}, s.gateway.takeProfitCalls)

	for _, quantity := range s.gateway.takeProfitSizes {
		// 0.02 / 3 floored to step
		s.Equal("0.006", quantity.String())
	}

	s.Require().Len(s.recorder.entries, 1)
	s.Equal(journal.KindPlacement, s.recorder.entries[0].Kind)
	s.True(s.recorder.entries[0].Success)
}

func (s *ExecutorTestSuite) TestPlaceLimitEntrySkipsConfirmation() {
	intent := s.longIntent()
	intent.EntryPrice = 43000

	report, err := s.executor.Place(s.ctx, intent, s.risk())
	s.Require().NoError(err)

	s.True(report.Success)
	s.Equal(types.OrderTypeLimit, report.OrderType)
	s.Zero(s.gateway.positionQueries)

	s.Require().Len(s.gateway.placedOrders, 1)
	s.Equal(43000.0, s.gateway.placedOrders[0].Price.TakeOr(0))
	s.Contains(report.Summary, "Limit order placed successfully")
}

func (s *ExecutorTestSuite) TestPlaceShortUsesSellSide() {
	intent := types.TradeIntent{
		Direction:   types.DirectionShort,
		Symbol:      "ETH",
		EntryPrice:  0,
		StopPrice:   2100,
		TakeProfits: []float64{1900},
	}
	s.gateway.marketPriceFunc = func(ctx context.Context, symbol string) (float64, error) {
		return 2000, nil
	}
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		return types.PositionSnapshot{Symbol: "ETHUSDT", Side: types.SideSell, Size: decimal.NewFromInt(1)}, nil
	}

	report, err := s.executor.Place(s.ctx, intent, s.risk())
	s.Require().NoError(err)

	s.True(report.Success)
	s.Equal(types.SideSell, s.gateway.placedOrders[0].Side)
}

func (s *ExecutorTestSuite) TestPlaceConfirmationExhausted() {
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		return types.PositionSnapshot{Symbol: "BTCUSDT", Size: decimal.Zero}, nil
	}

	report, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodePositionNotOpened))

	s.False(report.Success)
	s.Equal("12345", report.OrderID)
	s.Equal(3, s.gateway.positionQueries)
	// No protective legs after an unconfirmed entry
	s.Empty(s.gateway.stopLossCalls)
	s.Empty(s.gateway.takeProfitCalls)
}

func (s *ExecutorTestSuite) TestPlaceConfirmationEventuallySucceeds() {
	calls := 0
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		calls++
		if calls < 3 {
			return types.PositionSnapshot{Symbol: "BTCUSDT", Size: decimal.Zero}, nil
		}

		return types.PositionSnapshot{Symbol: "BTCUSDT", Side: types.SideBuy, Size: decimal.RequireFromString("0.02")}, nil
	}

	report, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().NoError(err)
	s.True(report.Success)
	s.Equal(3, calls)
	s.Len(s.gateway.takeProfitCalls, 3)
}

func (s *ExecutorTestSuite) TestPlacePartialLegFailure() {
	s.gateway.attachTakeProfitFunc = func(ctx context.Context, symbol string, side types.Side, price float64, quantity decimal.Decimal) error {
		if price == 44500 {
			return errors.New(errors.ErrCodeProtectiveOrderFailed, "order would trigger immediately")
		}

		return nil
	}

	report, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().NoError(err)

	s.True(report.Success)
	s.Require().Len(report.LegFailures, 1)
	s.Equal(44500.0, report.LegFailures[0].Price)
	s.Contains(report.LegFailures[0].Reason, "order would trigger immediately")
	// All three legs were still attempted
	s.Len(s.gateway.takeProfitCalls, 3)
}

func (s *ExecutorTestSuite) TestPlaceZeroQuantityLegSkipped() {
	// 1000 * 10% * 10x / 50000 = 0.02, split over 3 legs at step 0.01
	// floors each leg to zero.
	s.gateway.instrumentRulesFunc = func(ctx context.Context, symbol string) (types.InstrumentRules, error) {
		return types.InstrumentRules{Symbol: "BTCUSDT", QuantityStep: decimal.RequireFromString("0.01")}, nil
	}

	report, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().NoError(err)

	s.True(report.Success)
	s.Len(report.LegFailures, 3)
	// Zero-size legs never reach the exchange
	s.Empty(s.gateway.takeProfitCalls)
	s.Len(s.gateway.stopLossCalls, 1)
}

func (s *ExecutorTestSuite) TestPlaceLeverageFailureIsFatal() {
	s.gateway.setLeverageFunc = func(ctx context.Context, symbol string, leverage int) error {
		return errors.New(errors.ErrCodeLeverageChangeFailed, "leverage change rejected")
	}

	_, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeLeverageChangeFailed))
	s.Empty(s.gateway.placedOrders)
}

func (s *ExecutorTestSuite) TestPlaceEntryRejectionJournaled() {
	s.gateway.placeOrderFunc = func(ctx context.Context, order types.OrderRequest) (string, error) {
		return "", errors.New(errors.ErrCodeOrderRejected, "insufficient margin")
	}

	_, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeOrderRejected))

	s.Require().Len(s.recorder.entries, 1)
	s.False(s.recorder.entries[0].Success)
	s.Empty(s.gateway.stopLossCalls)
}

func (s *ExecutorTestSuite) TestPlaceBelowMinimumLot() {
	s.gateway.availableBalanceFunc = func(ctx context.Context) (decimal.Decimal, error) {
		return decimal.NewFromFloat(0.5), nil
	}

	_, err := s.executor.Place(s.ctx, s.longIntent(), s.risk())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeBelowMinimumLot))
	s.Empty(s.gateway.placedOrders)
}

func (s *ExecutorTestSuite) TestCloseInvalidPercentage() {
	for _, percentage := range []float64{0, -5, 101} {
		_, err := s.executor.Close(s.ctx, "BTC", percentage)
		s.Require().Error(err)
		s.True(errors.HasCode(err, errors.ErrCodeInvalidPercentage))
	}

	// Validation failures never touch the network
	s.Zero(s.gateway.positionQueries)
}

func (s *ExecutorTestSuite) TestCloseNoActivePosition() {
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		return types.PositionSnapshot{Symbol: "BTCUSDT", Size: decimal.Zero}, nil
	}

	result, err := s.executor.Close(s.ctx, "BTC", 50)
	s.Require().NoError(err)

	s.Equal(types.CloseOutcomeNoPosition, result.Outcome)
	s.False(result.Success())
	s.Contains(result.Message, "no active position")
	s.Empty(s.gateway.placedOrders)
}

func (s *ExecutorTestSuite) TestClosePartialFloorsQuantity() {
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		return types.PositionSnapshot{
			Symbol: "BTCUSDT",
			Side:   types.SideBuy,
			Size:   decimal.RequireFromString("0.025"),
		}, nil
	}

	result, err := s.executor.Close(s.ctx, "BTC", 50)
	s.Require().NoError(err)

	s.Equal(types.CloseOutcomeClosed, result.Outcome)
	s.True(result.Success())

	s.Require().Len(s.gateway.placedOrders, 1)
	order := s.gateway.placedOrders[0]
	// 50% of 0.025 = 0.0125, floored to 0.012
	s.Equal("0.012", order.Quantity.String())
	s.Equal(types.SideSell, order.Side)
	s.True(order.ReduceOnly)
	s.Equal(types.OrderTypeMarket, order.Type)
}

func (s *ExecutorTestSuite) TestCloseShortBuysBack() {
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		return types.PositionSnapshot{
			Symbol: "ETHUSDT",
			Side:   types.SideSell,
			Size:   decimal.NewFromInt(2),
		}, nil
	}

	_, err := s.executor.Close(s.ctx, "ETH", 100)
	s.Require().NoError(err)

	s.Require().Len(s.gateway.placedOrders, 1)
	s.Equal(types.SideBuy, s.gateway.placedOrders[0].Side)
	s.Equal("2", s.gateway.placedOrders[0].Quantity.String())
}

func (s *ExecutorTestSuite) TestCloseBelowMinimumLot() {
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		return types.PositionSnapshot{
			Symbol: "BTCUSDT",
			Side:   types.SideBuy,
			Size:   decimal.RequireFromString("0.001"),
		}, nil
	}

	_, err := s.executor.Close(s.ctx, "BTC", 10)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeBelowMinimumLot))
	s.Empty(s.gateway.placedOrders)
}

func (s *ExecutorTestSuite) TestCloseAllPartitionsOutcomes() {
	s.gateway.positionsFunc = func(ctx context.Context) ([]types.PositionSnapshot, error) {
		return []types.PositionSnapshot{
			{Symbol: "BTCUSDT", Side: types.SideBuy, Size: decimal.RequireFromString("0.02")},
			{Symbol: "ETHUSDT", Side: types.SideSell, Size: decimal.NewFromInt(1)},
		}, nil
	}
	s.gateway.positionFunc = func(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
		if symbol == "BTCUSDT" {
			return types.PositionSnapshot{Symbol: "BTCUSDT", Side: types.SideBuy, Size: decimal.RequireFromString("0.02")}, nil
		}

		return types.PositionSnapshot{Symbol: "ETHUSDT", Side: types.SideSell, Size: decimal.NewFromInt(1)}, nil
	}
	s.gateway.placeOrderFunc = func(ctx context.Context, order types.OrderRequest) (string, error) {
		if order.Symbol == "ETHUSDT" {
			return "", errors.New(errors.ErrCodeOrderRejected, "rejected")
		}

		return "12345", nil
	}

	result, err := s.executor.CloseAll(s.ctx)
	s.Require().NoError(err)

	s.False(result.Success())
	s.Equal([]string{"BTCUSDT"}, result.Closed)
	s.Require().Len(result.Failed, 1)
	s.Equal("ETHUSDT", result.Failed[0].Symbol)
}

func (s *ExecutorTestSuite) TestCloseAllEmpty() {
	result, err := s.executor.CloseAll(s.ctx)
	s.Require().NoError(err)
	s.True(result.Success())
	s.Empty(result.Closed)
	s.Empty(result.Failed)
}
