package exchange

import (
	"context"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// SettleAsset is the settle currency for USDⓈ-M perpetual contracts.
	SettleAsset = "USDT"
)

// Service interfaces for mocking the Binance futures API

// ExchangeInfoService interface for fetching instrument metadata. The
// futures endpoint has no symbol filter; it returns the whole exchange and
// the gateway picks the symbol locally.
type ExchangeInfoService interface {
	Do(ctx context.Context) (*futures.ExchangeInfo, error)
}

// BalanceService interface for fetching account balances.
type BalanceService interface {
	Do(ctx context.Context) ([]*futures.Balance, error)
}

// ListPricesService interface for fetching last traded prices.
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*futures.SymbolPrice, error)
}

// PositionRiskService interface for fetching position state.
type PositionRiskService interface {
	Symbol(symbol string) PositionRiskService
	Do(ctx context.Context) ([]*futures.PositionRisk, error)
}

// ChangeLeverageService interface for setting symbol leverage.
type ChangeLeverageService interface {
	Symbol(symbol string) ChangeLeverageService
	Leverage(leverage int) ChangeLeverageService
	Do(ctx context.Context) (*futures.SymbolLeverage, error)
}

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side futures.SideType) CreateOrderService
	Type(orderType futures.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	StopPrice(price string) CreateOrderService
	TimeInForce(tif futures.TimeInForceType) CreateOrderService
	ReduceOnly(reduceOnly bool) CreateOrderService
	ClosePosition(closePosition bool) CreateOrderService
	WorkingType(workingType futures.WorkingType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*futures.CreateOrderResponse, error)
}

// FuturesClient interface abstracts the Binance futures client for testing.
type FuturesClient interface {
	NewExchangeInfoService() ExchangeInfoService
	NewGetBalanceService() BalanceService
	NewListPricesService() ListPricesService
	NewGetPositionRiskService() PositionRiskService
	NewChangeLeverageService() ChangeLeverageService
	NewCreateOrderService() CreateOrderService
}

// realFuturesClient wraps the actual futures.Client.
type realFuturesClient struct {
	client *futures.Client
}

func (r *realFuturesClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

func (r *realFuturesClient) NewGetBalanceService() BalanceService {
	return &realBalanceService{service: r.client.NewGetBalanceService()}
}

func (r *realFuturesClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

func (r *realFuturesClient) NewGetPositionRiskService() PositionRiskService {
	return &realPositionRiskService{service: r.client.NewGetPositionRiskService()}
}

func (r *realFuturesClient) NewChangeLeverageService() ChangeLeverageService {
	return &realChangeLeverageService{service: r.client.NewChangeLeverageService()}
}

func (r *realFuturesClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

// Real service wrappers

type realExchangeInfoService struct {
	service *futures.ExchangeInfoService
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*futures.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

type realBalanceService struct {
	service *futures.GetBalanceService
}

func (s *realBalanceService) Do(ctx context.Context) ([]*futures.Balance, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *futures.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*futures.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realPositionRiskService struct {
	service *futures.GetPositionRiskService
}

func (s *realPositionRiskService) Symbol(symbol string) PositionRiskService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realPositionRiskService) Do(ctx context.Context) ([]*futures.PositionRisk, error) {
	return s.service.Do(ctx)
}

type realChangeLeverageService struct {
	service *futures.ChangeLeverageService
}

func (s *realChangeLeverageService) Symbol(symbol string) ChangeLeverageService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realChangeLeverageService) Leverage(leverage int) ChangeLeverageService {
	s.service = s.service.Leverage(leverage)

	return s
}

func (s *realChangeLeverageService) Do(ctx context.Context) (*futures.SymbolLeverage, error) {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *futures.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side futures.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType futures.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) StopPrice(price string) CreateOrderService {
	s.service = s.service.StopPrice(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif futures.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) ReduceOnly(reduceOnly bool) CreateOrderService {
	s.service = s.service.ReduceOnly(reduceOnly)

	return s
}

func (s *realCreateOrderService) ClosePosition(closePosition bool) CreateOrderService {
	s.service = s.service.ClosePosition(closePosition)

	return s
}

func (s *realCreateOrderService) WorkingType(workingType futures.WorkingType) CreateOrderService {
	s.service = s.service.WorkingType(workingType)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*futures.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

// BinanceGateway implements Gateway against the Binance USDⓈ-M futures API.
// It is stateless - all data is fetched directly from the exchange.
type BinanceGateway struct {
	client      FuturesClient
	settleAsset string
}

// NewBinanceGateway creates a new Binance futures gateway.
// If useTestnet is true, connects to the Binance futures testnet.
// If config.BaseURL is set, it takes precedence over useTestnet.
func NewBinanceGateway(config BinanceGatewayConfig, useTestnet bool) (*BinanceGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if useTestnet {
		futures.UseTestnet = true
	}

	client := futures.NewClient(config.ApiKey, config.SecretKey)

	// Set custom base URL if provided (takes precedence over useTestnet)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceGateway{
		client:      &realFuturesClient{client: client},
		settleAsset: SettleAsset,
	}, nil
}

// newBinanceGatewayWithClient creates a gateway with a custom client.
// This is used for testing with mock clients.
func newBinanceGatewayWithClient(client FuturesClient) *BinanceGateway {
	return &BinanceGateway{
		client:      client,
		settleAsset: SettleAsset,
	}
}

// InstrumentRules fetches the lot size rules for a symbol. Rules are never
// cached; the exchange can change them between orders.
func (b *BinanceGateway) InstrumentRules(ctx context.Context, symbol string) (types.InstrumentRules, error) {
	contract := b.contractSymbol(symbol)

	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return types.InstrumentRules{}, errors.Wrap(errors.ErrCodeExchangeUnavailable, "failed to get exchange info", err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != contract {
			continue
		}

		lotSize := s.LotSizeFilter()
		if lotSize == nil {
			return types.InstrumentRules{}, errors.Newf(errors.ErrCodeInstrumentNotFound,
				"no lot size filter for %s", contract)
		}

		step, parseErr := decimal.NewFromString(lotSize.StepSize)
		if parseErr != nil || !step.IsPositive() {
			return types.InstrumentRules{}, errors.Newf(errors.ErrCodeInstrumentNotFound,
				"invalid quantity step %q for %s", lotSize.StepSize, contract)
		}

		return types.InstrumentRules{
			Symbol:       contract,
			QuantityStep: step,
		}, nil
	}

	return types.InstrumentRules{}, errors.Newf(errors.ErrCodeInstrumentNotFound, "instrument not found: %s", contract)
}

// AvailableBalance returns the available settle-asset balance.
func (b *BinanceGateway) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	balances, err := b.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrCodeExchangeUnavailable, "failed to get account balance", err)
	}

	for _, balance := range balances {
		if balance.Asset != b.settleAsset {
			continue
		}

		available, parseErr := decimal.NewFromString(balance.AvailableBalance)
		if parseErr != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrCodeExchangeUnavailable, parseErr,
				"invalid balance %q for %s", balance.AvailableBalance, balance.Asset)
		}

		return available, nil
	}

	return decimal.Zero, nil
}

// MarketPrice returns the last traded price for a symbol.
func (b *BinanceGateway) MarketPrice(ctx context.Context, symbol string) (float64, error) {
	contract := b.contractSymbol(symbol)

	prices, err := b.client.NewListPricesService().Symbol(contract).Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeExchangeUnavailable, "failed to get market price", err)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeInstrumentNotFound, "no price for %s", contract)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "invalid price %q for %s", prices[0].Price, contract)
	}

	return price, nil
}

// Positions returns all open positions.
func (b *BinanceGateway) Positions(ctx context.Context) ([]types.PositionSnapshot, error) {
	risks, err := b.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeUnavailable, "failed to get positions", err)
	}

	positions := make([]types.PositionSnapshot, 0, len(risks))

	for _, risk := range risks {
		snapshot := convertPositionRisk(risk)
		if snapshot.IsOpen() {
			positions = append(positions, snapshot)
		}
	}

	return positions, nil
}

// Position returns the position for a symbol. A missing position is a
// snapshot with zero size, never an error.
func (b *BinanceGateway) Position(ctx context.Context, symbol string) (types.PositionSnapshot, error) {
	contract := b.contractSymbol(symbol)

	risks, err := b.client.NewGetPositionRiskService().Symbol(contract).Do(ctx)
	if err != nil {
		return types.PositionSnapshot{}, errors.Wrap(errors.ErrCodeExchangeUnavailable, "failed to get position", err)
	}

	for _, risk := range risks {
		snapshot := convertPositionRisk(risk)
		if snapshot.IsOpen() {
			return snapshot, nil
		}
	}

	return types.PositionSnapshot{Symbol: contract, Size: decimal.Zero}, nil
}

// SetLeverage sets the leverage for a symbol. A rejection saying the
// leverage is already at the requested value is success.
func (b *BinanceGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	contract := b.contractSymbol(symbol)

	_, err := b.client.NewChangeLeverageService().
		Symbol(contract).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		if isLeverageNotModified(err) {
			return nil
		}

		return errors.Wrapf(errors.ErrCodeLeverageChangeFailed, err, "failed to set leverage %dx on %s", leverage, contract)
	}

	return nil
}

// PlaceOrder submits a single order and returns the exchange order ID.
func (b *BinanceGateway) PlaceOrder(ctx context.Context, order types.OrderRequest) (string, error) {
	if err := order.Validate(); err != nil {
		return "", err
	}

	side, err := mapSide(order.Side)
	if err != nil {
		return "", err
	}

	orderType, err := mapOrderType(order.Type)
	if err != nil {
		return "", err
	}

	service := b.client.NewCreateOrderService().
		Symbol(b.contractSymbol(order.Symbol)).
		Side(side).
		Type(orderType).
		Quantity(order.Quantity.String())

	// For limit orders, add price and time in force
	if order.Type == types.OrderTypeLimit {
		service = service.
			Price(formatPrice(order.Price.Unwrap())).
			TimeInForce(futures.TimeInForceTypeGTC)
	}

	if order.ReduceOnly {
		service = service.ReduceOnly(true)
	}

	if order.ClientOrderID != "" {
		service = service.NewClientOrderID(order.ClientOrderID)
	}

	res, err := service.Do(ctx)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeOrderRejected, "order rejected by exchange", err)
	}

	return strconv.FormatInt(res.OrderID, 10), nil
}

// AttachStopLoss places a close-position stop-market order. The futures API
// has no order-level stop-loss field on entries, so the protection is a
// separate trigger order covering the whole position.
func (b *BinanceGateway) AttachStopLoss(ctx context.Context, symbol string, positionSide types.Side, stopPrice float64) error {
	side, err := mapSide(positionSide.Opposite())
	if err != nil {
		return err
	}

	_, err = b.client.NewCreateOrderService().
		Symbol(b.contractSymbol(symbol)).
		Side(side).
		Type(futures.OrderTypeStopMarket).
		StopPrice(formatPrice(stopPrice)).
		ClosePosition(true).
		WorkingType(futures.WorkingTypeMarkPrice).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeProtectiveOrderFailed, err, "stop loss at %s rejected", formatPrice(stopPrice))
	}

	return nil
}

// AttachTakeProfit places one reduce-only take-profit leg. The leg triggers
// on the last traded price and fills as a limit at the target.
func (b *BinanceGateway) AttachTakeProfit(ctx context.Context, symbol string, positionSide types.Side, price float64, quantity decimal.Decimal) error {
	side, err := mapSide(positionSide.Opposite())
	if err != nil {
		return err
	}

	_, err = b.client.NewCreateOrderService().
		Symbol(b.contractSymbol(symbol)).
		Side(side).
		Type(futures.OrderTypeTakeProfit).
		Quantity(quantity.String()).
		Price(formatPrice(price)).
		StopPrice(formatPrice(price)).
		TimeInForce(futures.TimeInForceTypeGTC).
		ReduceOnly(true).
		WorkingType(futures.WorkingTypeContractPrice).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeProtectiveOrderFailed, err, "take profit at %s rejected", formatPrice(price))
	}

	return nil
}

// contractSymbol maps a base asset to its USDⓈ-M contract symbol. Symbols
// already carrying the settle suffix pass through unchanged.
func (b *BinanceGateway) contractSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(upper, b.settleAsset) {
		return upper
	}

	return upper + b.settleAsset
}

// Helper functions

func mapSide(side types.Side) (futures.SideType, error) {
	switch side {
	case types.SideBuy:
		return futures.SideTypeBuy, nil
	case types.SideSell:
		return futures.SideTypeSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", side)
	}
}

func mapOrderType(orderType types.OrderType) (futures.OrderType, error) {
	switch orderType {
	case types.OrderTypeMarket:
		return futures.OrderTypeMarket, nil
	case types.OrderTypeLimit:
		return futures.OrderTypeLimit, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order type: %s", orderType)
	}
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// isLeverageNotModified reports whether a leverage rejection means the
// leverage already matches the requested value.
func isLeverageNotModified(err error) bool {
	message := strings.ToLower(err.Error())

	return strings.Contains(message, "not modified") || strings.Contains(message, "no need to change")
}

// convertPositionRisk converts exchange position state to a snapshot.
// Position quantity is signed in one-way mode: negative means short.
func convertPositionRisk(risk *futures.PositionRisk) types.PositionSnapshot {
	amount, err := decimal.NewFromString(risk.PositionAmt)
	if err != nil {
		amount = decimal.Zero
	}

	side := types.SideBuy
	if amount.IsNegative() {
		side = types.SideSell
		amount = amount.Neg()
	}

	entryPrice, _ := strconv.ParseFloat(risk.EntryPrice, 64)
	markPrice, _ := strconv.ParseFloat(risk.MarkPrice, 64)
	unrealized, _ := strconv.ParseFloat(risk.UnRealizedProfit, 64)
	liquidation, _ := strconv.ParseFloat(risk.LiquidationPrice, 64)
	leverage, _ := strconv.Atoi(risk.Leverage)

	return types.PositionSnapshot{
		Symbol:           risk.Symbol,
		Side:             side,
		Size:             amount,
		EntryPrice:       entryPrice,
		MarkPrice:        markPrice,
		UnrealizedPnL:    unrealized,
		LiquidationPrice: liquidation,
		Leverage:         leverage,
	}
}

// Ensure BinanceGateway implements Gateway.
var _ Gateway = (*BinanceGateway)(nil)
