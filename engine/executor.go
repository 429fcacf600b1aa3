package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/amhaddad/okxbot/position"
	"github.com/amhaddad/okxbot/shared"
	"github.com/rs/zerolog"
)

const (
	// swingLowFetchLimit is the number of candles fetched for the swing low.
	swingLowFetchLimit = 20
	// swingLowWindow is the trailing window anchoring the stop loss, ending
	// at the second-to-last candle.
	swingLowWindow = 10
	// rewardRiskRatio is the fixed take profit multiple of the risked range.
	rewardRiskRatio = 2
)

// ErrStateDesync marks a live exchange position the store failed to track.
// Errors wrapping it mean an order was filled but never persisted, callers
// must alert loudly.
var ErrStateDesync = errors.New("live position is not tracked by the store")

// ExecutorConfig represents the trade executor configuration.
type ExecutorConfig struct {
	// Exchange represents the market exchange client.
	Exchange shared.ExchangeClient
	// Store represents the position store.
	Store *position.Store
	// Timeframe is the candle interval token used for the swing low.
	Timeframe string
	// TradeAmountUSDT is the quote currency amount committed per trade.
	TradeAmountUSDT float64
	// MaxOpenPositions caps the number of concurrently open positions.
	MaxOpenPositions int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ExecutorConfig) Validate() error {
	var errs error

	if cfg.Exchange == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("position store cannot be nil"))
	}
	if cfg.Timeframe == "" {
		errs = errors.Join(errs, fmt.Errorf("timeframe cannot be an empty string"))
	}
	if cfg.TradeAmountUSDT <= 0 {
		errs = errors.Join(errs, fmt.Errorf("trade amount must be positive, got %f", cfg.TradeAmountUSDT))
	}
	if cfg.MaxOpenPositions <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max open positions must be positive, got %d", cfg.MaxOpenPositions))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Executor opens positions for symbols with confirmed entry signals.
type Executor struct {
	cfg *ExecutorConfig
}

// NewExecutor initializes a new trade executor.
func NewExecutor(cfg *ExecutorConfig) (*Executor, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Executor{cfg: cfg}, nil
}

// swingLow derives the stop loss anchor from the provided candles: the
// minimum low of the trailing window ending at the second-to-last candle,
// excluding the in-progress one. With fewer candles than the window the
// lookback shrinks to the completed candles available.
func swingLow(candles []shared.Candlestick) (float64, error) {
	if len(candles) < 2 {
		return 0, fmt.Errorf("deriving swing low requires at least 2 candles, got %d", len(candles))
	}

	completed := candles[:len(candles)-1]
	window := swingLowWindow
	if window > len(completed) {
		window = len(completed)
	}

	trailing := completed[len(completed)-window:]
	low := trailing[0].Low
	for idx := range trailing {
		if trailing[idx].Low < low {
			low = trailing[idx].Low
		}
	}

	return low, nil
}

// ExecuteBuy opens a position for the provided symbol. Capacity and funds
// rejections are normal negative outcomes: no order is placed and the
// returned message describes the rejection. On a fill the returned message
// is the operator confirmation with the take profit and stop loss levels.
func (x *Executor) ExecuteBuy(ctx context.Context, symbol string) (*shared.OrderHandle, string, error) {
	// Reject instead of silently overwriting a tracked position, the store
	// entry would leak the live amount otherwise.
	existing, err := x.cfg.Store.Load(symbol)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, fmt.Sprintf("Rejected buy for %s: position already open", symbol), nil
	}

	count, err := x.cfg.Store.CountOpen()
	if err != nil {
		return nil, "", err
	}
	if count >= x.cfg.MaxOpenPositions {
		return nil, fmt.Sprintf("Rejected buy for %s: open position limit (%d) reached",
			symbol, x.cfg.MaxOpenPositions), nil
	}

	price, err := x.cfg.Exchange.FetchPrice(ctx, symbol)
	if err != nil {
		return nil, "", fmt.Errorf("fetching price for %s: %w", symbol, err)
	}

	quote := shared.QuoteAsset(symbol)
	balance, err := x.cfg.Exchange.FetchBalance(ctx, quote)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s balance: %w", quote, err)
	}
	if balance < x.cfg.TradeAmountUSDT {
		return nil, fmt.Sprintf("Rejected buy for %s: insufficient %s balance (%.2f < %.2f)",
			symbol, quote, balance, x.cfg.TradeAmountUSDT), nil
	}

	amount := x.cfg.TradeAmountUSDT / price
	order, err := x.cfg.Exchange.PlaceMarketOrder(ctx, symbol, shared.BuySide, amount)
	if err != nil {
		return nil, "", fmt.Errorf("placing buy order for %s: %w", symbol, err)
	}

	// From here on a live position exists on the exchange, any failure
	// before the store save completes is a state desync.
	candles, err := x.cfg.Exchange.FetchCandles(ctx, symbol, x.cfg.Timeframe, swingLowFetchLimit)
	if err != nil {
		return order, "", fmt.Errorf("fetching swing low candles for %s: %v: %w", symbol, err, ErrStateDesync)
	}

	stopLoss, err := swingLow(candles)
	if err != nil {
		return order, "", fmt.Errorf("deriving swing low for %s: %v: %w", symbol, err, ErrStateDesync)
	}

	risk := price - stopLoss
	takeProfit := price + rewardRiskRatio*risk

	pos := &position.Position{
		Symbol:     symbol,
		Amount:     amount,
		EntryPrice: price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}
	err = x.cfg.Store.Save(pos)
	if err != nil {
		return order, "", fmt.Errorf("persisting position for %s: %v: %w", symbol, err, ErrStateDesync)
	}

	msg := fmt.Sprintf("Bought %s at %.8f\nTP: %.8f | SL: %.8f", symbol, price, takeProfit, stopLoss)
	return order, msg, nil
}
