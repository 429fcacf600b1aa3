package position

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/amhaddad/okxbot/shared"
	"github.com/rs/zerolog"
)

// ManagerConfig represents the position manager configuration.
type ManagerConfig struct {
	// Exchange represents the market exchange client.
	Exchange shared.ExchangeClient
	// Store represents the position store.
	Store *Store
	// Notify sends the provided message to the operator.
	Notify func(message string)
	// ArchiveClosedTrade archives the provided closed trade, may be nil.
	ArchiveClosedTrade func(ctx context.Context, trade *ClosedTrade) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.Exchange == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("position store cannot be nil"))
	}
	if cfg.Notify == nil {
		errs = errors.Join(errs, fmt.Errorf("notify function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager monitors open positions and exits them once their stop loss or
// take profit levels are hit.
type Manager struct {
	cfg *ManagerConfig
}

// NewManager initializes a new position manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Manager{cfg: cfg}, nil
}

// roundAmount rounds the provided amount to six decimal places.
func roundAmount(amount float64) float64 {
	return math.Round(amount*1e6) / 1e6
}

// ManagePosition evaluates the open position for the provided symbol and
// closes it if its exit conditions are met. It returns true only if a
// position was closed by the call.
func (m *Manager) ManagePosition(ctx context.Context, symbol string) (bool, error) {
	pos, err := m.cfg.Store.Load(symbol)
	if err != nil {
		return false, err
	}
	if pos == nil {
		return false, nil
	}

	currentPrice, err := m.cfg.Exchange.FetchPrice(ctx, symbol)
	if err != nil {
		return false, fmt.Errorf("fetching price for %s: %w", symbol, err)
	}

	// The held balance can be below the recorded amount due to partial fills
	// or external withdrawals, clamp the sell size to what is actually held.
	actualBalance, err := m.cfg.Exchange.FetchBalance(ctx, shared.BaseAsset(symbol))
	if err != nil {
		return false, fmt.Errorf("fetching %s balance: %w", shared.BaseAsset(symbol), err)
	}

	sellAmount := roundAmount(math.Min(pos.Amount, actualBalance))

	if currentPrice < pos.TakeProfit && currentPrice > pos.StopLoss {
		return false, nil
	}

	_, err = m.cfg.Exchange.PlaceMarketOrder(ctx, symbol, shared.SellSide, sellAmount)
	if err != nil {
		// The position stays open and remains eligible for exit on the
		// next pass.
		return false, fmt.Errorf("placing sell order for %s: %w", symbol, err)
	}

	profit := (currentPrice - pos.EntryPrice) * sellAmount
	trade := &ClosedTrade{
		Symbol:     symbol,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  currentPrice,
		Amount:     sellAmount,
		Profit:     profit,
		ClosedAt:   time.Now().UTC(),
	}

	err = m.cfg.Store.AppendClosedTrade(trade)
	if err != nil {
		return false, err
	}

	err = m.cfg.Store.Clear(symbol)
	if err != nil {
		return false, err
	}

	if m.cfg.ArchiveClosedTrade != nil {
		// The flat file ledger stays authoritative, archiving is best effort.
		err = m.cfg.ArchiveClosedTrade(ctx, trade)
		if err != nil {
			m.cfg.Logger.Error().Msgf("archiving closed trade for %s: %v", symbol, err)
		}
	}

	msg := fmt.Sprintf("Closed %s position: entry %.8f, exit %.8f, amount %.6f, profit %.8f",
		symbol, pos.EntryPrice, currentPrice, sellAmount, profit)
	m.cfg.Notify(msg)

	return true, nil
}
