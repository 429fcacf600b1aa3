package position

import (
	"fmt"
	"time"
)

// Position represents an open spot position for a symbol. A position is
// immutable once opened, it is only ever read until it is closed.
type Position struct {
	Symbol     string  `json:"symbol"`
	Amount     float64 `json:"amount"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// Validate asserts the position has sane inputs.
func (p *Position) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("position symbol cannot be an empty string")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("position amount must be positive, got %f", p.Amount)
	}
	if p.EntryPrice <= 0 {
		return fmt.Errorf("position entry price must be positive, got %f", p.EntryPrice)
	}

	return nil
}

// ClosedTrade represents a completed trade appended to the trade ledger.
type ClosedTrade struct {
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Amount     float64   `json:"amount"`
	Profit     float64   `json:"profit"`
	ClosedAt   time.Time `json:"closed_at"`
}
