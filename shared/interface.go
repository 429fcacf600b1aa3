package shared

import "context"

// OrderHandle represents a submitted exchange order.
type OrderHandle struct {
	// OrderID is the exchange assigned order id.
	OrderID string
	// ClientOrderID is the client assigned order id.
	ClientOrderID string
}

// ExchangeClient defines the exchange access requirements of the bot.
type ExchangeClient interface {
	// FetchCandles fetches up to limit candles for the provided symbol and
	// timeframe, in ascending date order.
	FetchCandles(ctx context.Context, symbol string, timeframe string, limit int) ([]Candlestick, error)
	// FetchPrice fetches the current price for the provided symbol.
	FetchPrice(ctx context.Context, symbol string) (float64, error)
	// FetchBalance fetches the available balance of the provided asset.
	FetchBalance(ctx context.Context, asset string) (float64, error)
	// PlaceMarketOrder submits a market order for the provided symbol, sized
	// in the base asset.
	PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, amount float64) (*OrderHandle, error)
}
