package shared

import (
	"strings"
	"time"
)

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Symbol    string
	Timeframe string
}

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// BaseAsset returns the base asset of the provided symbol, eg. BTC for BTC/USDT.
func BaseAsset(symbol string) string {
	base, _, found := strings.Cut(symbol, "/")
	if !found {
		return symbol
	}

	return base
}

// QuoteAsset returns the quote asset of the provided symbol, eg. USDT for BTC/USDT.
func QuoteAsset(symbol string) string {
	_, quote, found := strings.Cut(symbol, "/")
	if !found {
		return ""
	}

	return quote
}
