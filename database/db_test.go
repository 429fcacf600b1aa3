package database

import (
	"testing"
	"time"

	"github.com/amhaddad/okxbot/position"
	"github.com/peterldowns/testy/assert"
)

func TestMetadataID(t *testing.T) {
	trade := &position.ClosedTrade{
		Symbol:   "BTC/USDT",
		Profit:   12.5,
		ClosedAt: time.Date(2024, time.May, 16, 10, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, MetadataID(trade), "May-Week-2-BTC/USDT")

	// Trades closed in the same week roll up to the same id.
	other := &position.ClosedTrade{
		Symbol:   "BTC/USDT",
		Profit:   -3,
		ClosedAt: time.Date(2024, time.May, 20, 23, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, MetadataID(other), MetadataID(trade))
}
