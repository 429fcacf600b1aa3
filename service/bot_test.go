package service

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amhaddad/okxbot/engine"
	"github.com/amhaddad/okxbot/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

type botHarness struct {
	bot      *Bot
	calls    *[]string
	notified *[]string
}

func newBotHarness(t *testing.T, signals map[string]shared.Signal, buyErr error) *botHarness {
	t.Helper()

	logger := zerolog.Nop()
	calls := &[]string{}
	notified := &[]string{}

	bot, err := NewBot(&BotConfig{
		Symbols:      []string{"BTC/USDT", "ETH/USDT"},
		PollInterval: time.Minute,
		ListenAddr:   ":0",
		ManagePosition: func(ctx context.Context, symbol string) (bool, error) {
			*calls = append(*calls, "manage "+symbol)
			return false, nil
		},
		Evaluate: func(ctx context.Context, symbol string) shared.Signal {
			*calls = append(*calls, "evaluate "+symbol)
			return signals[symbol]
		},
		ExecuteBuy: func(ctx context.Context, symbol string) (*shared.OrderHandle, string, error) {
			*calls = append(*calls, "buy "+symbol)
			if buyErr != nil {
				return nil, "", buyErr
			}
			return &shared.OrderHandle{OrderID: "1"}, "Bought " + symbol, nil
		},
		Notify: func(message string) {
			*notified = append(*notified, message)
		},
		Logger: &logger,
	})
	assert.NoError(t, err)

	return &botHarness{bot: bot, calls: calls, notified: notified}
}

func TestBotConfigValidate(t *testing.T) {
	logger := zerolog.Nop()
	cfg := &BotConfig{Logger: &logger}

	err := cfg.Validate()
	assert.Error(t, err)

	for _, want := range []string{
		"no symbols provided",
		"poll interval must be positive",
		"listen address cannot be an empty string",
		"manage position function cannot be nil",
		"evaluate function cannot be nil",
		"execute buy function cannot be nil",
		"notify function cannot be nil",
	} {
		assert.True(t, strings.Contains(err.Error(), want))
	}
}

func TestRunPassOrdering(t *testing.T) {
	// Every symbol is managed before it is evaluated, sequentially.
	h := newBotHarness(t, map[string]shared.Signal{
		"BTC/USDT": shared.NoSignal,
		"ETH/USDT": shared.Buy,
	}, nil)

	h.bot.runPass(context.Background())

	assert.Equal(t, *h.calls, []string{
		"manage BTC/USDT",
		"evaluate BTC/USDT",
		"manage ETH/USDT",
		"evaluate ETH/USDT",
		"buy ETH/USDT",
	})

	// Only the fill confirmation is notified.
	assert.Equal(t, *h.notified, []string{"Bought ETH/USDT"})
}

func TestRunPassFetchErrorFailsClosed(t *testing.T) {
	// A fetch error is control flow identical to no signal, no buy happens.
	h := newBotHarness(t, map[string]shared.Signal{
		"BTC/USDT": shared.FetchError,
		"ETH/USDT": shared.FetchError,
	}, nil)

	h.bot.runPass(context.Background())

	for _, call := range *h.calls {
		assert.False(t, strings.HasPrefix(call, "buy"))
	}
	assert.Equal(t, len(*h.notified), 0)
}

func TestRunPassStateDesyncAlert(t *testing.T) {
	// A state desync on buy raises an operator alert.
	buyErr := fmt.Errorf("persisting position: %w", engine.ErrStateDesync)
	h := newBotHarness(t, map[string]shared.Signal{
		"BTC/USDT": shared.Buy,
		"ETH/USDT": shared.NoSignal,
	}, buyErr)

	h.bot.runPass(context.Background())

	assert.Equal(t, len(*h.notified), 1)
	assert.True(t, strings.Contains((*h.notified)[0], "ALERT"))
	assert.True(t, strings.Contains((*h.notified)[0], "BTC/USDT"))
}

func TestRunPassCancelledContext(t *testing.T) {
	// A cancelled context stops the pass before any symbol is processed.
	h := newBotHarness(t, map[string]shared.Signal{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.bot.runPass(ctx)

	assert.Equal(t, len(*h.calls), 0)
}

func TestHandleLiveness(t *testing.T) {
	h := newBotHarness(t, map[string]shared.Signal{}, nil)

	// Before any pass the endpoint reports a never ran loop.
	rec := httptest.NewRecorder()
	h.bot.handleLiveness(rec, httptest.NewRequest("GET", "/", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "bot is running"))
	assert.True(t, strings.Contains(body, "passes: 0"))
	assert.True(t, strings.Contains(body, "last pass: never"))

	h.bot.runPass(context.Background())

	rec = httptest.NewRecorder()
	h.bot.handleLiveness(rec, httptest.NewRequest("GET", "/", nil))
	body = rec.Body.String()
	assert.True(t, strings.Contains(body, "passes: 1"))
	assert.False(t, strings.Contains(body, "never"))
}
