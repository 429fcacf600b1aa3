package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func TestNotify(t *testing.T) {
	var requests []*http.Request
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		requests = append(requests, r)
		bodies = append(bodies, r.PostForm.Get("text"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	logger := zerolog.Nop()
	tg, err := NewTelegram(&TelegramConfig{
		Token:   "token",
		ChatID:  "42",
		BaseURL: server.URL,
		Logger:  &logger,
	})
	assert.NoError(t, err)

	tg.Notify("Bought BTC/USDT")

	assert.Equal(t, len(requests), 1)
	assert.Equal(t, requests[0].URL.Path, "/bottoken/sendMessage")
	assert.Equal(t, bodies[0], "Bought BTC/USDT")
	assert.Equal(t, requests[0].PostForm.Get("chat_id"), "42")
	assert.Equal(t, requests[0].PostForm.Get("parse_mode"), "HTML")
}

func TestNotifySwallowsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	logger := zerolog.Nop()
	tg, err := NewTelegram(&TelegramConfig{
		Token:   "token",
		ChatID:  "42",
		BaseURL: server.URL,
		Logger:  &logger,
	})
	assert.NoError(t, err)

	// A failed delivery never surfaces to the caller.
	tg.Notify("dropped")
}

func TestNotifyUnconfigured(t *testing.T) {
	logger := zerolog.Nop()
	tg, err := NewTelegram(&TelegramConfig{BaseURL: BaseURL, Logger: &logger})
	assert.NoError(t, err)

	// Without credentials the message is dropped without a network call.
	tg.Notify("dropped")
}
