package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// BaseURL is the Telegram Bot API base url.
	BaseURL = "https://api.telegram.org"

	// sendTimeout bounds a single send attempt.
	sendTimeout = time.Second * 10
)

// TelegramConfig represents the telegram notifier configuration.
type TelegramConfig struct {
	// Token is the bot API token.
	Token string
	// ChatID is the target chat id.
	ChatID string
	// BaseURL is the bot API base url.
	BaseURL string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Telegram delivers operator messages over the Telegram Bot API. Delivery is
// best effort, failures are logged and discarded.
type Telegram struct {
	cfg   *TelegramConfig
	httpc http.Client
}

// NewTelegram instantiates a new telegram notifier.
func NewTelegram(cfg *TelegramConfig) (*Telegram, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("telegram base url cannot be an empty string")
	}

	return &Telegram{
		cfg:   cfg,
		httpc: http.Client{Timeout: sendTimeout},
	}, nil
}

// Notify sends the provided message to the configured chat. Faults are
// swallowed after logging, callers never observe a delivery failure.
func (t *Telegram) Notify(message string) {
	if t.cfg.Token == "" || t.cfg.ChatID == "" {
		t.cfg.Logger.Debug().Msg("telegram notifier not configured, dropping message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.Token)
	payload := url.Values{}
	payload.Add("chat_id", t.cfg.ChatID)
	payload.Add("text", message)
	payload.Add("parse_mode", "HTML")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(payload.Encode()))
	if err != nil {
		t.cfg.Logger.Error().Msgf("creating telegram request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpc.Do(req)
	if err != nil {
		t.cfg.Logger.Error().Msgf("sending telegram message: %v", err)
		return
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.cfg.Logger.Error().Msgf("telegram send returned status %d", resp.StatusCode)
	}
}
