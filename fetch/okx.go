package fetch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amhaddad/okxbot/shared"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the OKX REST API base url.
	BaseURL = "https://www.okx.com"

	// timestampLayout is the ISO timestamp format expected by the OKX
	// signing scheme.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// OKXConfig represents the configuration for the OKX client.
type OKXConfig struct {
	// APIKey is the OKX API key.
	APIKey string
	// APISecret is the OKX API secret used for request signing.
	APISecret string
	// Passphrase is the OKX API key passphrase.
	Passphrase string
	// BaseURL is the OKX REST API base url.
	BaseURL string
}

// OKXClient represents the OKX exchange REST client.
type OKXClient struct {
	cfg   *OKXConfig
	httpc http.Client
}

// Ensure the OKX client implements the ExchangeClient interface.
var _ shared.ExchangeClient = (*OKXClient)(nil)

// NewOKXClient instantiates a new OKX client.
func NewOKXClient(cfg *OKXConfig) (*OKXClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("okx base url cannot be an empty string")
	}

	return &OKXClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// InstID derives the OKX instrument id of the provided symbol, eg. BTC-USDT
// for BTC/USDT.
func InstID(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

// sign generates the OKX request signature: the base64 encoded HMAC-SHA256 of
// the timestamp, method, request path and body.
func (c *OKXClient) sign(timestamp string, method string, requestPath string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(requestPath))
	mac.Write(body)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// do executes the provided request against the OKX API and returns the
// response payload, asserting the API level response code.
func (c *OKXClient) do(ctx context.Context, method string, requestPath string, body []byte, signed bool) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+requestPath, reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request for %s: %w", method, requestPath, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if signed {
		timestamp := time.Now().UTC().Format(timestampLayout)
		req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(timestamp, method, requestPath, body))
		req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing %s request for %s: %w", method, requestPath, err)
	}

	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s: %s", resp.StatusCode, requestPath, string(payload))
	}

	code := gjson.GetBytes(payload, "code").String()
	if code != "0" {
		return nil, fmt.Errorf("okx error %s for %s: %s", code, requestPath,
			gjson.GetBytes(payload, "msg").String())
	}

	return payload, nil
}

// ParseCandles parses candlesticks from the provided json data. OKX returns
// candles newest first, the result is reversed into ascending date order.
func ParseCandles(data []gjson.Result, symbol string, timeframe string) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, len(data))

	for idx := range data {
		fields := data[idx].Array()
		if len(fields) < 6 {
			return nil, fmt.Errorf("malformed candle entry, expected at least 6 fields, got %d", len(fields))
		}

		ms, err := strconv.ParseInt(fields[0].String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing candle timestamp: %w", err)
		}

		candles[len(data)-1-idx] = shared.Candlestick{
			Date:      time.UnixMilli(ms).UTC(),
			Open:      fields[1].Float(),
			High:      fields[2].Float(),
			Low:       fields[3].Float(),
			Close:     fields[4].Float(),
			Volume:    fields[5].Float(),
			Symbol:    symbol,
			Timeframe: timeframe,
		}
	}

	return candles, nil
}

// FetchCandles fetches up to limit candles for the provided symbol and
// timeframe, in ascending date order.
func (c *OKXClient) FetchCandles(ctx context.Context, symbol string, timeframe string, limit int) ([]shared.Candlestick, error) {
	params := url.Values{}
	params.Add("instId", InstID(symbol))
	params.Add("bar", timeframe)
	params.Add("limit", strconv.Itoa(limit))

	payload, err := c.do(ctx, http.MethodGet, "/api/v5/market/candles?"+params.Encode(), nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}

	data := gjson.GetBytes(payload, "data").Array()

	return ParseCandles(data, symbol, timeframe)
}

// FetchPrice fetches the last traded price for the provided symbol.
func (c *OKXClient) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Add("instId", InstID(symbol))

	payload, err := c.do(ctx, http.MethodGet, "/api/v5/market/ticker?"+params.Encode(), nil, false)
	if err != nil {
		return 0, fmt.Errorf("fetching ticker for %s: %w", symbol, err)
	}

	last := gjson.GetBytes(payload, "data.0.last")
	if !last.Exists() {
		return 0, fmt.Errorf("no ticker data for %s", symbol)
	}

	return last.Float(), nil
}

// FetchBalance fetches the available balance of the provided asset.
func (c *OKXClient) FetchBalance(ctx context.Context, asset string) (float64, error) {
	params := url.Values{}
	params.Add("ccy", asset)

	payload, err := c.do(ctx, http.MethodGet, "/api/v5/account/balance?"+params.Encode(), nil, true)
	if err != nil {
		return 0, fmt.Errorf("fetching %s balance: %w", asset, err)
	}

	avail := gjson.GetBytes(payload, "data.0.details.0.availBal")
	if !avail.Exists() {
		// No balance entry means nothing is held for the asset.
		return 0, nil
	}

	return avail.Float(), nil
}

// newClientOrderID derives an exchange safe client order id.
func newClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PlaceMarketOrder submits a spot market order for the provided symbol, sized
// in the base asset.
func (c *OKXClient) PlaceMarketOrder(ctx context.Context, symbol string, side shared.OrderSide, amount float64) (*shared.OrderHandle, error) {
	clientOrderID := newClientOrderID()
	body := fmt.Sprintf(`{"instId":%q,"tdMode":"cash","clOrdId":%q,"side":%q,"ordType":"market","sz":%q,"tgtCcy":"base_ccy"}`,
		InstID(symbol), clientOrderID, side.String(), strconv.FormatFloat(amount, 'f', -1, 64))

	payload, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", []byte(body), true)
	if err != nil {
		return nil, fmt.Errorf("placing %s order for %s: %w", side.String(), symbol, err)
	}

	result := gjson.GetBytes(payload, "data.0")
	if result.Get("sCode").String() != "0" {
		return nil, fmt.Errorf("okx rejected %s order for %s: %s", side.String(), symbol,
			result.Get("sMsg").String())
	}

	return &shared.OrderHandle{
		OrderID:       result.Get("ordId").String(),
		ClientOrderID: clientOrderID,
	}, nil
}
