package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amhaddad/okxbot/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestInstID(t *testing.T) {
	assert.Equal(t, InstID("BTC/USDT"), "BTC-USDT")
	assert.Equal(t, InstID("SOL-USDT"), "SOL-USDT")
}

func TestSign(t *testing.T) {
	client, err := NewOKXClient(&OKXConfig{
		APIKey:     "key",
		APISecret:  "secret",
		Passphrase: "pass",
		BaseURL:    BaseURL,
	})
	assert.NoError(t, err)

	sig := client.sign("2024-05-01T10:00:00.000Z", http.MethodGet, "/api/v5/account/balance?ccy=USDT", nil)
	assert.Equal(t, sig, "ZOGw+FA5IEVMPw5LuKKNHUAl7tDUB6BFd+TqLbEUklI=")
}

func TestParseCandles(t *testing.T) {
	// OKX returns candles newest first.
	data := `[
		["1714557600000","101","103","100","102","7"],
		["1714556700000","100","102","99","101","5"]
	]`
	gjd := gjson.Parse(data).Array()

	candles, err := ParseCandles(gjd, "BTC/USDT", "15m")
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)

	// Parsed candles are in ascending date order.
	assert.True(t, candles[0].Date.Before(candles[1].Date))
	assert.Equal(t, candles[0].Open, float64(100))
	assert.Equal(t, candles[0].High, float64(102))
	assert.Equal(t, candles[0].Low, float64(99))
	assert.Equal(t, candles[0].Close, float64(101))
	assert.Equal(t, candles[0].Volume, float64(5))
	assert.Equal(t, candles[1].Close, float64(102))
	assert.Equal(t, candles[0].Symbol, "BTC/USDT")
	assert.Equal(t, candles[0].Timeframe, "15m")

	// Malformed entries fail the parse.
	_, err = ParseCandles(gjson.Parse(`[["1714556700000","100"]]`).Array(), "BTC/USDT", "15m")
	assert.Error(t, err)

	_, err = ParseCandles(gjson.Parse(`[["bad","100","102","99","101","5"]]`).Array(), "BTC/USDT", "15m")
	assert.Error(t, err)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OKXClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOKXClient(&OKXConfig{
		APIKey:     "key",
		APISecret:  "secret",
		Passphrase: "pass",
		BaseURL:    server.URL,
	})
	assert.NoError(t, err)

	return client
}

func TestFetchCandles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/api/v5/market/candles")
		assert.Equal(t, r.URL.Query().Get("instId"), "BTC-USDT")
		assert.Equal(t, r.URL.Query().Get("bar"), "15m")
		assert.Equal(t, r.URL.Query().Get("limit"), "150")

		w.Write([]byte(`{"code":"0","msg":"","data":[
			["1714557600000","101","103","100","102","7"],
			["1714556700000","100","102","99","101","5"]
		]}`))
	})

	candles, err := client.FetchCandles(context.Background(), "BTC/USDT", "15m", 150)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[1].Close, float64(102))
}

func TestFetchPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/api/v5/market/ticker")
		w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT","last":"64250.1"}]}`))
	})

	price, err := client.FetchPrice(context.Background(), "BTC/USDT")
	assert.NoError(t, err)
	assert.Equal(t, price, 64250.1)
}

func TestFetchPriceAPIError(t *testing.T) {
	// An API level error code fails the fetch.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	})

	_, err := client.FetchPrice(context.Background(), "NOPE/USDT")
	assert.Error(t, err)
}

func TestFetchBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/api/v5/account/balance")
		assert.Equal(t, r.URL.Query().Get("ccy"), "USDT")

		// Balance requests are signed.
		assert.NotEqual(t, r.Header.Get("OK-ACCESS-KEY"), "")
		assert.NotEqual(t, r.Header.Get("OK-ACCESS-SIGN"), "")
		assert.NotEqual(t, r.Header.Get("OK-ACCESS-TIMESTAMP"), "")
		assert.NotEqual(t, r.Header.Get("OK-ACCESS-PASSPHRASE"), "")

		w.Write([]byte(`{"code":"0","msg":"","data":[{"details":[{"ccy":"USDT","availBal":"512.25"}]}]}`))
	})

	balance, err := client.FetchBalance(context.Background(), "USDT")
	assert.NoError(t, err)
	assert.Equal(t, balance, 512.25)
}

func TestFetchBalanceMissingAsset(t *testing.T) {
	// No balance entry means nothing is held for the asset.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[]}`))
	})

	balance, err := client.FetchBalance(context.Background(), "DOGE")
	assert.NoError(t, err)
	assert.Equal(t, balance, float64(0))
}

func TestPlaceMarketOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Method, http.MethodPost)
		assert.Equal(t, r.URL.Path, "/api/v5/trade/order")
		assert.NotEqual(t, r.Header.Get("OK-ACCESS-SIGN"), "")

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, gjson.GetBytes(body, "instId").String(), "BTC-USDT")
		assert.Equal(t, gjson.GetBytes(body, "tdMode").String(), "cash")
		assert.Equal(t, gjson.GetBytes(body, "side").String(), "buy")
		assert.Equal(t, gjson.GetBytes(body, "ordType").String(), "market")
		assert.Equal(t, gjson.GetBytes(body, "sz").String(), "0.0025")
		assert.NotEqual(t, gjson.GetBytes(body, "clOrdId").String(), "")

		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"12345","sCode":"0","sMsg":""}]}`))
	})

	order, err := client.PlaceMarketOrder(context.Background(), "BTC/USDT", shared.BuySide, 0.0025)
	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, order.OrderID, "12345")
	assert.NotEqual(t, order.ClientOrderID, "")
}

func TestPlaceMarketOrderRejected(t *testing.T) {
	// A per-order rejection code fails the placement.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"","sCode":"51008","sMsg":"insufficient balance"}]}`))
	})

	order, err := client.PlaceMarketOrder(context.Background(), "BTC/USDT", shared.SellSide, 1)
	assert.Error(t, err)
	assert.Nil(t, order)
}
