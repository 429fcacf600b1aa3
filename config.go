package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// validTimeframes are the candle interval tokens accepted by the exchange.
var validTimeframes = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1H": true, "2H": true, "4H": true, "1D": true,
}

// Config is the configuration struct for the bot.
type Config struct {
	// Symbols represents the tracked trading pairs, eg. BTC/USDT.
	Symbols []string
	// Timeframe is the candle interval token.
	Timeframe string
	// TradeAmountUSDT is the quote currency amount committed per trade.
	TradeAmountUSDT float64
	// MaxOpenPositions caps the number of concurrently open positions.
	MaxOpenPositions int
	// PollIntervalSeconds is the delay between polling passes.
	PollIntervalSeconds int
	// StateDir holds the position records and the closed trade ledger.
	StateDir string
	// ListenAddr is the liveness endpoint listen address.
	ListenAddr string
	// OKXAPIKey is the OKX API key.
	OKXAPIKey string
	// OKXAPISecret is the OKX API secret.
	OKXAPISecret string
	// OKXPassphrase is the OKX API key passphrase.
	OKXPassphrase string
	// TelegramToken is the telegram bot API token, optional.
	TelegramToken string
	// TelegramChatID is the telegram chat id, optional.
	TelegramChatID string
	// RqliteEndpoint is the closed trade archive endpoint, optional.
	RqliteEndpoint string
	// RqliteUser is the archive database user.
	RqliteUser string
	// RqlitePass is the archive database user pass.
	RqlitePass string

	registeredFlags map[string]bool
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided for the bot"))
	}
	for _, symbol := range cfg.Symbols {
		if !strings.Contains(symbol, "/") {
			errs = errors.Join(errs, fmt.Errorf("symbol %s is not of the form BASE/QUOTE", symbol))
		}
	}
	if !validTimeframes[cfg.Timeframe] {
		errs = errors.Join(errs, fmt.Errorf("unknown timeframe: %s", cfg.Timeframe))
	}
	if cfg.TradeAmountUSDT <= 0 {
		errs = errors.Join(errs, fmt.Errorf("trade amount must be positive, got %f", cfg.TradeAmountUSDT))
	}
	if cfg.MaxOpenPositions <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max open positions must be positive, got %d", cfg.MaxOpenPositions))
	}
	if cfg.PollIntervalSeconds <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive, got %d", cfg.PollIntervalSeconds))
	}
	if cfg.OKXAPIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("okx api key cannot be an empty string"))
	}
	if cfg.OKXAPISecret == "" {
		errs = errors.Join(errs, fmt.Errorf("okx api secret cannot be an empty string"))
	}
	if cfg.OKXPassphrase == "" {
		errs = errors.Join(errs, fmt.Errorf("okx passphrase cannot be an empty string"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("symbols", &cfg.Symbols, "the tracked trading pairs")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("timeframe", &cfg.Timeframe, "the candle interval token")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("tradeamountusdt", &cfg.TradeAmountUSDT, "the quote amount committed per trade")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("maxopenpositions", &cfg.MaxOpenPositions, "the open position cap")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("pollintervalseconds", &cfg.PollIntervalSeconds, "the delay between polling passes")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("statedir", &cfg.StateDir, "the state directory")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("listenaddr", &cfg.ListenAddr, "the liveness endpoint listen address")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("okxapikey", &cfg.OKXAPIKey, "the okx api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("okxapisecret", &cfg.OKXAPISecret, "the okx api secret")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("okxpassphrase", &cfg.OKXPassphrase, "the okx api passphrase")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("telegramtoken", &cfg.TelegramToken, "the telegram bot token")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("telegramchatid", &cfg.TelegramChatID, "the telegram chat id")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("rqliteendpoint", &cfg.RqliteEndpoint, "the closed trade archive endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("rqliteuser", &cfg.RqliteUser, "the archive database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("rqlitepass", &cfg.RqlitePass, "the archive database pass")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	// Fall back to defaults for optional fields left unset.
	if cfg.Timeframe == "" {
		cfg.Timeframe = "15m"
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = 300
	}
	if cfg.StateDir == "" {
		cfg.StateDir = "."
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":10000"
	}

	return cfg.Validate()
}
