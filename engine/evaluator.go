package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/amhaddad/okxbot/indicator"
	"github.com/amhaddad/okxbot/shared"
	"github.com/rs/zerolog"
)

const (
	// candleFetchLimit is the number of candles fetched for evaluation.
	candleFetchLimit = 150
	// rsiLowerBound and rsiUpperBound bound the momentum filter, exclusive.
	rsiLowerBound = 50
	rsiUpperBound = 70
)

// EvaluatorConfig represents the signal evaluator configuration.
type EvaluatorConfig struct {
	// Exchange represents the market exchange client.
	Exchange shared.ExchangeClient
	// Timeframe is the candle interval token used for evaluations.
	Timeframe string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *EvaluatorConfig) Validate() error {
	var errs error

	if cfg.Exchange == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.Timeframe == "" {
		errs = errors.Join(errs, fmt.Errorf("timeframe cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Evaluator derives entry signals for symbols from their candle series.
type Evaluator struct {
	cfg *EvaluatorConfig
}

// NewEvaluator initializes a new signal evaluator.
func NewEvaluator(cfg *EvaluatorConfig) (*Evaluator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Evaluator{cfg: cfg}, nil
}

// Evaluate derives the entry signal for the provided symbol. Every filter
// fails closed, a fetch fault yields a fetch error signal which callers must
// treat as no signal.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string) shared.Signal {
	candles, err := e.cfg.Exchange.FetchCandles(ctx, symbol, e.cfg.Timeframe, candleFetchLimit)
	if err != nil {
		e.cfg.Logger.Error().Msgf("fetching candles for %s: %v", symbol, err)
		return shared.FetchError
	}

	// The crossover trigger needs the last completed step, require at
	// least two candles.
	if len(candles) < 2 {
		return shared.NoSignal
	}

	closes := make([]float64, len(candles))
	for idx := range candles {
		closes[idx] = candles[idx].Close
	}

	frame := indicator.NewFrame(closes)
	last, prev := len(candles)-1, len(candles)-2

	// Trend filter: price at or above the long ema.
	if frame.Closes[last] < frame.EMA50[last] {
		return shared.NoSignal
	}

	// Momentum filter: rsi strictly within the entry band.
	if frame.RSI[last] <= rsiLowerBound || frame.RSI[last] >= rsiUpperBound {
		return shared.NoSignal
	}

	// Range filter: price strictly inside the support and resistance band
	// of the completed candles.
	support, resistance, err := indicator.SupportResistance(candles, indicator.SupportResistanceWindow)
	if err != nil {
		e.cfg.Logger.Error().Msgf("deriving support and resistance for %s: %v", symbol, err)
		return shared.NoSignal
	}
	if frame.Closes[last] >= resistance || frame.Closes[last] <= support {
		return shared.NoSignal
	}

	// Trigger: the fast ema crossed above the slow ema on the most recent
	// completed step.
	if frame.EMA9[prev] < frame.EMA21[prev] && frame.EMA9[last] > frame.EMA21[last] {
		return shared.Buy
	}

	return shared.NoSignal
}
