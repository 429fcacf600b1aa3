package indicator

import (
	"fmt"

	"github.com/amhaddad/okxbot/shared"
)

const (
	// RSIPeriod is the default relative strength index period.
	RSIPeriod = 14
	// SupportResistanceWindow is the default support and resistance lookback.
	SupportResistanceWindow = 50
)

// EMA computes the exponential moving average of the provided series with a
// smoothing factor of 2/(period+1). The first output value is the first input
// value. The caller must guarantee a non-empty series.
func EMA(series []float64, period int) []float64 {
	alpha := 2 / (float64(period) + 1)
	return EMAAlpha(series, alpha)
}

// EMAAlpha computes the exponential moving average of the provided series with
// an explicit smoothing factor. The caller must guarantee a non-empty series.
func EMAAlpha(series []float64, alpha float64) []float64 {
	out := make([]float64, len(series))
	out[0] = series[0]
	for idx := 1; idx < len(series); idx++ {
		out[idx] = alpha*series[idx] + (1-alpha)*out[idx-1]
	}

	return out
}

// RSI computes the relative strength index of the provided series using
// Wilder smoothing (gains and losses smoothed with alpha of 1/period).
//
// When the smoothed loss is zero the quotient is undefined, the index is
// pinned to 100 if there are smoothed gains and 50 otherwise.
func RSI(series []float64, period int) []float64 {
	gains := make([]float64, len(series))
	losses := make([]float64, len(series))
	for idx := 1; idx < len(series); idx++ {
		delta := series[idx] - series[idx-1]
		switch {
		case delta > 0:
			gains[idx] = delta
		case delta < 0:
			losses[idx] = -delta
		}
	}

	alpha := 1 / float64(period)
	avgGains := EMAAlpha(gains, alpha)
	avgLosses := EMAAlpha(losses, alpha)

	out := make([]float64, len(series))
	for idx := range series {
		switch {
		case avgLosses[idx] == 0 && avgGains[idx] > 0:
			out[idx] = 100
		case avgLosses[idx] == 0:
			out[idx] = 50
		default:
			rs := avgGains[idx] / avgLosses[idx]
			out[idx] = 100 - 100/(1+rs)
		}
	}

	return out
}

// SupportResistance derives the support and resistance of the provided candles
// over the trailing window, excluding the in-progress last candle. The support
// is the minimum low and the resistance the maximum high of the window.
func SupportResistance(candles []shared.Candlestick, window int) (float64, float64, error) {
	if len(candles) < 2 {
		return 0, 0, fmt.Errorf("deriving support and resistance requires at least 2 candles, got %d", len(candles))
	}

	completed := candles[:len(candles)-1]
	if window > len(completed) {
		window = len(completed)
	}

	trailing := completed[len(completed)-window:]
	support, resistance := trailing[0].Low, trailing[0].High
	for idx := range trailing {
		if trailing[idx].Low < support {
			support = trailing[idx].Low
		}
		if trailing[idx].High > resistance {
			resistance = trailing[idx].High
		}
	}

	return support, resistance, nil
}
