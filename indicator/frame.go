package indicator

// Frame annotates a candle series with its derived indicator series. All
// derived series share the length and alignment of the input, and each value
// depends only on candles at or before its index.
type Frame struct {
	Closes []float64
	EMA9   []float64
	EMA21  []float64
	EMA50  []float64
	RSI    []float64
}

// NewFrame derives the indicator series of the provided close series. The
// caller must guarantee a non-empty series.
func NewFrame(closes []float64) *Frame {
	return &Frame{
		Closes: closes,
		EMA9:   EMA(closes, 9),
		EMA21:  EMA(closes, 21),
		EMA50:  EMA(closes, 50),
		RSI:    RSI(closes, RSIPeriod),
	}
}
