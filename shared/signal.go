package shared

// Signal represents the outcome of evaluating a symbol for an entry.
type Signal int

const (
	NoSignal Signal = iota
	Buy
	FetchError
)

// String stringifies the provided signal.
func (s Signal) String() string {
	switch s {
	case NoSignal:
		return "no signal"
	case Buy:
		return "buy"
	case FetchError:
		return "fetch error"
	default:
		return "unknown"
	}
}

// OrderSide represents the side of a market order.
type OrderSide int

const (
	BuySide OrderSide = iota
	SellSide
)

// String stringifies the provided order side.
func (s OrderSide) String() string {
	switch s {
	case BuySide:
		return "buy"
	case SellSide:
		return "sell"
	default:
		return "unknown"
	}
}
