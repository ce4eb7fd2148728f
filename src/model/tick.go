package model

import "time"

// Tick is the per-instrument, per-step input handed to the keeper by the host
// runtime: the current price, the two indicator values the exit tables branch on,
// and the run-mode flags.
type Tick struct {
	Symbol string
	Price  float64
	Now    time.Time

	// Momentum is a short-horizon oscillator value (0..100). Oversold readings
	// defer retracement exits by one evaluation.
	Momentum float64

	// TrendFilter is the long-horizon trend reference price. Price below it on a
	// long (above on a short) selects the defensive threshold column.
	TrendFilter float64

	// Backtest disables hold-override suppression and live-only reload behavior.
	Backtest bool

	// Forced marks an emergency close request, bypassing hold suppression.
	Forced bool
}

// TrendAgainst reports whether the long-horizon filter points against the position.
func (t Tick) TrendAgainst(side Side) bool {
	if t.TrendFilter <= 0 {
		return false
	}
	if side == SideShort {
		return t.Price > t.TrendFilter
	}
	return t.Price < t.TrendFilter
}
