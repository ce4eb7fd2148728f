package profit

import (
	"math"

	"positionkeeper/src/model"
)

// Breakdown carries the absolute profit of a position at a given price and the
// three ratio views of it. All ratios share ProfitAbs as numerator.
type Breakdown struct {
	ProfitAbs float64

	// VsTotalStake divides by the stake ever committed across all entry fills.
	VsTotalStake float64

	// VsCurrentStake divides by the open quantity valued at the current price.
	VsCurrentStake float64

	// VsInitialEntry divides by the stake of the first entry fill only. This is
	// the ratio the ladder and exit thresholds are expressed against.
	VsInitialEntry float64
}

// Valid reports whether every figure is finite. A zero-stake position produces
// zero ratios, never NaN, so an invalid breakdown means corrupt fill data.
func (b Breakdown) Valid() bool {
	for _, v := range []float64{b.ProfitAbs, b.VsTotalStake, b.VsCurrentStake, b.VsInitialEntry} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Compute values the position at currentPrice. Entry and exit legs are both
// fee-adjusted against the position's direction; the unrealized leg values the
// remaining open quantity at currentPrice with the same fee convention as a
// close. Margined positions add the accumulated funding adjustment.
func Compute(pos *model.Position, currentPrice float64) Breakdown {
	if pos == nil || len(pos.Entries) == 0 {
		return Breakdown{}
	}

	short := pos.IsShort()

	entryLeg := 0.0 // cost for longs, proceeds for shorts
	for i := range pos.Entries {
		f := pos.Entries[i]
		notional := f.Quantity * f.Price
		if short {
			entryLeg += notional * (1 - f.FeeRate)
		} else {
			entryLeg += notional * (1 + f.FeeRate)
		}
	}

	exitLeg := 0.0 // proceeds for longs, close cost for shorts
	for i := range pos.Exits {
		f := pos.Exits[i]
		notional := f.Quantity * f.Price
		if short {
			exitLeg += notional * (1 + f.FeeRate)
		} else {
			exitLeg += notional * (1 - f.FeeRate)
		}
	}

	// Unrealized leg: close the open quantity at the current price using the
	// fee rate of the first entry.
	openQty := pos.OpenQuantity()
	if openQty > 0 && currentPrice > 0 {
		fee := pos.Entries[0].FeeRate
		notional := openQty * currentPrice
		if short {
			exitLeg += notional * (1 + fee)
		} else {
			exitLeg += notional * (1 - fee)
		}
	}

	abs := exitLeg - entryLeg
	if short {
		abs = entryLeg - exitLeg
	}
	if pos.Market == model.MarketMargined {
		abs += pos.Funding
	}

	leverage := pos.Leverage
	if leverage < 1 {
		leverage = 1
	}

	totalStake := 0.0
	for i := range pos.Entries {
		totalStake += pos.Entries[i].Quantity * pos.Entries[i].Price
	}
	currentStake := openQty * currentPrice
	initialStake := pos.Entries[0].Quantity * pos.Entries[0].Price

	return Breakdown{
		ProfitAbs:      abs,
		VsTotalStake:   ratio(abs, totalStake/leverage),
		VsCurrentStake: ratio(abs, currentStake/leverage),
		VsInitialEntry: ratio(abs, initialStake/leverage),
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
