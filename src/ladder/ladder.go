package ladder

import (
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/mode"
	"positionkeeper/src/model"
)

// Rung maps an adverse-excursion threshold to the additional stake it buys,
// expressed as a fraction of the first-entry stake.
type Rung struct {
	Threshold float64 // <= 0, strictly decreasing by index
	Fraction  decimal.Decimal
	TagSuffix string // appended to the fill tag of the addition
}

// Ladder is the immutable addition table for one (mode, market) combination.
type Ladder struct {
	Rungs []Rung

	// GateTier disables the ladder once the instrument's profit target cache
	// records a tier at or above it: positions that already saw their take
	// profit are not averaged down. Zero means no gate.
	GateTier int

	// StopFloor is the adverse excursion beyond which the ladder stops adding
	// and instead de-risks once, deferring further handling to the exit engine.
	// Zero means no floor.
	StopFloor float64

	// DeriskFraction is the share of the open stake closed by the one-shot
	// de-risk when StopFloor is breached.
	DeriskFraction decimal.Decimal
}

// TableKey selects a ladder by mode kind and market type.
type TableKey struct {
	Kind   mode.Kind
	Market model.MarketType
}

func frac(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func grindRungs(step float64, fractions ...string) []Rung {
	rungs := make([]Rung, 0, len(fractions))
	for i, f := range fractions {
		rungs = append(rungs, Rung{
			Threshold: -step * float64(i+1),
			Fraction:  frac(f),
			TagSuffix: fmt.Sprintf("g%d", i+1),
		})
	}
	return rungs
}

// DefaultTables builds the shipped ladder configuration. Margined ladders are
// tighter than spot: leverage reaches the stop floor sooner.
func DefaultTables() map[TableKey]Ladder {
	tables := make(map[TableKey]Ladder)

	for _, market := range []model.MarketType{model.MarketSpot, model.MarketMargined} {
		step := 0.06
		floor := -0.36
		if market == model.MarketMargined {
			step = 0.05
			floor = -0.30
		}

		tables[TableKey{mode.KindGrind, market}] = Ladder{
			Rungs:          grindRungs(step, "0.25", "0.30", "0.35", "0.40", "0.45"),
			GateTier:       3,
			StopFloor:      floor,
			DeriskFraction: frac("0.5"),
		}

		tables[TableKey{mode.KindRebuy, market}] = Ladder{
			Rungs: []Rung{
				{Threshold: -0.04, Fraction: frac("1.0"), TagSuffix: "rb1"},
				{Threshold: -0.08, Fraction: frac("2.0"), TagSuffix: "rb2"},
			},
			StopFloor:      -0.25,
			DeriskFraction: frac("0.5"),
		}

		tables[TableKey{mode.KindNormal, market}] = Ladder{
			Rungs:          grindRungs(step+0.02, "0.25", "0.30", "0.35"),
			GateTier:       3,
			StopFloor:      floor,
			DeriskFraction: frac("0.5"),
		}

		tables[TableKey{mode.KindTopCoins, market}] = Ladder{
			Rungs:          grindRungs(step, "0.30", "0.35", "0.40", "0.45"),
			GateTier:       3,
			StopFloor:      floor,
			DeriskFraction: frac("0.5"),
		}

		tables[TableKey{mode.KindScalp, market}] = Ladder{
			Rungs: []Rung{
				{Threshold: -0.03, Fraction: frac("0.5"), TagSuffix: "g1"},
			},
			GateTier:       1,
			StopFloor:      -0.10,
			DeriskFraction: frac("0.5"),
		}
	}

	// quick, pump, high_profit and rapid entries do not average down

	return tables
}

// ValidateTables drops malformed ladders so a configuration error degrades to
// "no ladder action" for that mode instead of crashing.
func ValidateTables(tables map[TableKey]Ladder) map[TableKey]Ladder {
	valid := make(map[TableKey]Ladder, len(tables))

	for key, lad := range tables {
		if err := validate(lad); err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"mode":   key.Kind.String(),
				"market": string(key.Market),
			}).Error("invalid ladder table, mode will not ladder")
			continue
		}
		valid[key] = lad
	}

	return valid
}

func validate(lad Ladder) error {
	prev := 0.0
	for i, rung := range lad.Rungs {
		if rung.Threshold > 0 {
			return fmt.Errorf("rung %d threshold %v must be <= 0", i, rung.Threshold)
		}
		if i > 0 && rung.Threshold >= prev {
			return fmt.Errorf("rung %d threshold %v not strictly decreasing", i, rung.Threshold)
		}
		if !rung.Fraction.IsPositive() {
			return fmt.Errorf("rung %d fraction %s must be positive", i, rung.Fraction)
		}
		prev = rung.Threshold
	}
	if lad.StopFloor != 0 {
		if lad.StopFloor > 0 {
			return fmt.Errorf("stop floor %v must be negative", lad.StopFloor)
		}
		if n := len(lad.Rungs); n > 0 && lad.StopFloor >= lad.Rungs[n-1].Threshold {
			return fmt.Errorf("stop floor %v must sit below the last rung", lad.StopFloor)
		}
	}
	return nil
}
