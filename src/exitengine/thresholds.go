package exitengine

import (
	"positionkeeper/src/mode"
	"positionkeeper/src/model"
)

// TableKey selects threshold tables by mode kind and market type.
type TableKey struct {
	Kind   mode.Kind
	Market model.MarketType
}

// StopSet carries the terminal loss thresholds of one (mode, market)
// combination, as positive ratios against the initial entry stake.
type StopSet struct {
	Doom float64

	// DoomDefensive replaces Doom when the long-horizon trend filter points
	// against the position.
	DoomDefensive float64
}

// Tier is one profit band. The band spans [Lower, next tier's Lower); Margin
// is the retracement below the recorded rate-derived profit that confirms an
// exit from this tier.
type Tier struct {
	Lower  float64
	Margin float64
}

var defaultTiers = []Tier{
	{Lower: 0.001, Margin: 0.008},
	{Lower: 0.01, Margin: 0.010},
	{Lower: 0.02, Margin: 0.012},
	{Lower: 0.03, Margin: 0.016},
	{Lower: 0.05, Margin: 0.024},
	{Lower: 0.08, Margin: 0.035},
	{Lower: 0.12, Margin: 0.050},
	{Lower: 0.20, Margin: 0.070},
}

// fastTiers confirm quicker: rapid and scalp entries are not meant to ride out
// deep retracements.
var fastTiers = []Tier{
	{Lower: 0.001, Margin: 0.004},
	{Lower: 0.01, Margin: 0.006},
	{Lower: 0.02, Margin: 0.008},
	{Lower: 0.04, Margin: 0.012},
	{Lower: 0.08, Margin: 0.020},
}

var spotDooms = map[mode.Kind]StopSet{
	mode.KindNormal:     {Doom: 0.20, DoomDefensive: 0.16},
	mode.KindPump:       {Doom: 0.20, DoomDefensive: 0.16},
	mode.KindQuick:      {Doom: 0.18, DoomDefensive: 0.15},
	mode.KindRebuy:      {Doom: 0.25, DoomDefensive: 0.20},
	mode.KindHighProfit: {Doom: 0.20, DoomDefensive: 0.16},
	mode.KindRapid:      {Doom: 0.125, DoomDefensive: 0.10},
	mode.KindGrind:      {Doom: 0.30, DoomDefensive: 0.25},
	mode.KindTopCoins:   {Doom: 0.18, DoomDefensive: 0.15},
	mode.KindScalp:      {Doom: 0.10, DoomDefensive: 0.08},
}

// DefaultStopTables builds the shipped stop thresholds. Margined stops sit
// tighter than spot because the ratios are against committed margin.
func DefaultStopTables() map[TableKey]StopSet {
	tables := make(map[TableKey]StopSet, len(spotDooms)*2)
	for kind, set := range spotDooms {
		tables[TableKey{kind, model.MarketSpot}] = set
		tables[TableKey{kind, model.MarketMargined}] = StopSet{
			Doom:          set.Doom * 0.8,
			DoomDefensive: set.DoomDefensive * 0.8,
		}
	}
	return tables
}

// DefaultTierTables builds the shipped profit tier bands.
func DefaultTierTables() map[TableKey][]Tier {
	tables := make(map[TableKey][]Tier)
	for kind := range spotDooms {
		bands := defaultTiers
		if kind == mode.KindRapid || kind == mode.KindScalp {
			bands = fastTiers
		}
		tables[TableKey{kind, model.MarketSpot}] = bands
		tables[TableKey{kind, model.MarketMargined}] = bands
	}
	return tables
}

// tierIndexFor maps a positive profit ratio into a band, or ok=false when the
// ratio sits below the lowest band.
func tierIndexFor(tiers []Tier, ratio float64) (int, bool) {
	idx := -1
	for i := range tiers {
		if ratio >= tiers[i].Lower {
			idx = i
		}
	}
	if idx < 0 {
		return 0, false
	}
	return idx, true
}
