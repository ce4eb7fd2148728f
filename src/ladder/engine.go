package ladder

import (
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/mode"
	"positionkeeper/src/model"
	"positionkeeper/src/profit"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionAdd
	ActionReduce
)

// Action is the ladder decision for one evaluation: nothing, add stake to the
// position, or de-risk part of it.
type Action struct {
	Kind      ActionKind
	Stake     decimal.Decimal // quote-currency amount to add or close
	Fraction  decimal.Decimal // the rung fraction behind Stake
	TagSuffix string          // tag for the resulting fill
}

// Accountant gates concurrency-limited modes across all instruments.
type Accountant interface {
	OpenCount(kind mode.Kind) int
	IsAllowed(kind mode.Kind, symbol string) bool
}

// TargetLookup exposes the best profit tier recorded for an instrument.
type TargetLookup interface {
	BestTier(symbol string) (int, bool)
}

// Engine walks ladder tables and decides the next addition for a position.
// At most one rung fires per call; a rung refused by the accountant is not
// consumed and stays eligible next tick.
type Engine struct {
	tables   map[TableKey]Ladder
	limits   map[mode.Kind]int
	acct     Accountant
	targets  TargetLookup
	minStake decimal.Decimal
	log      *logger.Entry
}

func NewEngine(
	tables map[TableKey]Ladder,
	limits map[mode.Kind]int,
	acct Accountant,
	targets TargetLookup,
	minStake decimal.Decimal,
	log *logger.Entry,
) *Engine {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Engine{
		tables:   ValidateTables(tables),
		limits:   limits,
		acct:     acct,
		targets:  targets,
		minStake: minStake,
		log:      log,
	}
}

// NextAddition returns the ladder action for pos at the given tick, plus the
// updated rung cursor. The cursor never decreases; it only advances when a
// rung fires or is permanently skipped for being below the venue minimum.
func (e *Engine) NextAddition(pos *model.Position, om mode.OperatingMode, tick model.Tick, cursor int) (Action, int) {
	none := Action{Kind: ActionNone}

	if pos == nil || pos.FirstEntry() == nil || tick.Price <= 0 {
		return none, cursor
	}

	lad, ok := e.tables[TableKey{Kind: om.Kind, Market: om.Market}]
	if !ok {
		return none, cursor
	}

	b := profit.Compute(pos, tick.Price)
	if !b.Valid() {
		e.log.WithField("symbol", pos.Symbol).Warn("non-finite profit, skipping ladder evaluation")
		return none, cursor
	}
	excursion := b.VsInitialEntry

	// Beyond the stop floor the ladder stops adding: de-risk once, then leave
	// the position to the exit engine.
	if lad.StopFloor < 0 && excursion <= lad.StopFloor {
		if pos.HasExitTagPrefix("d") {
			return none, cursor
		}
		openStake := decimal.NewFromFloat(pos.OpenQuantity() * tick.Price)
		stake := lad.DeriskFraction.Mul(openStake)
		if stake.LessThan(e.minStake) {
			return none, cursor
		}
		e.log.WithFields(logger.Fields{
			"symbol":    pos.Symbol,
			"mode":      om.Kind.String(),
			"excursion": excursion,
		}).Info("stop floor breached, de-risking")
		return Action{Kind: ActionReduce, Stake: stake, Fraction: lad.DeriskFraction, TagSuffix: "d1"}, cursor
	}

	// Positions that already reached their profit target are not averaged down.
	if lad.GateTier > 0 && e.targets != nil {
		if tier, ok := e.targets.BestTier(pos.Symbol); ok && tier >= lad.GateTier {
			return none, cursor
		}
	}

	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(lad.Rungs) {
		return none, cursor
	}

	// Thresholds decrease strictly, so only the cursor rung can be the first
	// crossed one.
	rung := lad.Rungs[cursor]
	if excursion > rung.Threshold {
		return none, cursor
	}

	// Capacity and allow-list refusals do not consume the rung.
	if max, limited := e.limits[om.Kind]; limited && e.acct != nil {
		if open := e.acct.OpenCount(om.Kind); open >= max {
			e.log.WithFields(logger.Fields{
				"symbol": pos.Symbol,
				"mode":   om.Kind.String(),
				"open":   open,
				"max":    max,
			}).Debug("mode at capacity, rung deferred")
			return none, cursor
		}
	}
	if e.acct != nil && !e.acct.IsAllowed(om.Kind, pos.Symbol) {
		return none, cursor
	}

	first := pos.FirstEntry()
	stake := rung.Fraction.Mul(decimal.NewFromFloat(first.Quantity * first.Price))
	if stake.LessThan(e.minStake) {
		// retrying a sub-minimum rung would skip forever, so consume it
		e.log.WithFields(logger.Fields{
			"symbol": pos.Symbol,
			"mode":   om.Kind.String(),
			"rung":   cursor,
			"stake":  stake.String(),
			"min":    e.minStake.String(),
		}).Warn("rung stake below venue minimum, rung skipped")
		return none, cursor + 1
	}

	e.log.WithFields(logger.Fields{
		"symbol":    pos.Symbol,
		"mode":      om.Kind.String(),
		"rung":      cursor,
		"excursion": excursion,
		"stake":     stake.String(),
	}).Info("ladder rung fired")

	return Action{Kind: ActionAdd, Stake: stake, Fraction: rung.Fraction, TagSuffix: rung.TagSuffix}, cursor + 1
}
