package exitengine

import (
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/hold"
	"positionkeeper/src/mode"
	"positionkeeper/src/model"
	"positionkeeper/src/profit"
	"positionkeeper/src/targetcache"
)

// State is the derived lifecycle phase of a position, read off its profit
// target record. It exists for observability; the engine itself branches on
// the record directly.
type State int

const (
	StateOpen State = iota
	StateTargetSet
	StateStoplossFlagged
	StateDeriskFlagged
)

func (s State) String() string {
	switch s {
	case StateTargetSet:
		return "target_set"
	case StateStoplossFlagged:
		return "stoploss_flagged"
	case StateDeriskFlagged:
		return "derisk_flagged"
	default:
		return "open"
	}
}

// StateOf derives the lifecycle phase from a profit target record.
func StateOf(rec *targetcache.Record) State {
	switch {
	case rec == nil:
		return StateOpen
	case rec.IsProfitTier():
		return StateTargetSet
	case rec.Reason == ReasonDerisk:
		return StateDeriskFlagged
	default:
		return StateStoplossFlagged
	}
}

// ReasonDerisk is the record reason written when the ladder de-risks a
// position at its stop floor.
const ReasonDerisk = "exit_derisk"

// Decision is the outcome of one exit evaluation.
type Decision struct {
	Close  bool
	Reason string
}

var noAction = Decision{}

// HoldLookup suppresses exits for trades pinned by the operator.
type HoldLookup interface {
	MinRatioFor(tradeID, symbol string) (float64, bool)
}

var _ HoldLookup = (*hold.Overrides)(nil)

// Engine decides whether a position should be closed at the current tick.
// Evaluation order is fixed: hold suppression, flagged-stoploss re-evaluation,
// fresh doom check, profit tier tracking with retracement confirmation.
type Engine struct {
	stops   map[TableKey]StopSet
	tiers   map[TableKey][]Tier
	targets *targetcache.Cache
	holds   HoldLookup

	// deriskEnabled switches flagged stoplosses from direct threshold compares
	// to recorded-rate compares after the cooldown.
	deriskEnabled bool
	cooldown      time.Duration

	// clearFloor is the loss ratio at which a stale positive tier record is
	// dropped so a recovered position starts tier tracking from scratch.
	clearFloor float64

	// momentumOversold defers a retracement exit by one evaluation while the
	// short-horizon oscillator reads below it (above 100-it for shorts).
	momentumOversold float64

	log *logger.Entry
}

type Option func(*Engine)

func WithDerisk(enabled bool) Option {
	return func(e *Engine) { e.deriskEnabled = enabled }
}

func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.cooldown = d }
}

func WithHolds(h HoldLookup) Option {
	return func(e *Engine) { e.holds = h }
}

func NewEngine(targets *targetcache.Cache, opts ...Option) *Engine {
	e := &Engine{
		stops:            DefaultStopTables(),
		tiers:            DefaultTierTables(),
		targets:          targets,
		cooldown:         60 * time.Minute,
		clearFloor:       -0.08,
		momentumOversold: 30,
		log:              logger.NewEntry(logger.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one exit decision for pos at the given tick. It may update the
// profit target cache as a side effect; the caller owns persisting it.
func (e *Engine) Evaluate(pos *model.Position, om mode.OperatingMode, tick model.Tick) Decision {
	if pos == nil || pos.FirstEntry() == nil || tick.Price <= 0 {
		return noAction
	}

	b := profit.Compute(pos, tick.Price)
	if !b.Valid() {
		e.log.WithField("symbol", pos.Symbol).Warn("non-finite profit, skipping exit evaluation")
		return noAction
	}
	cur := b.VsInitialEntry

	// Operator holds pin losing trades open in live runs. Forced closes and
	// batch runs bypass them.
	if !tick.Backtest && !tick.Forced && e.holds != nil {
		if min, ok := e.holds.MinRatioFor(pos.TradeID, pos.Symbol); ok && cur < min {
			e.log.WithFields(logger.Fields{
				"symbol": pos.Symbol,
				"trade":  pos.TradeID,
				"profit": cur,
				"min":    min,
			}).Debug("exit suppressed by hold override")
			return noAction
		}
	}

	rec := e.targets.Get(pos.Symbol)

	if rec != nil && !rec.IsProfitTier() {
		return e.reevaluateFlagged(pos, om, tick, cur, rec)
	}

	if d, closed := e.freshDoom(pos, om, tick, cur); closed {
		return d
	}

	return e.trackTiers(pos, om, tick, cur, rec)
}

// reevaluateFlagged handles a position whose record marks a stoploss or
// de-risk flag instead of a profit tier.
func (e *Engine) reevaluateFlagged(pos *model.Position, om mode.OperatingMode, tick model.Tick, cur float64, rec *targetcache.Record) Decision {
	if e.deriskEnabled {
		if tick.Now.Sub(rec.Time) < e.cooldown {
			return noAction
		}

		recorded := profit.Compute(pos, rec.Rate)
		if !recorded.Valid() {
			return noAction
		}
		if cur < recorded.VsInitialEntry {
			e.log.WithFields(logger.Fields{
				"symbol": pos.Symbol,
				"profit": cur,
				"reason": rec.Reason,
			}).Info("flagged stoploss confirmed after cooldown")
			return Decision{Close: true, Reason: rec.Reason}
		}

		// recovered above the flagged rate: back to plain tracking
		e.targets.Clear(pos.Symbol)
		return noAction
	}

	// Without de-risking the flag degrades to a plain threshold compare.
	doom := e.doomFor(om, tick, pos.Side)
	if doom > 0 && cur <= -doom {
		return Decision{Close: true, Reason: rec.Reason}
	}
	e.targets.Clear(pos.Symbol)
	return noAction
}

func (e *Engine) freshDoom(pos *model.Position, om mode.OperatingMode, tick model.Tick, cur float64) (Decision, bool) {
	doom := e.doomFor(om, tick, pos.Side)
	if doom <= 0 || cur > -doom {
		return noAction, false
	}

	reason := fmt.Sprintf("exit_%s_stoploss_doom", om.Kind)
	e.targets.Put(pos.Symbol, targetcache.Record{
		Tier:   targetcache.TierStoploss,
		Rate:   tick.Price,
		Time:   tick.Now,
		Reason: reason,
	})
	e.log.WithFields(logger.Fields{
		"symbol": pos.Symbol,
		"mode":   om.Kind.String(),
		"profit": cur,
		"doom":   doom,
	}).Warn("doom stoploss hit")
	return Decision{Close: true, Reason: reason}, true
}

// trackTiers maintains the best-tier record and confirms retracement exits
// against it.
func (e *Engine) trackTiers(pos *model.Position, om mode.OperatingMode, tick model.Tick, cur float64, rec *targetcache.Record) Decision {
	if cur <= 0 {
		// A deep round trip invalidates the old high-water mark.
		if rec != nil && cur <= e.clearFloor {
			e.log.WithFields(logger.Fields{
				"symbol": pos.Symbol,
				"tier":   rec.Tier,
				"profit": cur,
			}).Info("stale profit tier cleared after round trip")
			e.targets.Clear(pos.Symbol)
		}
		return noAction
	}

	tiers := e.tiers[TableKey{Kind: om.Kind, Market: om.Market}]
	if len(tiers) == 0 {
		return noAction
	}

	idx, inBand := tierIndexFor(tiers, cur)

	if rec == nil {
		if inBand {
			e.targets.Put(pos.Symbol, targetcache.Record{Tier: idx, Rate: tick.Price, Time: tick.Now})
			e.log.WithFields(logger.Fields{
				"symbol": pos.Symbol,
				"tier":   idx,
				"profit": cur,
			}).Info("profit tier reached")
		}
		return noAction
	}

	if inBand && idx > rec.Tier {
		e.targets.Put(pos.Symbol, targetcache.Record{Tier: idx, Rate: tick.Price, Time: tick.Now})
		return noAction
	}

	recorded := profit.Compute(pos, rec.Rate)
	if !recorded.Valid() {
		return noAction
	}
	if rec.Tier >= len(tiers) {
		return noAction
	}
	margin := tiers[rec.Tier].Margin

	if recorded.VsInitialEntry-cur > margin {
		if e.oversold(tick, pos.Side) {
			e.log.WithField("symbol", pos.Symbol).
				Debug("retracement exit deferred on oversold momentum")
			return noAction
		}
		e.targets.Clear(pos.Symbol)
		e.log.WithFields(logger.Fields{
			"symbol":   pos.Symbol,
			"tier":     rec.Tier,
			"recorded": recorded.VsInitialEntry,
			"profit":   cur,
		}).Info("profit retracement exit")
		return Decision{Close: true, Reason: fmt.Sprintf("exit_profit_t%d", rec.Tier)}
	}

	return noAction
}

func (e *Engine) doomFor(om mode.OperatingMode, tick model.Tick, side model.Side) float64 {
	set, ok := e.stops[TableKey{Kind: om.Kind, Market: om.Market}]
	if !ok {
		return 0
	}
	if set.DoomDefensive > 0 && tick.TrendAgainst(side) {
		return set.DoomDefensive
	}
	return set.Doom
}

func (e *Engine) oversold(tick model.Tick, side model.Side) bool {
	if tick.Momentum <= 0 || e.momentumOversold <= 0 {
		return false
	}
	if side == model.SideShort {
		return tick.Momentum > 100-e.momentumOversold
	}
	return tick.Momentum < e.momentumOversold
}
