package keeper

import (
	"sync"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/exitengine"
	"positionkeeper/src/hold"
	"positionkeeper/src/ladder"
	"positionkeeper/src/mode"
	"positionkeeper/src/model"
	"positionkeeper/src/targetcache"
)

// StakeAdjustment is the keeper's sizing answer for one tick: add stake to the
// position or de-risk part of it. Tag goes on the resulting fill; Cursor is the
// advanced rung cursor the host must persist back onto the position.
type StakeAdjustment struct {
	Reduce bool
	Stake  decimal.Decimal
	Tag    string
	Cursor int
}

// ExitSignal asks the host to close the position with the given reason.
type ExitSignal struct {
	Reason string
}

// Keeper is the host-facing facade. One instance per bot; the mutex serializes
// sizing decisions so concurrent ticks cannot split the last mode slot, and
// store access stays single-writer.
type Keeper struct {
	mu      sync.Mutex
	ladder  *ladder.Engine
	exits   *exitengine.Engine
	targets *targetcache.Cache
	holds   *hold.Overrides
	log     *logger.Entry
}

func New(lad *ladder.Engine, exits *exitengine.Engine, targets *targetcache.Cache, holds *hold.Overrides) *Keeper {
	return &Keeper{
		ladder:  lad,
		exits:   exits,
		targets: targets,
		holds:   holds,
		log:     logger.NewEntry(logger.StandardLogger()),
	}
}

// TargetLookup adapts the profit target cache to the ladder's gate interface.
type TargetLookup struct {
	Cache *targetcache.Cache
}

func (t TargetLookup) BestTier(symbol string) (int, bool) {
	rec := t.Cache.Get(symbol)
	if rec == nil || !rec.IsProfitTier() {
		return 0, false
	}
	return rec.Tier, true
}

// AdjustStake evaluates the position's ladder for this tick. It returns nil
// when nothing should change; data errors degrade to nil, never to a panic.
func (k *Keeper) AdjustStake(pos *model.Position, tick model.Tick) *StakeAdjustment {
	if pos == nil || pos.IsClosed() {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	om := mode.ClassifyPosition(pos)
	action, cursor := k.ladder.NextAddition(pos, om, tick, pos.RungCursor)

	if cursor > pos.RungCursor {
		pos.RungCursor = cursor
	}

	switch action.Kind {
	case ladder.ActionAdd:
		return &StakeAdjustment{Stake: action.Stake, Tag: action.TagSuffix, Cursor: pos.RungCursor}
	case ladder.ActionReduce:
		// Flag the de-risk so the exit engine owns the follow-up.
		k.targets.Put(pos.Symbol, targetcache.Record{
			Tier:   targetcache.TierStoploss,
			Rate:   tick.Price,
			Time:   tick.Now,
			Reason: exitengine.ReasonDerisk,
		})
		return &StakeAdjustment{Reduce: true, Stake: action.Stake, Tag: action.TagSuffix, Cursor: pos.RungCursor}
	default:
		return nil
	}
}

// CheckExit evaluates the position's exit state machine for this tick. It
// returns nil when the position should stay open.
func (k *Keeper) CheckExit(pos *model.Position, tick model.Tick) *ExitSignal {
	if pos == nil || pos.IsClosed() {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	om := mode.ClassifyPosition(pos)
	d := k.exits.Evaluate(pos, om, tick)
	if !d.Close {
		return nil
	}
	return &ExitSignal{Reason: d.Reason}
}

// NotifyClosed drops the per-instrument target record after the host has
// actually closed the position, so the next trade on the instrument starts
// from a clean lifecycle.
func (k *Keeper) NotifyClosed(symbol string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.targets.Clear(symbol)
}

// ReloadHolds re-reads the hold override source. Called from the runner's
// reload hook, never on the tick path.
func (k *Keeper) ReloadHolds() {
	if k.holds == nil {
		return
	}
	k.holds.Reload()
}

// Flush persists pending target cache changes. Unchanged state writes nothing.
func (k *Keeper) Flush() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.targets.Save()
}
