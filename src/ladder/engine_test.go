package ladder

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"positionkeeper/src/mode"
	"positionkeeper/src/model"
)

type stubAcct struct {
	open    map[mode.Kind]int
	refused map[string]bool
}

func (s *stubAcct) OpenCount(kind mode.Kind) int { return s.open[kind] }
func (s *stubAcct) IsAllowed(kind mode.Kind, symbol string) bool {
	return !s.refused[symbol]
}

type stubTargets struct {
	tier map[string]int
}

func (s *stubTargets) BestTier(symbol string) (int, bool) {
	t, ok := s.tier[symbol]
	return t, ok
}

func grindPos(entryPrice float64) *model.Position {
	return &model.Position{
		TradeID:  "t1",
		Symbol:   "BTC/USDT",
		Side:     model.SideLong,
		Market:   model.MarketSpot,
		Leverage: 1.0,
		Entries: []model.Fill{
			{Side: model.FillSideEntry, Quantity: 1, Price: entryPrice, Timestamp: time.Now(), Tag: "120"},
		},
	}
}

func grindMode() mode.OperatingMode {
	return mode.OperatingMode{Kind: mode.KindGrind, Side: model.SideLong, Market: model.MarketSpot}
}

func tick(price float64) model.Tick {
	return model.Tick{Symbol: "BTC/USDT", Price: price, Now: time.Now()}
}

func newTestEngine(acct Accountant, targets TargetLookup) *Engine {
	return NewEngine(DefaultTables(), map[mode.Kind]int{mode.KindGrind: 2}, acct, targets, decimal.NewFromInt(10), nil)
}

func TestNextAddition_FirstRungFires(t *testing.T) {
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, &stubTargets{})
	pos := grindPos(100)

	// -7% excursion crosses the first grind rung at -6%
	action, cursor := e.NextAddition(pos, grindMode(), tick(93), 0)

	if action.Kind != ActionAdd {
		t.Fatalf("expected add, got=%v", action.Kind)
	}
	if cursor != 1 {
		t.Fatalf("cursor must advance past fired rung, got=%d", cursor)
	}
	if action.TagSuffix != "g1" {
		t.Fatalf("expected g1 tag, got=%s", action.TagSuffix)
	}
	// 0.25 of the 100 first-entry stake
	if !action.Stake.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("expected stake 25, got=%s", action.Stake)
	}
}

func TestNextAddition_NoRungAboveThreshold(t *testing.T) {
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, &stubTargets{})
	pos := grindPos(100)

	action, cursor := e.NextAddition(pos, grindMode(), tick(97), 0)

	if action.Kind != ActionNone || cursor != 0 {
		t.Fatalf("expected no action at -3%%, got=%v cursor=%d", action.Kind, cursor)
	}
}

func TestNextAddition_AtMostOneRungPerCall(t *testing.T) {
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, &stubTargets{})
	pos := grindPos(100)

	// -14% has crossed both the -6% and -12% rungs; only the first fires
	action, cursor := e.NextAddition(pos, grindMode(), tick(86), 0)
	if action.Kind != ActionAdd || action.TagSuffix != "g1" || cursor != 1 {
		t.Fatalf("expected first rung only: %+v cursor=%d", action, cursor)
	}

	// next call fires the second
	action, cursor = e.NextAddition(pos, grindMode(), tick(86), cursor)
	if action.Kind != ActionAdd || action.TagSuffix != "g2" || cursor != 2 {
		t.Fatalf("expected second rung: %+v cursor=%d", action, cursor)
	}
}

func TestNextAddition_CursorNeverDecreasesAndRungsAreFinite(t *testing.T) {
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, &stubTargets{})
	pos := grindPos(100)

	cursor := 0
	fires := 0
	prev := 0
	for i := 0; i < 50; i++ {
		var action Action
		action, cursor = e.NextAddition(pos, grindMode(), tick(70), cursor)
		if cursor < prev {
			t.Fatalf("cursor decreased: %d -> %d", prev, cursor)
		}
		prev = cursor
		if action.Kind == ActionAdd {
			fires++
		}
	}
	if rungs := len(DefaultTables()[TableKey{mode.KindGrind, model.MarketSpot}].Rungs); fires > rungs {
		t.Fatalf("ladder with %d rungs fired %d times", rungs, fires)
	}
}

func TestNextAddition_CapacityRefusalKeepsCursor(t *testing.T) {
	acct := &stubAcct{open: map[mode.Kind]int{mode.KindGrind: 2}}
	e := newTestEngine(acct, &stubTargets{})
	pos := grindPos(100)

	action, cursor := e.NextAddition(pos, grindMode(), tick(93), 0)
	if action.Kind != ActionNone || cursor != 0 {
		t.Fatalf("at capacity must defer without consuming the rung: %+v cursor=%d", action, cursor)
	}

	// a slot frees up: the same rung fires now
	acct.open[mode.KindGrind] = 1
	action, cursor = e.NextAddition(pos, grindMode(), tick(93), cursor)
	if action.Kind != ActionAdd || action.TagSuffix != "g1" || cursor != 1 {
		t.Fatalf("freed slot must let the same rung fire: %+v cursor=%d", action, cursor)
	}
}

func TestNextAddition_AllowListRefusalKeepsCursor(t *testing.T) {
	acct := &stubAcct{open: map[mode.Kind]int{}, refused: map[string]bool{"BTC/USDT": true}}
	e := newTestEngine(acct, &stubTargets{})
	pos := grindPos(100)

	action, cursor := e.NextAddition(pos, grindMode(), tick(93), 0)
	if action.Kind != ActionNone || cursor != 0 {
		t.Fatalf("disallowed instrument must not ladder: %+v cursor=%d", action, cursor)
	}
}

func TestNextAddition_SubMinimumStakeConsumesRung(t *testing.T) {
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, &stubTargets{})
	// tiny first entry: 0.25 fraction of a 20 stake is 5, below the 10 minimum
	pos := grindPos(20)
	pos.Entries[0].Quantity = 1

	action, cursor := e.NextAddition(pos, grindMode(), tick(18), 0)
	if action.Kind != ActionNone {
		t.Fatalf("sub-minimum stake must not fire, got=%v", action.Kind)
	}
	if cursor != 1 {
		t.Fatalf("sub-minimum rung must be consumed to avoid retry loops, cursor=%d", cursor)
	}
}

func TestNextAddition_ProfitGateBlocksLaddering(t *testing.T) {
	targets := &stubTargets{tier: map[string]int{"BTC/USDT": 4}}
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, targets)
	pos := grindPos(100)

	action, cursor := e.NextAddition(pos, grindMode(), tick(93), 0)
	if action.Kind != ActionNone || cursor != 0 {
		t.Fatalf("position that saw its target must not average down: %+v", action)
	}

	// below the gate tier the ladder stays active
	targets.tier["BTC/USDT"] = 1
	action, _ = e.NextAddition(pos, grindMode(), tick(93), 0)
	if action.Kind != ActionAdd {
		t.Fatalf("tier below gate must still ladder, got=%v", action.Kind)
	}
}

func TestNextAddition_StopFloorDerisksOnce(t *testing.T) {
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, &stubTargets{})
	pos := grindPos(100)

	// -40% is past the -36% grind floor
	action, cursor := e.NextAddition(pos, grindMode(), tick(60), 2)
	if action.Kind != ActionReduce || action.TagSuffix != "d1" {
		t.Fatalf("expected de-risk at the stop floor: %+v", action)
	}
	if cursor != 2 {
		t.Fatalf("de-risk must not touch the cursor, got=%d", cursor)
	}
	// half the open stake of 60
	if !action.Stake.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("expected stake 30, got=%s", action.Stake)
	}

	// once the de-risk fill is on the book the floor stays quiet
	pos.Exits = append(pos.Exits, model.Fill{Side: model.FillSideExit, Quantity: 0.5, Price: 60, Tag: "d1"})
	action, _ = e.NextAddition(pos, grindMode(), tick(58), 2)
	if action.Kind != ActionNone {
		t.Fatalf("de-risk must be one-shot, got=%v", action.Kind)
	}
}

func TestNextAddition_UnknownModeDoesNotLadder(t *testing.T) {
	e := newTestEngine(&stubAcct{open: map[mode.Kind]int{}}, &stubTargets{})
	pos := grindPos(100)
	om := mode.OperatingMode{Kind: mode.KindRapid, Side: model.SideLong, Market: model.MarketSpot}

	action, cursor := e.NextAddition(pos, om, tick(80), 0)
	if action.Kind != ActionNone || cursor != 0 {
		t.Fatalf("rapid mode has no ladder: %+v", action)
	}
}

func TestValidateTables_DropsMalformedLadder(t *testing.T) {
	tables := map[TableKey]Ladder{
		{mode.KindGrind, model.MarketSpot}: {
			Rungs: []Rung{
				{Threshold: -0.10, Fraction: frac("0.25")},
				{Threshold: -0.05, Fraction: frac("0.25")}, // not decreasing
			},
		},
		{mode.KindRebuy, model.MarketSpot}: {
			Rungs: []Rung{{Threshold: -0.04, Fraction: frac("1.0")}},
		},
	}

	valid := ValidateTables(tables)
	if _, ok := valid[TableKey{mode.KindGrind, model.MarketSpot}]; ok {
		t.Fatalf("malformed ladder survived validation")
	}
	if _, ok := valid[TableKey{mode.KindRebuy, model.MarketSpot}]; !ok {
		t.Fatalf("valid ladder dropped")
	}
}
