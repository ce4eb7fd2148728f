package slots

import (
	"testing"

	"positionkeeper/src/mode"
	"positionkeeper/src/model"
)

type stubSource struct{ positions []*model.Position }

func (s stubSource) OpenPositions() []*model.Position { return s.positions }

func openPos(symbol, tag string) *model.Position {
	return &model.Position{
		Symbol: symbol,
		Side:   model.SideLong,
		Market: model.MarketSpot,
		Entries: []model.Fill{
			{Side: model.FillSideEntry, Quantity: 1, Price: 100, Tag: tag},
		},
	}
}

func TestAccountant_OpenCountScansLive(t *testing.T) {
	src := &stubSource{positions: []*model.Position{
		openPos("BTC/USDT", "120"),
		openPos("ETH/USDT", "120"),
		openPos("SOL/USDT", "1"),
	}}
	a := New(src, nil)

	if got := a.OpenCount(mode.KindGrind); got != 2 {
		t.Fatalf("expected 2 grind positions, got=%d", got)
	}
	if got := a.OpenCount(mode.KindNormal); got != 1 {
		t.Fatalf("expected 1 normal position, got=%d", got)
	}

	// counts follow the live set, nothing is cached
	src.positions = src.positions[:1]
	if got := a.OpenCount(mode.KindGrind); got != 1 {
		t.Fatalf("expected recount after close, got=%d", got)
	}
}

func TestAccountant_ClosedPositionsExcluded(t *testing.T) {
	closed := openPos("BTC/USDT", "120")
	closed.Exits = []model.Fill{{Side: model.FillSideExit, Quantity: 1, Price: 110}}

	a := New(stubSource{positions: []*model.Position{closed}}, nil)
	if got := a.OpenCount(mode.KindGrind); got != 0 {
		t.Fatalf("closed position counted, got=%d", got)
	}
}

func TestAccountant_AllowList(t *testing.T) {
	a := New(stubSource{}, map[mode.Kind][]string{
		mode.KindGrind: {"BTC/USDT", "ETH/USDT"},
	})

	if !a.IsAllowed(mode.KindGrind, "BTC/USDT") {
		t.Fatalf("listed instrument must be allowed")
	}
	if a.IsAllowed(mode.KindGrind, "DOGE/USDT") {
		t.Fatalf("unlisted instrument must be refused")
	}
	// kinds without a list allow everything
	if !a.IsAllowed(mode.KindRebuy, "DOGE/USDT") {
		t.Fatalf("kind without allow-list must allow all")
	}
}
