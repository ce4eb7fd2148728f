package mode

import (
	"testing"
	"time"

	"positionkeeper/src/model"
)

func TestClassify_PrimaryKinds(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		side model.Side
		want Kind
	}{
		{"normal long", []string{"1", "2", "3"}, model.SideLong, KindNormal},
		{"pump long", []string{"21", "22"}, model.SideLong, KindPump},
		{"quick long", []string{"41", "42", "43"}, model.SideLong, KindQuick},
		{"rebuy long", []string{"61", "62"}, model.SideLong, KindRebuy},
		{"high profit long", []string{"81"}, model.SideLong, KindHighProfit},
		{"rapid long", []string{"101", "102", "103"}, model.SideLong, KindRapid},
		{"grind long", []string{"120"}, model.SideLong, KindGrind},
		{"top coins long", []string{"141", "142"}, model.SideLong, KindTopCoins},
		{"scalp long", []string{"161", "162"}, model.SideLong, KindScalp},
		{"normal short", []string{"500", "501"}, model.SideShort, KindNormal},
		{"scalp short", []string{"661"}, model.SideShort, KindScalp},
		{"rapid short", []string{"601"}, model.SideShort, KindRapid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.tags, tt.side, model.MarketSpot)
			if got.Kind != tt.want {
				t.Fatalf("kind mismatch. got=%s want=%s", got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_ExtensionTagsDoNotChangeKind(t *testing.T) {
	// a rebuy position that later received grind-ladder additions
	got := Classify([]string{"61", "g1", "g2", "rb1"}, model.SideLong, model.MarketSpot)
	if got.Kind != KindRebuy {
		t.Fatalf("expected rebuy, got=%s", got.Kind)
	}

	// a scalp position with a de-risk marker
	got = Classify([]string{"161", "d1"}, model.SideLong, model.MarketMargined)
	if got.Kind != KindScalp {
		t.Fatalf("expected scalp, got=%s", got.Kind)
	}
}

func TestClassify_MixedPrimariesFirstWins(t *testing.T) {
	got := Classify([]string{"101", "1"}, model.SideLong, model.MarketSpot)
	if got.Kind != KindRapid {
		t.Fatalf("expected first primary to win, got=%s", got.Kind)
	}
}

func TestClassify_UnknownTagsFallBackToNormal(t *testing.T) {
	got := Classify([]string{"no_such_tag"}, model.SideLong, model.MarketSpot)
	if got.Kind != KindNormal {
		t.Fatalf("expected normal fallback, got=%s", got.Kind)
	}

	got = Classify(nil, model.SideShort, model.MarketMargined)
	if got.Kind != KindNormal {
		t.Fatalf("expected normal for empty tags, got=%s", got.Kind)
	}
}

func TestClassify_ShortTablesAreShifted(t *testing.T) {
	// "61" is a long rebuy tag; on the short side it is unknown
	got := Classify([]string{"61"}, model.SideShort, model.MarketSpot)
	if got.Kind != KindNormal {
		t.Fatalf("expected normal, got=%s", got.Kind)
	}

	got = Classify([]string{"561"}, model.SideShort, model.MarketSpot)
	if got.Kind != KindRebuy {
		t.Fatalf("expected rebuy, got=%s", got.Kind)
	}
}

func TestClassifyPosition_UsesEntryTagLog(t *testing.T) {
	p := &model.Position{
		Symbol: "ETH/USDT",
		Side:   model.SideLong,
		Market: model.MarketSpot,
		Entries: []model.Fill{
			{Side: model.FillSideEntry, Quantity: 1, Price: 100, Timestamp: time.Now(), Tag: "61"},
			{Side: model.FillSideEntry, Quantity: 1, Price: 95, Timestamp: time.Now(), Tag: "g1"},
		},
	}

	got := ClassifyPosition(p)
	if got.Kind != KindRebuy {
		t.Fatalf("expected rebuy, got=%s", got.Kind)
	}
	if got.Side != model.SideLong || got.Market != model.MarketSpot {
		t.Fatalf("side/market not carried through: %+v", got)
	}
}
