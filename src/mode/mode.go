package mode

import (
	"positionkeeper/src/model"

	logger "github.com/sirupsen/logrus"
)

// Kind is the base operating classification of a position, derived from its
// entry tags. Primary kinds are mutually exclusive; extension tags added by
// later ladder fills never change the kind.
type Kind int

const (
	KindNormal Kind = iota
	KindPump
	KindQuick
	KindRebuy
	KindHighProfit
	KindRapid
	KindGrind
	KindTopCoins
	KindScalp
)

var kindNames = map[Kind]string{
	KindNormal:     "normal",
	KindPump:       "pump",
	KindQuick:      "quick",
	KindRebuy:      "rebuy",
	KindHighProfit: "high_profit",
	KindRapid:      "rapid",
	KindGrind:      "grind",
	KindTopCoins:   "top_coins",
	KindScalp:      "scalp",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "normal"
}

// OperatingMode is a kind crossed with side and market type. It is recomputed
// from the entry-tag string whenever needed, never stored on the position.
type OperatingMode struct {
	Kind   Kind
	Side   model.Side
	Market model.MarketType
}

func (m OperatingMode) String() string {
	return m.Kind.String() + "_" + string(m.Side) + "_" + string(m.Market)
}

// Classify partitions the position's entry tags against the fixed per-kind tag
// sets. Tags spanning more than one primary kind are a configuration error
// upstream: the first entry's tag wins and a warning is logged. Unknown tags
// fall back to normal. Extension tags only narrow behavior and are skipped.
func Classify(tags []string, side model.Side, market model.MarketType) OperatingMode {
	om := OperatingMode{Kind: KindNormal, Side: side, Market: market}

	table := longTagKinds
	if side == model.SideShort {
		table = shortTagKinds
	}

	seen := false
	for _, tag := range tags {
		if _, ext := extensionTags[tag]; ext {
			continue
		}
		kind, ok := table[tag]
		if !ok {
			logger.WithFields(logger.Fields{
				"tag":  tag,
				"side": side,
			}).Warn("unknown entry tag, treating as normal mode")
			continue
		}
		if !seen {
			om.Kind = kind
			seen = true
			continue
		}
		if kind != om.Kind {
			logger.WithFields(logger.Fields{
				"tag":      tag,
				"primary":  om.Kind.String(),
				"conflict": kind.String(),
			}).Warn("entry tags span multiple primary modes, keeping first")
		}
	}

	return om
}

// ClassifyPosition is Classify applied to a position's entry-tag log.
func ClassifyPosition(pos *model.Position) OperatingMode {
	return Classify(pos.EntryTags(), pos.Side, pos.Market)
}
