package mode

import "strconv"

// Entry tag numbering follows the upstream strategy conventions: long entries
// use the 1..166 range, short entries the same layout shifted by 500.
var longTagKinds = buildTagTable(0)
var shortTagKinds = buildTagTable(500)

// Extension tags are appended by ladder fills (grind additions, rebuy
// additions, de-risk partial closes) and never affect classification.
var extensionTags = map[string]struct{}{
	"g1": {}, "g2": {}, "g3": {}, "g4": {}, "g5": {}, "g6": {},
	"rb1": {}, "rb2": {},
	"d1": {}, "d2": {}, "d3": {},
}

func buildTagTable(offset int) map[string]Kind {
	table := make(map[string]Kind)
	add := func(kind Kind, lo, hi int) {
		for n := lo; n <= hi; n++ {
			table[strconv.Itoa(n+offset)] = kind
		}
	}
	add(KindNormal, 1, 20)
	add(KindPump, 21, 26)
	add(KindQuick, 41, 49)
	add(KindRebuy, 61, 62)
	add(KindHighProfit, 81, 86)
	add(KindRapid, 101, 106)
	add(KindGrind, 120, 120)
	add(KindTopCoins, 141, 142)
	add(KindScalp, 161, 166)
	return table
}
