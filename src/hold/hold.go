package hold

import (
	"encoding/json"
	"os"
	"sync"

	logger "github.com/sirupsen/logrus"
)

// Document is the externally maintained hold file layout: minimum profit
// ratios keyed by trade id and by instrument symbol.
type Document struct {
	TradeIDs   map[string]float64 `json:"trade_ids"`
	TradePairs map[string]float64 `json:"trade_pairs"`
}

// Source supplies the current hold document. Implementations: local JSON file,
// remote HTTP endpoint.
type Source interface {
	Fetch() (*Document, error)
}

// Overrides holds the in-memory view of the hold entries. It is read-only from
// the keeper's perspective; Reload replaces the whole view when the designated
// reload hook fires, never on the tick path.
type Overrides struct {
	mu      sync.RWMutex
	source  Source
	byTrade map[string]float64
	byPair  map[string]float64
}

func NewOverrides(source Source) *Overrides {
	return &Overrides{
		source:  source,
		byTrade: make(map[string]float64),
		byPair:  make(map[string]float64),
	}
}

// Reload re-reads the backing source. On failure the previous view is kept:
// a stale hold is safer than dropping all holds mid-session.
func (o *Overrides) Reload() {
	if o.source == nil {
		return
	}

	doc, err := o.source.Fetch()
	if err != nil {
		logger.WithError(err).Warn("hold override reload failed, keeping previous entries")
		return
	}

	byTrade := make(map[string]float64, len(doc.TradeIDs))
	for id, ratio := range doc.TradeIDs {
		byTrade[id] = ratio
	}
	byPair := make(map[string]float64, len(doc.TradePairs))
	for pair, ratio := range doc.TradePairs {
		byPair[pair] = ratio
	}

	o.mu.Lock()
	o.byTrade = byTrade
	o.byPair = byPair
	o.mu.Unlock()

	logger.WithFields(logger.Fields{
		"trade_ids":   len(byTrade),
		"trade_pairs": len(byPair),
	}).Info("hold overrides reloaded")
}

// MinRatioFor returns the minimum profit ratio below which exits are
// suppressed for the given trade, if one is configured. A per-trade entry
// takes precedence over a per-instrument one.
func (o *Overrides) MinRatioFor(tradeID, symbol string) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if ratio, ok := o.byTrade[tradeID]; ok {
		return ratio, true
	}
	if ratio, ok := o.byPair[symbol]; ok {
		return ratio, true
	}
	return 0, false
}

// FileSource reads the hold document from a local JSON file. A missing file
// means no holds.
type FileSource struct {
	Path string
}

func (f FileSource) Fetch() (*Document, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
