package targetcache

import (
	"encoding/json"
	"time"

	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/store"
)

// TierStoploss marks a record written by a stop-loss or de-risk flag rather
// than a profit tier.
const TierStoploss = -1

// Record is the per-instrument best-tier-since-reset state used for
// retracement-triggered exits. Tier only increases until the record is cleared.
type Record struct {
	Tier   int       `json:"tier"`
	Rate   float64   `json:"rate"` // price at which the tier was reached
	Time   time.Time `json:"time"`
	Reason string    `json:"reason,omitempty"` // last exit-reason, empty for tier marks
}

// IsProfitTier reports whether the record marks a reached profit tier.
func (r *Record) IsProfitTier() bool { return r.Tier >= 0 }

// Cache is the profit target cache: a typed wrapper over a persistent
// key/value store keyed by instrument symbol.
type Cache struct {
	store store.Store
}

func New(s store.Store) *Cache {
	return &Cache{store: s}
}

// Load pulls persisted records into memory.
func (c *Cache) Load() error { return c.store.Load() }

// Get returns the record for symbol. A missing or unparseable record is
// "no record", never an error.
func (c *Cache) Get(symbol string) *Record {
	raw, ok := c.store.Get(symbol)
	if !ok {
		return nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		logger.WithError(err).WithField("symbol", symbol).
			Warn("corrupt profit target record, treating as missing")
		return nil
	}
	return &rec
}

// Put overwrites the record for symbol.
func (c *Cache) Put(symbol string, rec Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).
			Error("failed to marshal profit target record")
		return
	}
	c.store.Set(symbol, raw)
}

// Clear removes the record for symbol.
func (c *Cache) Clear(symbol string) { c.store.Remove(symbol) }

// Symbols returns every instrument with a record.
func (c *Cache) Symbols() []string { return c.store.Keys() }

// Save persists pending changes, if any. I/O errors are logged, never fatal:
// the cache stays fully functional in memory.
func (c *Cache) Save() {
	if err := c.store.SaveIfDirty(); err != nil {
		logger.WithError(err).Warn("failed to persist profit target cache")
	}
}
