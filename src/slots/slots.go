package slots

import (
	"sync"

	"positionkeeper/src/mode"
	"positionkeeper/src/model"
)

// PositionSource exposes the host's currently open positions. The accountant
// re-derives its counts from a live scan on every call so it can never drift
// from the position set of record. Implementations must return positions that
// are stable for the duration of the call, e.g. snapshots taken under the
// book lock, since the accountant reads their fills.
type PositionSource interface {
	OpenPositions() []*model.Position
}

// Accountant provides the cross-instrument counters and allow-lists gating
// the concurrency-limited modes. Calls are serialized so two ladder decisions
// in the same pass cannot both claim the last remaining slot.
type Accountant struct {
	mu     sync.Mutex
	source PositionSource
	allow  map[mode.Kind]map[string]struct{}
}

// New builds an accountant. allowLists maps a mode kind to the instrument
// symbols permitted to use it; a kind with no list allows every instrument.
func New(source PositionSource, allowLists map[mode.Kind][]string) *Accountant {
	allow := make(map[mode.Kind]map[string]struct{}, len(allowLists))
	for kind, symbols := range allowLists {
		set := make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			set[s] = struct{}{}
		}
		allow[kind] = set
	}
	return &Accountant{source: source, allow: allow}
}

// OpenCount returns how many currently open positions classify into kind.
func (a *Accountant) OpenCount(kind mode.Kind) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source == nil {
		return 0
	}

	count := 0
	for _, pos := range a.source.OpenPositions() {
		if pos == nil || pos.IsClosed() {
			continue
		}
		if mode.ClassifyPosition(pos).Kind == kind {
			count++
		}
	}
	return count
}

// IsAllowed reports whether the instrument may use the given mode.
func (a *Accountant) IsAllowed(kind mode.Kind, symbol string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	set, ok := a.allow[kind]
	if !ok || len(set) == 0 {
		return true
	}
	_, ok = set[symbol]
	return ok
}
