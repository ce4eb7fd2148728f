package model

import (
	"strings"
	"time"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

type MarketType string

const (
	MarketSpot     MarketType = "spot"
	MarketMargined MarketType = "margined"
)

const (
	FillSideEntry = "entry"
	FillSideExit  = "exit"
)

// Fill is a single executed order belonging to a position. Immutable once recorded.
type Fill struct {
	Side      string    `json:"side"` // entry, exit
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	FeeRate   float64   `json:"fee_rate"`
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag,omitempty"`
}

// Position is an open-or-closed trade on one instrument. Entry and exit fills are
// append-only and ordered by execution time.
type Position struct {
	TradeID    string     `json:"trade_id"`
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	Market     MarketType `json:"market"`
	Leverage   float64    `json:"leverage"` // >= 1.0
	Funding    float64    `json:"funding"`  // accumulated funding adjustment, margined only
	Entries    []Fill     `json:"entries"`
	Exits      []Fill     `json:"exits"`
	OpenedAt   time.Time  `json:"opened_at"`
	RungCursor int        `json:"rung_cursor"` // index of the next ladder rung eligible to fire
}

func (p *Position) IsShort() bool { return p.Side == SideShort }

// Snapshot returns a deep copy that can be read while the original keeps
// accumulating fills under its owner's lock.
func (p *Position) Snapshot() *Position {
	c := *p
	c.Entries = append([]Fill(nil), p.Entries...)
	c.Exits = append([]Fill(nil), p.Exits...)
	return &c
}

// FirstEntry returns the initial entry fill, or nil for a malformed position.
func (p *Position) FirstEntry() *Fill {
	if len(p.Entries) == 0 {
		return nil
	}
	return &p.Entries[0]
}

func (p *Position) EntryQuantity() float64 {
	total := 0.0
	for i := range p.Entries {
		total += p.Entries[i].Quantity
	}
	return total
}

func (p *Position) ExitQuantity() float64 {
	total := 0.0
	for i := range p.Exits {
		total += p.Exits[i].Quantity
	}
	return total
}

// OpenQuantity is the remaining unclosed quantity.
func (p *Position) OpenQuantity() float64 {
	return p.EntryQuantity() - p.ExitQuantity()
}

// IsClosed reports whether accumulated exits match accumulated entries.
func (p *Position) IsClosed() bool {
	return len(p.Entries) > 0 && p.OpenQuantity() <= 0
}

// EntryTags returns the tags of all entry fills, in fill order, empty tags skipped.
func (p *Position) EntryTags() []string {
	tags := make([]string, 0, len(p.Entries))
	for i := range p.Entries {
		if t := strings.TrimSpace(p.Entries[i].Tag); t != "" {
			tags = append(tags, strings.Fields(t)...)
		}
	}
	return tags
}

// EntryTagString is the space-joined, append-only tag log used for mode classification.
func (p *Position) EntryTagString() string {
	return strings.Join(p.EntryTags(), " ")
}

// HasExitTagPrefix reports whether any exit fill carries a tag with the given prefix.
func (p *Position) HasExitTagPrefix(prefix string) bool {
	for i := range p.Exits {
		if strings.HasPrefix(p.Exits[i].Tag, prefix) {
			return true
		}
	}
	return false
}
