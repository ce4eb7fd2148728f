package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/connectors"
	"positionkeeper/src/keeper"
	"positionkeeper/src/model"
)

// Runner is a paper-trading stand-in for the host runtime: it maintains
// simulated positions, feeds ticks to the keeper, and applies the keeper's
// decisions as fills at the live price.
type Runner struct {
	mu        sync.Mutex
	keeper    *keeper.Keeper
	prices    connectors.PriceSource
	config    Config
	positions map[string]*model.Position
	log       *logger.Entry
}

func New(prices connectors.PriceSource, config Config) *Runner {
	return &Runner{
		prices:    prices,
		config:    config,
		positions: make(map[string]*model.Position),
		log:       logger.WithField("component", "runner"),
	}
}

// AttachKeeper wires the keeper in after construction: the keeper's slot
// accountant scans this runner's book, so the runner has to exist first.
func (r *Runner) AttachKeeper(k *keeper.Keeper) { r.keeper = k }

// OpenPositions makes the runner's paper book the keeper's position source.
// It returns deep copies taken under the book lock: callers classify and count
// concurrently with the tick loop appending fills to the live positions.
func (r *Runner) OpenPositions() []*model.Position {
	r.mu.Lock()
	defer r.mu.Unlock()

	open := make([]*model.Position, 0, len(r.positions))
	for _, pos := range r.positions {
		open = append(open, pos.Snapshot())
	}
	return open
}

// StartLoop runs the tick loop until ctx is cancelled.
func (r *Runner) StartLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.config.LoopPeriod)
	defer ticker.Stop()

	holdTicker := time.NewTicker(r.config.HoldReloadPeriod)
	defer holdTicker.Stop()

	flushTicker := time.NewTicker(r.config.FlushPeriod)
	defer flushTicker.Stop()

	r.keeper.ReloadHolds()

	for {
		select {
		case <-ctx.Done():
			r.keeper.Flush()
			r.log.Info("loop stopped")
			return nil

		case <-holdTicker.C:
			r.keeper.ReloadHolds()

		case <-flushTicker.C:
			r.keeper.Flush()

		case <-ticker.C:
			r.Step(time.Now().UTC())
		}
	}
}

// Step runs one evaluation pass over every configured instrument.
func (r *Runner) Step(now time.Time) {
	for _, symbol := range r.config.Symbols {
		price, ok := r.prices.LastPrice(symbol)
		if !ok || price <= 0 {
			r.log.WithField("symbol", symbol).Debug("no price yet, skipping")
			continue
		}
		r.evaluate(symbol, price, now)
	}
}

func (r *Runner) evaluate(symbol string, price float64, now time.Time) {
	r.mu.Lock()
	live := r.positions[symbol]
	if live == nil || live.IsClosed() {
		r.positions[symbol] = r.openPaperPosition(symbol, price, now)
		r.mu.Unlock()
		return
	}
	// The keeper reads fills and advances the rung cursor; hand it a snapshot
	// so the live position is only ever touched under r.mu.
	pos := live.Snapshot()
	r.mu.Unlock()

	tick := model.Tick{Symbol: symbol, Price: price, Now: now}

	if sig := r.keeper.CheckExit(pos, tick); sig != nil {
		r.applyClose(symbol, price, now, sig.Reason)
		return
	}

	adj := r.keeper.AdjustStake(pos, tick)
	// The cursor can advance without a fill (sub-minimum rung skip), so it is
	// written back in either case.
	r.syncCursor(symbol, pos.RungCursor)
	if adj != nil {
		r.applyAdjustment(symbol, adj, price, now)
	}
}

func (r *Runner) syncCursor(symbol string, cursor int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if live := r.positions[symbol]; live != nil && cursor > live.RungCursor {
		live.RungCursor = cursor
	}
}

func (r *Runner) openPaperPosition(symbol string, price float64, now time.Time) *model.Position {
	market := model.MarketSpot
	if r.config.Market == string(model.MarketMargined) {
		market = model.MarketMargined
	}

	pos := &model.Position{
		TradeID:  uuid.NewString(),
		Symbol:   symbol,
		Side:     model.SideLong,
		Market:   market,
		Leverage: r.config.Leverage,
		OpenedAt: now,
		Entries: []model.Fill{
			{
				Side:      model.FillSideEntry,
				Quantity:  r.config.EntryStake / price,
				Price:     price,
				FeeRate:   r.config.FeeRate,
				Timestamp: now,
				Tag:       r.config.EntryTag,
			},
		},
	}

	r.log.WithFields(logger.Fields{
		"symbol": symbol,
		"trade":  pos.TradeID,
		"price":  price,
	}).Info("paper position opened")

	return pos
}

func (r *Runner) applyAdjustment(symbol string, adj *keeper.StakeAdjustment, price float64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.positions[symbol]
	if live == nil {
		return
	}

	stake, _ := adj.Stake.Float64()
	qty := stake / price

	fill := model.Fill{
		Quantity:  qty,
		Price:     price,
		FeeRate:   r.config.FeeRate,
		Timestamp: now,
		Tag:       adj.Tag,
	}

	if adj.Reduce {
		if open := live.OpenQuantity(); qty > open {
			fill.Quantity = open
		}
		fill.Side = model.FillSideExit
		live.Exits = append(live.Exits, fill)
	} else {
		fill.Side = model.FillSideEntry
		live.Entries = append(live.Entries, fill)
	}

	r.log.WithFields(logger.Fields{
		"symbol": symbol,
		"tag":    adj.Tag,
		"reduce": adj.Reduce,
		"stake":  stake,
	}).Info("stake adjustment applied")
}

func (r *Runner) applyClose(symbol string, price float64, now time.Time, reason string) {
	r.mu.Lock()
	var tradeID string
	if live := r.positions[symbol]; live != nil {
		tradeID = live.TradeID
		if open := live.OpenQuantity(); open > 0 {
			live.Exits = append(live.Exits, model.Fill{
				Side:      model.FillSideExit,
				Quantity:  open,
				Price:     price,
				FeeRate:   r.config.FeeRate,
				Timestamp: now,
				Tag:       reason,
			})
		}
	}
	r.mu.Unlock()

	// outside r.mu: the keeper's slot accountant may scan the book
	r.keeper.NotifyClosed(symbol)

	r.log.WithFields(logger.Fields{
		"symbol": symbol,
		"trade":  tradeID,
		"reason": reason,
		"price":  price,
	}).Info("paper position closed")
}
