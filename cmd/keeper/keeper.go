package keeper

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"positionkeeper/src/connectors"
	"positionkeeper/src/database"
	"positionkeeper/src/exitengine"
	"positionkeeper/src/hold"
	poskeeper "positionkeeper/src/keeper"
	"positionkeeper/src/ladder"
	"positionkeeper/src/mode"
	"positionkeeper/src/repository"
	"positionkeeper/src/runner"
	"positionkeeper/src/server"
	"positionkeeper/src/slots"
	"positionkeeper/src/store"
	"positionkeeper/src/targetcache"
)

type Keeper struct{}

type priceFeed interface {
	connectors.PriceSource
	Run(ctx context.Context)
}

func (t *Keeper) Start() error {
	config := GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// Target records live in the database when one is configured, otherwise in
	// a local JSON file.
	dbConfig := database.GetConfig()
	var targetStore store.Store
	if dbConfig.EnableDB {
		if err := database.InitMainDB(); err != nil {
			logrus.WithError(err).Fatal("Failed to connect to main database")
			return err
		}
		targetStore = store.NewDBStore(repository.NewStateRepository(), "profit_targets")
	} else {
		targetStore = store.NewFileStore(filepath.Join(config.StateDir, config.TargetsFile))
	}

	cache := targetcache.New(targetStore)
	if err := cache.Load(); err != nil {
		logrus.WithError(err).Warn("target cache load failed, starting empty")
	}

	var holdSource hold.Source
	if config.HoldURL != "" {
		holdSource = hold.NewRemoteSource(config.HoldURL)
	} else {
		holdSource = hold.FileSource{Path: filepath.Join(config.StateDir, config.HoldFile)}
	}
	holds := hold.NewOverrides(holdSource)

	runnerConfig := runner.GetConfig()
	feedConfig := connectors.GetConfig()

	var prices priceFeed
	if feedConfig.Feed == "ws" {
		prices = connectors.NewStreamFeed(runnerConfig.Symbols, feedConfig)
	} else {
		prices = connectors.NewRestPoller(runnerConfig.Symbols, feedConfig)
	}

	run := runner.New(prices, runnerConfig)

	allowLists := map[mode.Kind][]string{}
	if len(config.ScalpAllowList) > 0 {
		allowLists[mode.KindScalp] = config.ScalpAllowList
	}
	acct := slots.New(run, allowLists)

	limits := map[mode.Kind]int{
		mode.KindGrind: config.GrindMaxOpen,
		mode.KindRebuy: config.RebuyMaxOpen,
		mode.KindScalp: config.ScalpMaxOpen,
	}
	lad := ladder.NewEngine(
		ladder.DefaultTables(),
		limits,
		acct,
		poskeeper.TargetLookup{Cache: cache},
		decimal.RequireFromString(config.MinStake),
		nil,
	)

	exits := exitengine.NewEngine(cache,
		exitengine.WithDerisk(config.DeriskEnabled),
		exitengine.WithCooldown(config.StoplossCooldown),
		exitengine.WithHolds(holds),
	)

	run.AttachKeeper(poskeeper.New(lad, exits, cache, holds))

	go prices.Run(ctx)
	go func() {
		if err := run.StartLoop(ctx); err != nil {
			logrus.WithError(err).Error("tick loop failed")
		}
	}()

	logrus.WithField("symbols", runnerConfig.Symbols).Info("position keeper started")

	// Blocks until SIGINT or SIGTERM, then shuts the HTTP server down; the
	// same signal cancels ctx and stops the loop.
	server.StartServer(server.GetConfig().Port, server.Status{
		Accountant: acct,
		Targets:    cache,
	})

	return nil
}
