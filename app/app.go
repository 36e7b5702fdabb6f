package app

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/database"
	"crypto-collector/migration"
	"crypto-collector/processors"
	"crypto-collector/processors/ethereum"
	"crypto-collector/processors/tron"
	"crypto-collector/services"
	"crypto-collector/tasks/monitor"
	"crypto-collector/tasks/sweep"
	"crypto-collector/txnBuilder"
	"crypto-collector/utility/alert"
	"crypto-collector/utility/cache"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/logger"
	"net/http"
	"os"
	"time"
)

const dialTimeout = 30 * time.Second

//App : the collector wired against its configuration
type App struct {
	Config     config.Data
	Database   *database.Database
	Cache      *cache.Memory
	Repository *database.DepositAddressRepository
	Rates      *services.RateService
	Locker     services.Locker
	Registry   *monitor.Registry
	Factory    *processors.Factory

	closers []func()
}

// New ... connects storage and every configured network. A network whose endpoint
// or seed is missing is left out, so its currencies resolve to a configuration error.
func New(cfg config.Data) (*App, error) {
	logger.SetLevel(cfg.LogLevel)
	alert.Init(cfg.SentryDSN, cfg.Environment, cfg.ServiceName)

	if err := migration.RunDbMigrations(cfg); err != nil {
		return nil, err
	}
	db := &database.Database{Config: cfg}
	if err := db.LoadDBInstance(); err != nil {
		return nil, err
	}
	return Build(cfg, db)
}

// Build ... wires everything on an open database
func Build(cfg config.Data, db *database.Database) (*App, error) {
	memoryCache := cache.Initialize(time.Duration(cfg.ExpireCacheDuration)*time.Second, time.Duration(cfg.PurgeCacheInterval)*time.Second)
	locker, err := services.NewLocker(cfg, memoryCache)
	if err != nil {
		return nil, err
	}
	rates, err := services.NewRateService(memoryCache, cfg, &http.Client{Timeout: config.Seconds(cfg.RequestTimeout, time.Minute)})
	if err != nil {
		return nil, err
	}

	repository := database.NewDepositAddressRepository(*db)
	app := &App{
		Config:     cfg,
		Database:   db,
		Cache:      memoryCache,
		Repository: repository,
		Rates:      rates,
		Locker:     locker,
		Registry:   monitor.NewRegistry(repository, workerID(cfg), config.Seconds(cfg.WatchGracePeriod, constants.DEFAULT_WATCH_GRACE)),
		Factory:    processors.NewFactory(),
		closers:    []func(){db.CloseDBInstance},
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := app.connectEthereum(ctx); err != nil {
		logger.Warning("Ethereum is not available : %s", err)
	}
	if err := app.connectTron(); err != nil {
		logger.Warning("Tron is not available : %s", err)
	}
	logger.Info("Networks ready : %v", app.Factory.Networks())
	return app, nil
}

func (app *App) connectEthereum(ctx context.Context) error {
	cfg := app.Config.Ethereum
	rpc, ws, err := ethereum.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, rpc.Close)
	if ws != rpc {
		app.closers = append(app.closers, ws.Close)
	}
	app.Register(ethereum.NewNetwork(rpc, ws, cfg), cfg.MasterSeed)
	return nil
}

func (app *App) connectTron() error {
	cfg := app.Config.Tron
	client, err := tron.Dial(cfg)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, client.Stop)
	app.Register(tron.NewNetwork(client, cfg), cfg.MasterSeed)
	return nil
}

// Register ... binds a network to the monitor and the factory
func (app *App) Register(network processors.Network, seed string) {
	builder := txnBuilder.New(network.Name(), network.CoinType(), seed, network.EncodeAddress, app.Repository)
	executor := sweep.NewExecutor(network, builder, app.Repository, app.Locker,
		config.Seconds(app.Config.SweepLockTTL, constants.DEFAULT_SWEEP_LOCK_TTL), config.Seconds(app.Config.SweepTimeout, constants.DEFAULT_SWEEP_TIMEOUT))
	app.Registry.Bind(network.Name(), network, executor)

	processor := processors.NewProcessor(network, app.Repository, builder, app.Rates, app.Registry, app.Locker, config.Seconds(app.Config.PrefundTimeout, constants.DEFAULT_PREFUND_TIMEOUT))
	app.Factory.Register(network.Name(), processor)
}

// Close ... stops every watch, then the connections
func (app *App) Close() {
	app.Registry.Stop()
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	alert.Flush()
}

func workerID(cfg config.Data) string {
	if cfg.WorkerID != "" {
		return cfg.WorkerID
	}
	host, err := os.Hostname()
	if err != nil {
		return cfg.ServiceName
	}
	return host
}
