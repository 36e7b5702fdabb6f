package tasks

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/utility/alert"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/logger"
	"time"

	"github.com/robfig/cron/v3"
)

// RateRefresher ... anything that pulls fresh exchange rates
type RateRefresher interface {
	Refresh(ctx context.Context) error
}

// Rechecker ... one guarded sweep attempt over every active record
type Rechecker interface {
	RecheckAll(ctx context.Context) int
}

// ActiveSweeper ... sweeps every active record without taking over its watch
type ActiveSweeper interface {
	SweepActive(ctx context.Context) int
}

// Schedule ... registers the background jobs; the caller starts and stops the scheduler
func Schedule(cfg config.Data, rates RateRefresher, registry Rechecker) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger), cron.Recover(cron.DefaultLogger)))
	timeout := config.Seconds(cfg.RequestTimeout, time.Minute)

	if _, err := scheduler.AddFunc(cfg.RateRefreshSpec, func() { RefreshRates(rates, timeout) }); err != nil {
		logger.Error("Invalid rateRefreshSpec %q : %s", cfg.RateRefreshSpec, err)
		return nil, err
	}
	if _, err := scheduler.AddFunc(cfg.RecheckSpec, func() { RecheckActive(registry) }); err != nil {
		logger.Error("Invalid recheckSpec %q : %s", cfg.RecheckSpec, err)
		return nil, err
	}
	return scheduler, nil
}

// RefreshRates ...
func RefreshRates(rates RateRefresher, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rates.Refresh(ctx); err != nil {
		alert.Capture(err, map[string]string{"job": "rate_refresh"})
	}
}

// RecheckActive sweeps anything that arrived while a subscription was down
func RecheckActive(registry Rechecker) int {
	logger.Info("Recheck job started")
	swept := registry.RecheckAll(context.Background())
	logger.Info("Recheck job done, %d addresses swept", swept)
	return swept
}

// RequireSharedLocker rejects a locker that only guards this process. A job running next
// to the service must contend for the same sweep lease as the service's watchers.
func RequireSharedLocker(cfg config.Data) error {
	if cfg.LockerBackend != constants.LOCKER_REDIS {
		return appError.Configuration("lockerBackend %q is not shared between processes, the sweep job needs %q", cfg.LockerBackend, constants.LOCKER_REDIS)
	}
	return nil
}

// SweepOnce ... one pass of the standalone sweep job
func SweepOnce(sweeper ActiveSweeper) int {
	logger.Info("Sweep job started")
	swept := sweeper.SweepActive(context.Background())
	logger.Info("Sweep job done, %d addresses swept", swept)
	return swept
}
