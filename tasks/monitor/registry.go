package monitor

import (
	"context"
	"crypto-collector/model"
	"crypto-collector/utility/alert"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	"crypto-collector/utility/metrics"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// State of a watched address
type State string

const (
	WATCHING State = "WATCHING"
	DETECTED State = "DETECTED"
	SWEEPING State = "SWEEPING"
	SWEPT    State = "SWEPT"
)

// CheckFunc is invoked by a watcher for every tick or chain notification.
// A non-nil result is a StopError and the watcher must return it.
type CheckFunc func(ctx context.Context) error

// StopError ends a watch
type StopError struct {
	Reason string
}

func (e StopError) Error() string {
	return fmt.Sprintf("watch stopped: %s", e.Reason)
}

// IsStop ...
func IsStop(err error) bool {
	var stop StopError
	return errors.As(err, &stop)
}

// Watcher ... network specific way of observing an address (subscription or polling)
type Watcher interface {
	Watch(ctx context.Context, record model.DepositAddress, check CheckFunc) error
	Balance(ctx context.Context, address, currency string) (decimal.Decimal, error)
	IsToken(currency string) bool
	TransferFee(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Sweeper ... moves a detected balance to treasury, "" when nothing was moved
type Sweeper interface {
	Sweep(ctx context.Context, record model.DepositAddress) string
}

// Store ... ledger lookups and the persisted watch list
type Store interface {
	FindByAddress(address string, record *model.DepositAddress) error
	FetchActive(now time.Time, records *[]model.DepositAddress) error
	SaveWatch(watch *model.WatchedAddress) error
	CloseWatch(address, reason string, at time.Time) error
}

type binding struct {
	watcher Watcher
	sweeper Sweeper
}

type watch struct {
	network string
	state   State
	reason  string
	cancel  context.CancelFunc
}

// Registry ... one active watch per address, persisted so a restarted worker can rehydrate it
type Registry struct {
	store    Store
	workerID string
	grace    time.Duration
	now      func() time.Time

	mu       sync.Mutex
	bindings map[string]binding
	watches  map[string]*watch
	root     context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

// NewRegistry ...
func NewRegistry(store Store, workerID string, grace time.Duration) *Registry {
	root, stop := context.WithCancel(context.Background())
	return &Registry{
		store:    store,
		workerID: workerID,
		grace:    grace,
		now:      time.Now,
		bindings: map[string]binding{},
		watches:  map[string]*watch{},
		root:     root,
		stop:     stop,
	}
}

// SetClock ...
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Bind attaches the watcher and sweeper serving a network
func (r *Registry) Bind(network string, watcher Watcher, sweeper Sweeper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[network] = binding{watcher: watcher, sweeper: sweeper}
}

// Register starts watching the record's address. It returns false when a watch is already active.
func (r *Registry) Register(record model.DepositAddress) (bool, error) {
	r.mu.Lock()
	bound, ok := r.bindings[record.Network]
	if !ok {
		r.mu.Unlock()
		return false, appError.Configuration("no watcher bound for network %s", record.Network)
	}
	if _, exists := r.watches[record.WalletAddress]; exists {
		r.mu.Unlock()
		return false, nil
	}
	if r.root.Err() != nil {
		r.mu.Unlock()
		return false, errors.New("registry is stopped")
	}
	ctx, cancel := context.WithCancel(r.root)
	r.watches[record.WalletAddress] = &watch{network: record.Network, state: WATCHING, cancel: cancel}
	r.wg.Add(1)
	r.mu.Unlock()

	if err := r.store.SaveWatch(&model.WatchedAddress{
		Address:          record.WalletAddress,
		Network:          record.Network,
		Currency:         record.Currency,
		DepositAddressID: record.ID,
		WorkerID:         r.workerID,
		Active:           true,
		RegisteredAt:     r.now(),
	}); err != nil {
		// the in-memory watch still runs; the next rehydrate restores the row
		logger.Error("Could not persist watch for %s : %s", record.WalletAddress, err)
	}
	metrics.ActiveWatches.WithLabelValues(record.Network).Inc()
	logger.Info("Watching %s address %s for %s", record.Network, record.WalletAddress, record.Currency)

	go r.run(ctx, record, bound)
	return true, nil
}

func (r *Registry) run(ctx context.Context, record model.DepositAddress, bound binding) {
	defer r.wg.Done()
	err := bound.watcher.Watch(ctx, record, func(ctx context.Context) error {
		_, err := r.attempt(ctx, record.WalletAddress, bound)
		return err
	})

	reason := r.stopReason(record.WalletAddress)
	var stop StopError
	if errors.As(err, &stop) {
		reason = stop.Reason
	} else if err != nil && ctx.Err() == nil {
		logger.Error("Watch for %s ended : %s", record.WalletAddress, err)
		alert.Capture(err, map[string]string{"address": record.WalletAddress, "network": record.Network})
		reason = err.Error()
	}
	r.deregister(record.WalletAddress, record.Network, reason)
}

// attempt runs one balance check and, when value is present, one sweep.
// Only StopError is returned; transient failures are logged and left to the next tick.
func (r *Registry) attempt(ctx context.Context, address string, bound binding) (string, error) {
	record, detected, err := r.detect(ctx, address, bound)
	if err != nil || !detected {
		return "", err
	}
	if !r.transition(address, WATCHING, DETECTED) {
		logger.Debug("Sweep already in flight for %s", address)
		return "", nil
	}

	r.setState(address, SWEEPING)
	txHash := bound.sweeper.Sweep(ctx, record)
	if txHash != "" {
		r.setState(address, SWEPT)
	}
	r.setState(address, WATCHING)
	return txHash, nil
}

// detect loads the record and reports whether the address holds more than it costs to move.
// A native balance at or below the outbound fee is the prefunded gas and is left alone.
func (r *Registry) detect(ctx context.Context, address string, bound binding) (model.DepositAddress, bool, error) {
	record := model.DepositAddress{}
	if err := r.store.FindByAddress(address, &record); err != nil {
		if appError.Is(err, errorcode.RECORD_NOT_FOUND) {
			return record, false, StopError{Reason: constants.WATCH_REASON_RECORD_MISSING}
		}
		logger.Error("Could not load deposit record for %s : %s", address, err)
		return record, false, nil
	}
	if r.now().After(record.ExpiresAt.Add(r.grace)) {
		return record, false, StopError{Reason: constants.WATCH_REASON_EXPIRED}
	}

	balance, err := bound.watcher.Balance(ctx, record.WalletAddress, record.Currency)
	if err != nil {
		logger.Error("Balance check for %s failed : %s", address, err)
		alert.Capture(err, map[string]string{"address": address, "network": record.Network})
		return record, false, nil
	}
	if !balance.IsPositive() {
		return record, false, nil
	}
	if !bound.watcher.IsToken(record.Currency) {
		fee, err := bound.watcher.TransferFee(ctx, record.Currency)
		if err != nil {
			logger.Error("Fee estimate for %s failed : %s", address, err)
			return record, false, nil
		}
		if balance.LessThanOrEqual(fee) {
			return record, false, nil
		}
	}
	logger.Info("Detected %s %s on %s", balance, record.Currency, address)
	return record, true, nil
}

// Recheck runs one guarded sweep attempt outside the watcher's own schedule.
// An address without an active watch is registered first.
func (r *Registry) Recheck(ctx context.Context, address string) (string, error) {
	record := model.DepositAddress{}
	if err := r.store.FindByAddress(address, &record); err != nil {
		return "", err
	}
	r.mu.Lock()
	bound, ok := r.bindings[record.Network]
	_, watched := r.watches[address]
	r.mu.Unlock()
	if !ok {
		return "", appError.Configuration("no watcher bound for network %s", record.Network)
	}

	if !watched {
		if record.IsExpired(r.now()) {
			return "", appError.New(409, errorcode.INPUT_ERR_CODE, "deposit address %s expired at %s", address, record.ExpiresAt.Format(time.RFC3339))
		}
		if _, err := r.Register(record); err != nil {
			return "", err
		}
	}

	r.mu.Lock()
	_, watched = r.watches[address]
	r.mu.Unlock()
	if !watched {
		// the watch ended between registration and this attempt
		return "", nil
	}
	txHash, err := r.attempt(ctx, address, bound)
	var stop StopError
	if errors.As(err, &stop) {
		r.cancel(address, stop.Reason)
		return txHash, nil
	}
	return txHash, err
}

// RecheckAll ... one attempt for every active record, used by the scheduled recheck job
func (r *Registry) RecheckAll(ctx context.Context) int {
	records := []model.DepositAddress{}
	if err := r.store.FetchActive(r.now(), &records); err != nil {
		return 0
	}
	swept := 0
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		txHash, err := r.Recheck(ctx, record.WalletAddress)
		if err != nil {
			logger.Error("Recheck of %s failed : %s", record.WalletAddress, err)
			continue
		}
		if txHash != "" {
			swept++
		}
	}
	return swept
}

// SweepActive runs one sweep attempt for every active record without watching it.
// It serves a process that shares the ledger and the sweep lease with the watching
// service, so it leaves the watch list and the in-memory watches alone.
func (r *Registry) SweepActive(ctx context.Context) int {
	records := []model.DepositAddress{}
	if err := r.store.FetchActive(r.now(), &records); err != nil {
		logger.Error("Could not load active records : %s", err)
		return 0
	}
	swept := 0
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		r.mu.Lock()
		bound, ok := r.bindings[record.Network]
		r.mu.Unlock()
		if !ok {
			logger.Warning("No network bound for %s, skipping %s", record.Network, record.WalletAddress)
			continue
		}
		current, detected, err := r.detect(ctx, record.WalletAddress, bound)
		if err != nil || !detected {
			continue
		}
		if bound.sweeper.Sweep(ctx, current) != "" {
			swept++
		}
	}
	return swept
}

// Rehydrate re-registers every non-expired record, returning how many watches were started
func (r *Registry) Rehydrate() (int, error) {
	records := []model.DepositAddress{}
	if err := r.store.FetchActive(r.now(), &records); err != nil {
		return 0, err
	}
	started := 0
	for _, record := range records {
		ok, err := r.Register(record)
		if err != nil {
			logger.Error("Could not rehydrate watch for %s : %s", record.WalletAddress, err)
			continue
		}
		if ok {
			started++
		}
	}
	logger.Info("Rehydrated %d watches from %d active records", started, len(records))
	return started, nil
}

// State ... current state of a watched address
func (r *Registry) State(address string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.watches[address]
	if !ok {
		return "", false
	}
	return current.state, true
}

// Active ... number of addresses under watch
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watches)
}

// Stop cancels every watch and waits for the watchers to return
func (r *Registry) Stop() {
	r.stop()
	r.wg.Wait()
}

func (r *Registry) cancel(address, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.watches[address]; ok {
		current.reason = reason
		current.cancel()
	}
}

func (r *Registry) stopReason(address string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.watches[address]; ok && current.reason != "" {
		return current.reason
	}
	return constants.WATCH_REASON_SHUTDOWN
}

func (r *Registry) deregister(address, network, reason string) {
	r.mu.Lock()
	current, ok := r.watches[address]
	r.mu.Unlock()
	if !ok {
		return
	}
	current.cancel()

	// the row stays active on shutdown so the next worker rehydrates it
	if reason != constants.WATCH_REASON_SHUTDOWN {
		if err := r.store.CloseWatch(address, reason, r.now()); err != nil {
			logger.Error("Could not close watch for %s : %s", address, err)
		}
	}

	r.mu.Lock()
	delete(r.watches, address)
	r.mu.Unlock()
	metrics.ActiveWatches.WithLabelValues(network).Dec()
	logger.Info("Stopped watching %s : %s", address, reason)
}

func (r *Registry) transition(address string, from, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.watches[address]
	if !ok || current.state != from {
		return false
	}
	current.state = to
	return true
}

func (r *Registry) setState(address string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.watches[address]; ok {
		current.state = state
	}
}
