package sweep

import (
	"context"
	"crypto-collector/model"
	"crypto-collector/services"
	"crypto-collector/utility/alert"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/logger"
	"crypto-collector/utility/metrics"
	"crypto/ecdsa"
	"time"

	"github.com/shopspring/decimal"
)

// Chain ... the network operations a sweep needs
type Chain interface {
	Name() string
	IsToken(currency string) bool
	Balance(ctx context.Context, address, currency string) (decimal.Decimal, error)
	// TransferFee is the native amount reserved for moving currency out of a deposit address
	TransferFee(ctx context.Context, currency string) (decimal.Decimal, error)
	// Transfer sends amount of currency from the key's address to treasury and waits for it to confirm
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, currency string, amount, reservedFee decimal.Decimal) (string, error)
}

// KeySource ... re-derives the signing key of an issued address
type KeySource interface {
	SigningKey(group string, index int64, address string) (*ecdsa.PrivateKey, error)
}

// Ledger ... append only deposit log of a record
type Ledger interface {
	AppendDeposit(record *model.DepositAddress, entry model.DepositEntry) error
	Touch(record *model.DepositAddress, at time.Time) error
}

// Executor sweeps one network's deposit addresses into its treasury
type Executor struct {
	chain   Chain
	keys    KeySource
	ledger  Ledger
	locker  services.Locker
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewExecutor ... timeout bounds one sweep end to end and is kept below the lease ttl,
// so a transfer that never confirms gives the address back before the lease can lapse
func NewExecutor(chain Chain, keys KeySource, ledger Ledger, locker services.Locker, ttl, timeout time.Duration) *Executor {
	if ttl <= 0 {
		ttl = constants.DEFAULT_SWEEP_LOCK_TTL
	}
	if timeout <= 0 || timeout >= ttl {
		timeout = ttl * 3 / 4
	}
	return &Executor{chain: chain, keys: keys, ledger: ledger, locker: locker, ttl: ttl, timeout: timeout, now: time.Now}
}

// Timeout ...
func (executor *Executor) Timeout() time.Duration {
	return executor.timeout
}

// SetClock ...
func (executor *Executor) SetClock(now func() time.Time) {
	executor.now = now
}

// Sweep moves the address balance to treasury and appends the deposit entry.
// It returns the transfer hash, or "" when nothing was moved.
func (executor *Executor) Sweep(ctx context.Context, record model.DepositAddress) string {
	ctx, cancel := context.WithTimeout(ctx, executor.timeout)
	defer cancel()
	network := executor.chain.Name()
	lockKey := constants.SWEEP_LOCK_PREFIX + record.WalletAddress
	token, acquired, err := executor.locker.AcquireLock(ctx, lockKey, executor.ttl)
	if err != nil {
		executor.fail(record, "acquire sweep lock", err)
		return ""
	}
	if !acquired {
		logger.Debug("Sweep of %s already held by another worker", record.WalletAddress)
		metrics.Sweeps.WithLabelValues(network, constants.SWEEP_RESULT_BUSY).Inc()
		return ""
	}
	defer func() {
		if err := executor.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
			logger.Error("Could not release sweep lock for %s : %s", record.WalletAddress, err)
		}
	}()

	balance, err := executor.chain.Balance(ctx, record.WalletAddress, record.Currency)
	if err != nil {
		executor.fail(record, "read balance", err)
		return ""
	}
	if !balance.IsPositive() {
		executor.skip(&record, "no balance")
		return ""
	}

	reservedFee, err := executor.chain.TransferFee(ctx, record.Currency)
	if err != nil {
		executor.fail(record, "estimate transfer fee", err)
		return ""
	}
	amount := balance
	if !executor.chain.IsToken(record.Currency) {
		amount = balance.Sub(reservedFee)
		if !amount.IsPositive() {
			executor.skip(&record, "balance "+balance.String()+" does not cover fee "+reservedFee.String())
			return ""
		}
	}

	key, err := executor.keys.SigningKey(record.CurrencyGroup, record.DerivationIndex, record.WalletAddress)
	if err != nil {
		executor.fail(record, "derive signing key", err)
		return ""
	}
	txHash, err := executor.chain.Transfer(ctx, key, record.Currency, amount, reservedFee)
	if err != nil {
		executor.fail(record, "transfer to treasury", err)
		return ""
	}
	logger.Info("Swept %s %s from %s : %s", amount, record.Currency, record.WalletAddress, txHash)

	entry := model.DepositEntry{
		TxHash:    txHash,
		Amount:    amount.String(),
		GasFee:    reservedFee.String(),
		Timestamp: executor.now(),
		Processed: true,
	}
	if err := executor.ledger.AppendDeposit(&record, entry); err != nil {
		// the transfer is on chain; the hash in this log is what reconciles the ledger
		logger.Error("Swept %s from %s but could not record it : %s", txHash, record.WalletAddress, err)
		alert.Capture(err, map[string]string{"address": record.WalletAddress, "txHash": txHash, "network": network})
	}

	metrics.Sweeps.WithLabelValues(network, constants.SWEEP_RESULT_SUCCESS).Inc()
	value, _ := amount.Float64()
	metrics.SweptAmount.WithLabelValues(record.Currency).Add(value)
	return txHash
}

func (executor *Executor) skip(record *model.DepositAddress, reason string) {
	logger.Debug("Nothing to sweep on %s : %s", record.WalletAddress, reason)
	if err := executor.ledger.Touch(record, executor.now()); err != nil {
		logger.Warning("Could not update lastChecked for %s : %s", record.WalletAddress, err)
	}
	metrics.Sweeps.WithLabelValues(executor.chain.Name(), constants.SWEEP_RESULT_SKIPPED).Inc()
}

func (executor *Executor) fail(record model.DepositAddress, step string, err error) {
	logger.Error("Sweep of %s failed to %s : %s", record.WalletAddress, step, err)
	alert.Capture(err, map[string]string{"address": record.WalletAddress, "network": record.Network, "step": step})
	metrics.Sweeps.WithLabelValues(executor.chain.Name(), constants.SWEEP_RESULT_FAILED).Inc()
}
