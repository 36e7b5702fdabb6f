package processors

import (
	"context"
	"crypto-collector/dto"
	"crypto-collector/model"
	"crypto-collector/services"
	"crypto-collector/tasks/monitor"
	"crypto-collector/txnBuilder"
	"crypto-collector/utility/alert"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	"crypto-collector/utility/metrics"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NetworkProcessor ... what every supported network offers callers
type NetworkProcessor interface {
	IsSupportedCurrency(currency string) bool
	EstimateGasFee(ctx context.Context, currency string) (decimal.Decimal, error)
	GeneratePaymentWallet(ctx context.Context, payment dto.PaymentRequest) (dto.PaymentWallet, error)
	Recheck(ctx context.Context, address string) (string, error)
}

// Network ... chain specific half of a processor
type Network interface {
	Name() string
	CoinType() uint32
	NativeCurrency() string
	EncodeAddress(key *ecdsa.PublicKey) string
	IsToken(currency string) bool
	// TransferFee is the native amount an outbound transfer of currency costs
	TransferFee(ctx context.Context, currency string) (decimal.Decimal, error)
	// Prefund sends amount of native currency from treasury to address and waits for it to confirm
	Prefund(ctx context.Context, address string, amount decimal.Decimal) (string, error)
	Balance(ctx context.Context, address, currency string) (decimal.Decimal, error)
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, currency string, amount, reservedFee decimal.Decimal) (string, error)
	Watch(ctx context.Context, record model.DepositAddress, check monitor.CheckFunc) error
}

// Ledger ... record storage a processor writes to
type Ledger interface {
	FindByPaymentID(paymentID string, record *model.DepositAddress) error
	Create(model interface{}) error
}

// Registrar ... monitor registry as seen by a processor
type Registrar interface {
	Register(record model.DepositAddress) (bool, error)
	Recheck(ctx context.Context, address string) (string, error)
}

// Fee ... cost of moving a payment out of its deposit address
type Fee struct {
	Native         decimal.Decimal
	NativeCurrency string
	Amount         decimal.Decimal
	Currency       string
}

// Processor issues and settles payment wallets on one network
type Processor struct {
	network        Network
	ledger         Ledger
	builder        txnBuilder.ITxBuilder
	converter      services.CurrencyConverter
	registry       Registrar
	locker         services.Locker
	prefundTimeout time.Duration
	now            func() time.Time
}

// NewProcessor ... locker serialises issuance per payment id and must be shared by every
// instance that serves the same ledger
func NewProcessor(network Network, ledger Ledger, builder txnBuilder.ITxBuilder, converter services.CurrencyConverter, registry Registrar, locker services.Locker, prefundTimeout time.Duration) *Processor {
	if prefundTimeout <= 0 {
		prefundTimeout = constants.DEFAULT_PREFUND_TIMEOUT
	}
	return &Processor{
		network:        network,
		ledger:         ledger,
		builder:        builder,
		converter:      converter,
		registry:       registry,
		locker:         locker,
		prefundTimeout: prefundTimeout,
		now:            time.Now,
	}
}

// SetClock ...
func (processor *Processor) SetClock(now func() time.Time) {
	processor.now = now
}

// Network ...
func (processor *Processor) Network() Network {
	return processor.network
}

// IsSupportedCurrency ...
func (processor *Processor) IsSupportedCurrency(currency string) bool {
	entry, ok := constants.Lookup(currency)
	return ok && entry.Network == processor.network.Name()
}

// EstimateFee ... outbound transfer cost in native units and in the payment currency
func (processor *Processor) EstimateFee(ctx context.Context, currency string) (Fee, error) {
	if !processor.IsSupportedCurrency(currency) {
		return Fee{}, appError.UnsupportedCurrency(currency)
	}
	native, err := processor.network.TransferFee(ctx, currency)
	if err != nil {
		return Fee{}, err
	}
	nativeCurrency := processor.network.NativeCurrency()
	amount, err := processor.converter.Convert(native, nativeCurrency, currency)
	if err != nil {
		return Fee{}, err
	}
	return Fee{Native: native, NativeCurrency: nativeCurrency, Amount: amount, Currency: currency}, nil
}

// EstimateGasFee ... fee expressed in currency
func (processor *Processor) EstimateGasFee(ctx context.Context, currency string) (decimal.Decimal, error) {
	fee, err := processor.EstimateFee(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return fee.Amount, nil
}

// GeneratePaymentWallet issues the deposit address of a payment, funds its outbound gas
// and starts watching it. A payment already issued returns its existing wallet.
func (processor *Processor) GeneratePaymentWallet(ctx context.Context, payment dto.PaymentRequest) (dto.PaymentWallet, error) {
	if !processor.IsSupportedCurrency(payment.Currency) {
		return dto.PaymentWallet{}, appError.UnsupportedCurrency(payment.Currency)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(payment.Amount))
	if err != nil || !amount.IsPositive() {
		return dto.PaymentWallet{}, appError.New(http.StatusBadRequest, errorcode.INPUT_ERR_CODE, "amount %q must be a positive number", payment.Amount)
	}

	lockKey := constants.PAYMENT_LOCK_PREFIX + payment.ID
	token, acquired, err := processor.locker.AcquireLock(ctx, lockKey, 2*processor.prefundTimeout)
	if err != nil {
		return dto.PaymentWallet{}, appError.Err{ErrCode: http.StatusServiceUnavailable, ErrType: errorcode.LOCK_ERR, Err: err}
	}
	if !acquired {
		return dto.PaymentWallet{}, appError.New(http.StatusConflict, errorcode.PAYMENT_IN_PROGRESS, errorcode.PAYMENT_IN_PROGRESS_MSG, payment.ID)
	}
	defer func() {
		if err := processor.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
			logger.Error("Could not release issuance lock for payment %s : %s", payment.ID, err)
		}
	}()

	existing := model.DepositAddress{}
	err = processor.ledger.FindByPaymentID(payment.ID, &existing)
	if err == nil {
		logger.Info("Payment %s already has wallet %s", payment.ID, existing.WalletAddress)
		processor.register(existing)
		return processor.wallet(existing), nil
	}
	if !appError.Is(err, errorcode.RECORD_NOT_FOUND) {
		return dto.PaymentWallet{}, err
	}

	currency, _ := constants.Lookup(payment.Currency)
	index, err := processor.builder.ReserveIndex(currency.Group)
	if err != nil {
		return dto.PaymentWallet{}, err
	}
	derived, err := processor.builder.DeriveAddress(currency.Group, index)
	if err != nil {
		return dto.PaymentWallet{}, err
	}
	fee, err := processor.EstimateFee(ctx, payment.Currency)
	if err != nil {
		return dto.PaymentWallet{}, err
	}

	prefundCtx, cancel := context.WithTimeout(ctx, processor.prefundTimeout)
	defer cancel()
	prefundTxHash, err := processor.network.Prefund(prefundCtx, derived.Address, fee.Native)
	if err != nil {
		if appError.Is(err, errorcode.CONFIGURATION_ERR) {
			return dto.PaymentWallet{}, err
		}
		logger.Error("Could not prefund %s for payment %s : %s", derived.Address, payment.ID, err)
		return dto.PaymentWallet{}, appError.Err{ErrCode: http.StatusBadGateway, ErrType: errorcode.PREFUND_FAILED, Err: err}
	}
	logger.Info("Prefunded %s with %s %s for payment %s : %s", derived.Address, fee.Native, fee.NativeCurrency, payment.ID, prefundTxHash)

	now := processor.now()
	record := model.DepositAddress{
		PaymentID:       payment.ID,
		Network:         processor.network.Name(),
		Currency:        payment.Currency,
		CurrencyGroup:   currency.Group,
		WalletAddress:   derived.Address,
		DerivationPath:  derived.DerivationPath,
		DerivationIndex: derived.Index,
		RequestedAmount: amount.String(),
		EstimatedGasFee: fee.Amount.String(),
		TotalRequested:  amount.Add(fee.Amount).String(),
		PrefundTxHash:   prefundTxHash,
		Deposits:        []model.DepositEntry{},
		LastChecked:     now,
		ExpiresAt:       now.Add(constants.PAYMENT_WINDOW),
	}
	record.CreatedAt = now
	if err := processor.ledger.Create(&record); err != nil {
		// funds already sit on the address; the log line above carries the hash to reconcile with
		logger.Error("Prefunded %s (%s) but could not persist payment %s : %s", derived.Address, prefundTxHash, payment.ID, err)
		alert.Capture(err, map[string]string{"network": processor.network.Name(), "address": derived.Address, "prefundTx": prefundTxHash})
		return dto.PaymentWallet{}, err
	}

	processor.register(record)
	metrics.WalletsGenerated.WithLabelValues(record.Network).Inc()
	return processor.wallet(record), nil
}

// Recheck ...
func (processor *Processor) Recheck(ctx context.Context, address string) (string, error) {
	return processor.registry.Recheck(ctx, address)
}

func (processor *Processor) register(record model.DepositAddress) {
	if record.IsExpired(processor.now()) {
		return
	}
	if _, err := processor.registry.Register(record); err != nil {
		logger.Error("Could not start watching %s : %s", record.WalletAddress, err)
	}
}

func (processor *Processor) wallet(record model.DepositAddress) dto.PaymentWallet {
	return dto.PaymentWallet{
		Address:  record.WalletAddress,
		Amount:   record.TotalRequested,
		Currency: record.Currency,
		Network:  record.Network,
		Instructions: fmt.Sprintf("Send exactly %s %s on %s to %s before %s. The amount includes a network fee of %s %s.",
			record.TotalRequested, record.Currency, record.Network, record.WalletAddress,
			record.ExpiresAt.UTC().Format(time.RFC3339), record.EstimatedGasFee, record.Currency),
		ExpiresAt: record.ExpiresAt,
	}
}
