package processors

import (
	"context"
	"crypto-collector/dto"
	"crypto-collector/model"
	"crypto-collector/services"
	"crypto-collector/tasks/monitor"
	"crypto-collector/txnBuilder"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/cache"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type fakeNetwork struct {
	mu         sync.Mutex
	prefunds   []string
	prefundErr error
	// release holds every prefund until it is closed
	release chan struct{}
}

func (n *fakeNetwork) Name() string           { return constants.NETWORK_ETHEREUM }
func (n *fakeNetwork) CoinType() uint32       { return constants.ETH_COINTYPE }
func (n *fakeNetwork) NativeCurrency() string { return constants.COIN_ETH }
func (n *fakeNetwork) EncodeAddress(key *ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(*key).Hex()
}
func (n *fakeNetwork) IsToken(currency string) bool { return currency == constants.COIN_USDT_ERC20 }

func (n *fakeNetwork) TransferFee(ctx context.Context, currency string) (decimal.Decimal, error) {
	if n.IsToken(currency) {
		return decimal.RequireFromString("0.0015"), nil
	}
	return decimal.RequireFromString("0.0005"), nil
}

func (n *fakeNetwork) Prefund(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	if n.release != nil {
		<-n.release
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.prefundErr != nil {
		return "", n.prefundErr
	}
	n.prefunds = append(n.prefunds, address)
	return fmt.Sprintf("0xprefund%d", len(n.prefunds)), nil
}

func (n *fakeNetwork) Balance(ctx context.Context, address, currency string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (n *fakeNetwork) Transfer(ctx context.Context, key *ecdsa.PrivateKey, currency string, amount, reservedFee decimal.Decimal) (string, error) {
	return "", errors.New("not used")
}

func (n *fakeNetwork) Watch(ctx context.Context, record model.DepositAddress, check monitor.CheckFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

func (n *fakeNetwork) prefunded() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.prefunds)
}

type fakeLedger struct {
	mu      sync.Mutex
	records map[string]model.DepositAddress
}

func (l *fakeLedger) FindByPaymentID(paymentID string, record *model.DepositAddress) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	found, ok := l.records[paymentID]
	if !ok {
		return appError.New(http.StatusNotFound, errorcode.RECORD_NOT_FOUND, errorcode.RECORD_NOT_FOUND_MSG, paymentID)
	}
	*record = found
	return nil
}

func (l *fakeLedger) Create(value interface{}) error {
	record := value.(*model.DepositAddress)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[record.PaymentID]; ok {
		return errors.New("duplicate payment id")
	}
	l.records[record.PaymentID] = *record
	return nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type indexStore struct {
	mu   sync.Mutex
	next map[string]int64
}

func (s *indexStore) MaxDerivationIndex(network, group string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.next[network+group]
	return next - 1, ok, nil
}

func (s *indexStore) ReserveDerivationIndex(network, group string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.next[network+group]
	s.next[network+group] = index + 1
	return index, nil
}

// fixedRates ... 1 ETH = 2000 USDT
type fixedRates struct{}

func (fixedRates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if constants.RateSymbol(from) == constants.RateSymbol(to) {
		return amount, nil
	}
	if from == constants.COIN_ETH && constants.RateSymbol(to) == constants.COIN_USDT {
		return amount.Mul(decimal.NewFromInt(2000)), nil
	}
	return decimal.Zero, appError.New(http.StatusServiceUnavailable, errorcode.RATE_UNAVAILABLE, "no rate for %s/%s", from, to)
}

type fakeRegistrar struct {
	mu         sync.Mutex
	registered []string
}

func (r *fakeRegistrar) Register(record model.DepositAddress) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, record.WalletAddress)
	return true, nil
}

func (r *fakeRegistrar) Recheck(ctx context.Context, address string) (string, error) {
	return "0xswept", nil
}

func (r *fakeRegistrar) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}

func newLocker() services.Locker {
	return services.NewMemoryLocker(cache.Initialize(time.Minute, time.Minute), "test:")
}

type ProcessorSuite struct {
	suite.Suite
	network   *fakeNetwork
	ledger    *fakeLedger
	registrar *fakeRegistrar
	processor *Processor
	factory   *Factory
	now       time.Time
}

func (s *ProcessorSuite) SetupTest() {
	s.network = &fakeNetwork{}
	s.ledger = &fakeLedger{records: map[string]model.DepositAddress{}}
	s.registrar = &fakeRegistrar{}
	builder := txnBuilder.New(constants.NETWORK_ETHEREUM, constants.ETH_COINTYPE, testMnemonic, s.network.EncodeAddress, &indexStore{next: map[string]int64{}})
	s.processor = NewProcessor(s.network, s.ledger, builder, fixedRates{}, s.registrar, newLocker(), time.Second)
	s.now = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s.processor.SetClock(func() time.Time { return s.now })
	s.factory = NewFactory()
	s.factory.Register(constants.NETWORK_ETHEREUM, s.processor)
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) TestGeneratePaymentWallet() {
	wallet, err := s.processor.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-1", Amount: "100", Currency: constants.COIN_USDT_ERC20})
	s.Require().NoError(err)

	s.NotEqual("0x9858EfFD232B4033E47d90003D41EC34EcaEda94", wallet.Address, "ERC20 derives under its own account")
	s.Equal(constants.NETWORK_ETHEREUM, wallet.Network)
	// 0.0015 ETH at 2000 USDT
	s.Equal("103", wallet.Amount)
	s.Equal(s.now.Add(24*time.Hour), wallet.ExpiresAt)
	s.Contains(wallet.Instructions, wallet.Address)
	s.Contains(wallet.Instructions, "2026-10-15T09:00:00Z")

	record := s.ledger.records["pay-1"]
	s.Equal("100", record.RequestedAmount)
	s.Equal("3", record.EstimatedGasFee)
	s.Equal("m/44'/60'/1'/0/0", record.DerivationPath)
	s.Equal("0xprefund1", record.PrefundTxHash)
	s.Equal(constants.GROUP_ERC20, record.CurrencyGroup)
	s.Empty(record.Deposits)
	s.Equal(1, s.registrar.count())
}

func (s *ProcessorSuite) TestEthGroupUsesAccountZero() {
	_, err := s.processor.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-eth", Amount: "0.5", Currency: constants.COIN_ETH})
	s.Require().NoError(err)

	record := s.ledger.records["pay-eth"]
	s.Equal("0x9858EfFD232B4033E47d90003D41EC34EcaEda94", record.WalletAddress)
	s.Equal("0.5005", record.TotalRequested)
}

func (s *ProcessorSuite) TestDuplicatePaymentReturnsExistingWallet() {
	request := dto.PaymentRequest{ID: "pay-dup", Amount: "10", Currency: constants.COIN_ETH}
	first, err := s.processor.GeneratePaymentWallet(context.Background(), request)
	s.Require().NoError(err)
	second, err := s.processor.GeneratePaymentWallet(context.Background(), request)
	s.Require().NoError(err)

	s.Equal(first.Address, second.Address)
	s.Equal(1, s.network.prefunded())
	s.Equal(1, s.ledger.count())
}

func (s *ProcessorSuite) TestConcurrentRequestsForOnePaymentPrefundOnce() {
	s.network.release = make(chan struct{})
	request := dto.PaymentRequest{ID: "pay-race", Amount: "1", Currency: constants.COIN_ETH}

	const callers = 5
	var wg sync.WaitGroup
	wallets := make(chan dto.PaymentWallet, callers)
	busy := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wallet, err := s.processor.GeneratePaymentWallet(context.Background(), request)
			if err != nil {
				busy <- err
				return
			}
			wallets <- wallet
		}()
	}
	// let every caller reach the lease while the first prefund is held
	time.Sleep(50 * time.Millisecond)
	close(s.network.release)
	wg.Wait()
	close(wallets)
	close(busy)

	for err := range busy {
		s.True(appError.Is(err, errorcode.PAYMENT_IN_PROGRESS), err.Error())
		s.Equal(http.StatusConflict, appError.Code(err))
	}
	addresses := map[string]bool{}
	for wallet := range wallets {
		addresses[wallet.Address] = true
	}
	s.Len(addresses, 1)
	s.Equal(1, s.network.prefunded())
	s.Equal(1, s.ledger.count())

	// once issued, a retry returns the same wallet
	wallet, err := s.processor.GeneratePaymentWallet(context.Background(), request)
	s.Require().NoError(err)
	s.True(addresses[wallet.Address])
	s.Equal(1, s.network.prefunded())
}

func (s *ProcessorSuite) TestConcurrentPaymentsGetDistinctAddresses() {
	const payments = 10
	var wg sync.WaitGroup
	addresses := make(chan string, payments)
	for i := 0; i < payments; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wallet, err := s.processor.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: fmt.Sprintf("pay-%d", i), Amount: "1", Currency: constants.COIN_ETH})
			s.NoError(err)
			addresses <- wallet.Address
		}(i)
	}
	wg.Wait()
	close(addresses)

	seen := map[string]bool{}
	for addr := range addresses {
		s.False(seen[addr], "address %s issued twice", addr)
		seen[addr] = true
	}
	s.Len(seen, payments)
}

func (s *ProcessorSuite) TestRejectsInvalidRequests() {
	_, err := s.processor.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-x", Amount: "1", Currency: constants.COIN_TRX})
	s.True(appError.Is(err, errorcode.UNSUPPORTED_CURRENCY))

	for _, amount := range []string{"0", "-3", "ten"} {
		_, err = s.processor.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-x", Amount: amount, Currency: constants.COIN_ETH})
		s.True(appError.Is(err, errorcode.INPUT_ERR_CODE), amount)
	}
	s.Zero(s.ledger.count())
	s.Zero(s.network.prefunded())
}

func (s *ProcessorSuite) TestPrefundFailurePersistsNothing() {
	s.network.prefundErr = errors.New("insufficient funds for gas")

	_, err := s.processor.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-broke", Amount: "1", Currency: constants.COIN_ETH})

	s.True(appError.Is(err, errorcode.PREFUND_FAILED))
	s.Equal(http.StatusBadGateway, appError.Code(err))
	s.Zero(s.ledger.count())
	s.Zero(s.registrar.count())
}

func (s *ProcessorSuite) TestMissingRateFailsBeforePrefund() {
	processor := NewProcessor(s.network, s.ledger, txnBuilder.New(constants.NETWORK_ETHEREUM, constants.ETH_COINTYPE, testMnemonic, s.network.EncodeAddress, &indexStore{next: map[string]int64{}}),
		unavailableRates{}, s.registrar, newLocker(), time.Second)

	_, err := processor.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-rate", Amount: "1", Currency: constants.COIN_USDT_ERC20})

	s.True(appError.Is(err, errorcode.RATE_UNAVAILABLE))
	s.Zero(s.network.prefunded())
}

func (s *ProcessorSuite) TestFactoryRoutesByCurrency() {
	s.True(s.factory.IsSupportedCurrency("eth"))
	s.False(s.factory.IsSupportedCurrency(constants.COIN_TRX))

	fee, err := s.factory.EstimateGasFee(context.Background(), "usdt_erc20")
	s.Require().NoError(err)
	s.Equal("3", fee.String())

	wallet, err := s.factory.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-f", Amount: "2", Currency: "eth"})
	s.Require().NoError(err)
	s.Equal(constants.COIN_ETH, wallet.Currency)
	s.Equal([]string{constants.NETWORK_ETHEREUM}, s.factory.Networks())
}

func (s *ProcessorSuite) TestFactoryUnmappedCurrencyIsConfigurationError() {
	_, err := s.factory.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-doge", Amount: "1", Currency: "DOGE"})
	s.True(appError.Is(err, errorcode.CONFIGURATION_ERR))

	// catalogued but no processor registered for TRON
	_, err = s.factory.GeneratePaymentWallet(context.Background(), dto.PaymentRequest{ID: "pay-trx", Amount: "1", Currency: constants.COIN_TRX})
	s.True(appError.Is(err, errorcode.CONFIGURATION_ERR))
	s.Zero(s.ledger.count())
}

func (s *ProcessorSuite) TestFactoryRecheck() {
	txHash, err := s.factory.Recheck(context.Background(), "ethereum", "0xabc")
	s.Require().NoError(err)
	s.Equal("0xswept", txHash)

	_, err = s.factory.Recheck(context.Background(), "bitcoin", "1abc")
	s.True(appError.Is(err, errorcode.INPUT_ERR_CODE))
}

type unavailableRates struct{}

func (unavailableRates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return decimal.Zero, appError.New(http.StatusServiceUnavailable, errorcode.RATE_UNAVAILABLE, "no rate for %s/%s", from, to)
}

func TestExpiredDuplicateIsNotRewatched(t *testing.T) {
	network := &fakeNetwork{}
	ledger := &fakeLedger{records: map[string]model.DepositAddress{}}
	registrar := &fakeRegistrar{}
	builder := txnBuilder.New(constants.NETWORK_ETHEREUM, constants.ETH_COINTYPE, testMnemonic, network.EncodeAddress, &indexStore{next: map[string]int64{}})
	processor := NewProcessor(network, ledger, builder, fixedRates{}, registrar, newLocker(), time.Second)
	now := time.Now()
	processor.SetClock(func() time.Time { return now })

	request := dto.PaymentRequest{ID: "pay-old", Amount: "1", Currency: constants.COIN_ETH}
	_, err := processor.GeneratePaymentWallet(context.Background(), request)
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	wallet, err := processor.GeneratePaymentWallet(context.Background(), request)
	require.NoError(t, err)

	assert.True(t, wallet.ExpiresAt.Before(now))
	assert.Equal(t, 1, registrar.count())
	assert.Equal(t, 1, network.prefunded())
}
