package ethereum

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/model"
	"crypto-collector/tasks/monitor"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenContract = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

func newTestNetwork(t *testing.T) (*Network, *fakeClient, *fakeSubscriber, *ecdsa.PrivateKey) {
	treasuryKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	client := newFakeClient()
	subscriber := newFakeSubscriber()
	network := NewNetwork(client, subscriber, config.NetworkConfig{
		ChainID:            1,
		TokenContract:      tokenContract,
		TreasuryPrivateKey: hex.EncodeToString(crypto.FromECDSA(treasuryKey)),
	})
	network.SetReceiptInterval(time.Millisecond)
	network.pollInterval = 10 * time.Millisecond
	return network, client, subscriber, treasuryKey
}

func TestTransferFeeFollowsEIP1559Estimate(t *testing.T) {
	network, _, _, _ := newTestNetwork(t)

	native, err := network.TransferFee(context.Background(), constants.COIN_ETH)
	require.NoError(t, err)
	token, err := network.TransferFee(context.Background(), constants.COIN_USDT_ERC20)
	require.NoError(t, err)

	// (2 * 10 gwei + 2 gwei) * gasLimit * 1.2
	assert.Equal(t, "0.0005544", native.String())
	assert.Equal(t, "0.001716", token.String())
	assert.True(t, token.GreaterThan(native))
}

func TestTransferFeeRejectsForeignCurrency(t *testing.T) {
	network, _, _, _ := newTestNetwork(t)

	_, err := network.TransferFee(context.Background(), constants.COIN_TRX)
	assert.True(t, appError.Is(err, errorcode.UNSUPPORTED_CURRENCY))
}

func TestBalanceReadsNativeAndToken(t *testing.T) {
	network, client, _, _ := newTestNetwork(t)
	holder := common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	client.balances[holder], _ = new(big.Int).SetString("50000000000000000", 10)
	client.tokenBalances[holder] = big.NewInt(25_500_000)

	native, err := network.Balance(context.Background(), holder.Hex(), constants.COIN_ETH)
	require.NoError(t, err)
	token, err := network.Balance(context.Background(), holder.Hex(), constants.COIN_USDT_ERC20)
	require.NoError(t, err)

	assert.Equal(t, "0.05", native.String())
	assert.Equal(t, "25.5", token.String())
}

func TestPrefundSendsFromTreasury(t *testing.T) {
	network, client, _, treasuryKey := newTestNetwork(t)
	target := common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")

	txHash, err := network.Prefund(context.Background(), target.Hex(), decimal.RequireFromString("0.0005544"))
	require.NoError(t, err)

	sent := client.transactions()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, tx.Hash().Hex(), txHash)
	assert.Equal(t, target, *tx.To())
	assert.Equal(t, "554400000000000", tx.Value().String())
	assert.Equal(t, uint64(21000), tx.Gas())
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(treasuryKey.PublicKey), from)
}

func TestConcurrentPrefundsUseDistinctNonces(t *testing.T) {
	network, client, _, _ := newTestNetwork(t)

	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := network.Prefund(context.Background(), "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", decimal.RequireFromString("0.001"))
			errs <- err
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, <-errs)
	}
	assert.Len(t, client.transactions(), 5)
}

func TestPrefundWithoutTreasuryKeyIsConfigurationError(t *testing.T) {
	network := NewNetwork(newFakeClient(), newFakeSubscriber(), config.NetworkConfig{ChainID: 1})

	_, err := network.Prefund(context.Background(), "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", decimal.RequireFromString("0.001"))
	assert.True(t, appError.Is(err, errorcode.CONFIGURATION_ERR))
}

func TestNativeTransferStaysWithinBalance(t *testing.T) {
	network, client, _, treasuryKey := newTestNetwork(t)
	depositKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	balance := big.NewInt(50_000_000_000_000_000)
	client.balances[crypto.PubkeyToAddress(depositKey.PublicKey)] = balance

	amount := decimal.RequireFromString("0.048")
	reserved := decimal.RequireFromString("0.002")
	txHash, err := network.Transfer(context.Background(), depositKey, constants.COIN_ETH, amount, reserved)
	require.NoError(t, err)

	tx := client.transactions()[0]
	assert.Equal(t, tx.Hash().Hex(), txHash)
	assert.Equal(t, crypto.PubkeyToAddress(treasuryKey.PublicKey), *tx.To())
	assert.Equal(t, "48000000000000000", tx.Value().String())
	maxCost := new(big.Int).Add(tx.Value(), new(big.Int).Mul(tx.GasFeeCap(), new(big.Int).SetUint64(tx.Gas())))
	assert.True(t, maxCost.Cmp(balance) <= 0, "value + gas must not exceed the balance")
	assert.True(t, tx.GasTipCap().Cmp(tx.GasFeeCap()) <= 0)
}

func TestUnminedTransferGivesUpAtDeadline(t *testing.T) {
	network, client, _, _ := newTestNetwork(t)
	client.unmined = true
	depositKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	client.balances[crypto.PubkeyToAddress(depositKey.PublicKey)] = big.NewInt(50_000_000_000_000_000)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	started := time.Now()
	_, err = network.Transfer(ctx, depositKey, constants.COIN_ETH, decimal.RequireFromString("0.048"), decimal.RequireFromString("0.002"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(started), 3*time.Second)
	assert.Len(t, client.transactions(), 1)
}

func TestTokenTransferCallsERC20Transfer(t *testing.T) {
	network, client, _, treasuryKey := newTestNetwork(t)
	depositKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	client.balances[crypto.PubkeyToAddress(depositKey.PublicKey)] = big.NewInt(1_716_000_000_000_000)

	_, err = network.Transfer(context.Background(), depositKey, constants.COIN_USDT_ERC20, decimal.RequireFromString("25.5"), decimal.RequireFromString("0.001716"))
	require.NoError(t, err)

	tx := client.transactions()[0]
	assert.Equal(t, common.HexToAddress(tokenContract), *tx.To())
	assert.Equal(t, int64(0), tx.Value().Int64())
	assert.Equal(t, uint64(65000), tx.Gas())
	method := parsedERC20.Methods["transfer"]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(treasuryKey.PublicKey), args[0])
	assert.Equal(t, "25500000", args[1].(*big.Int).String())
}

func TestTokenTransferWithoutGasFails(t *testing.T) {
	network, client, _, _ := newTestNetwork(t)
	depositKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = network.Transfer(context.Background(), depositKey, constants.COIN_USDT_ERC20, decimal.RequireFromString("25.5"), decimal.RequireFromString("0.001716"))
	assert.Error(t, err)
	assert.Empty(t, client.transactions())
}

func TestRevertedTransferIsAnError(t *testing.T) {
	network, client, _, _ := newTestNetwork(t)
	client.reverted = true
	depositKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	client.balances[crypto.PubkeyToAddress(depositKey.PublicKey)] = big.NewInt(50_000_000_000_000_000)

	txHash, err := network.Transfer(context.Background(), depositKey, constants.COIN_ETH, decimal.RequireFromString("0.048"), decimal.RequireFromString("0.002"))
	assert.Error(t, err)
	assert.Empty(t, txHash)
}

func watchRecord(currency string) model.DepositAddress {
	return model.DepositAddress{
		Network:       constants.NETWORK_ETHEREUM,
		Currency:      currency,
		WalletAddress: "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
		ExpiresAt:     time.Now().Add(time.Hour),
	}
}

func TestWatchChecksOnEveryHead(t *testing.T) {
	network, _, subscriber, _ := newTestNetwork(t)
	var checks int32
	done := make(chan error, 1)
	go func() {
		done <- network.Watch(context.Background(), watchRecord(constants.COIN_ETH), func(ctx context.Context) error {
			if atomic.AddInt32(&checks, 1) == 3 {
				return monitor.StopError{Reason: constants.WATCH_REASON_EXPIRED}
			}
			return nil
		})
	}()

	subscriber.heads <- &types.Header{Number: big.NewInt(1)}
	// bursts collapse into one check, so wait for the first before sending the next
	require.Eventually(t, func() bool { return atomic.LoadInt32(&checks) == 2 }, 2*time.Second, 5*time.Millisecond)
	subscriber.heads <- &types.Header{Number: big.NewInt(2)}

	select {
	case err := <-done:
		assert.True(t, monitor.IsStop(err))
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&checks))
}

func TestWatchResubscribesAfterError(t *testing.T) {
	network, _, subscriber, _ := newTestNetwork(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- network.Watch(ctx, watchRecord(constants.COIN_ETH), func(ctx context.Context) error { return nil })
	}()

	subscriber.fail <- errors.New("websocket: close 1006")
	assert.Eventually(t, func() bool { return subscriber.subscriptions() == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchTokenFiltersTransfersToAddress(t *testing.T) {
	network, _, subscriber, _ := newTestNetwork(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	checked := make(chan struct{}, 4)
	go network.Watch(ctx, watchRecord(constants.COIN_USDT_ERC20), func(ctx context.Context) error {
		checked <- struct{}{}
		return nil
	})

	<-checked
	subscriber.logs <- types.Log{Topics: []common.Hash{transferTopic}}
	<-checked

	subscriber.mu.Lock()
	query := subscriber.queries[0]
	subscriber.mu.Unlock()
	assert.Equal(t, []common.Address{common.HexToAddress(tokenContract)}, query.Addresses)
	assert.Equal(t, transferTopic, query.Topics[0][0])
	assert.Nil(t, query.Topics[1])
	assert.Equal(t, common.HexToHash("0x0000000000000000000000009858EfFD232B4033E47d90003D41EC34EcaEda94"), query.Topics[2][0])
}
