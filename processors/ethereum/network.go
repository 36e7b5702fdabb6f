package ethereum

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/utility"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

var (
	parsedERC20   abi.ABI
	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

func init() {
	var err error
	if parsedERC20, err = abi.JSON(strings.NewReader(erc20ABI)); err != nil {
		panic(fmt.Errorf("parse erc20 abi: %w", err))
	}
}

// Network ... Ethereum mainnet or any EVM chain configured under ethereum.*
type Network struct {
	client     Client
	subscriber Subscriber
	cfg        config.NetworkConfig
	token      common.Address

	chainMu sync.Mutex
	chainID *big.Int

	treasuryOnce sync.Once
	treasuryKey  *ecdsa.PrivateKey
	treasury     common.Address
	treasuryErr  error

	// serializes treasury nonces across concurrent prefunds
	prefundMu sync.Mutex

	pollInterval    time.Duration
	receiptInterval time.Duration
}

// NewNetwork ...
func NewNetwork(client Client, subscriber Subscriber, cfg config.NetworkConfig) *Network {
	if cfg.GasLimitNative == 0 {
		cfg.GasLimitNative = 21000
	}
	if cfg.GasLimitToken == 0 {
		cfg.GasLimitToken = 65000
	}
	return &Network{
		client:          client,
		subscriber:      subscriber,
		cfg:             cfg,
		token:           common.HexToAddress(cfg.TokenContract),
		pollInterval:    config.Seconds(cfg.PollInterval, 15*time.Second),
		receiptInterval: constants.RECEIPT_POLL_INTERVAL,
	}
}

// SetReceiptInterval ...
func (network *Network) SetReceiptInterval(interval time.Duration) {
	network.receiptInterval = interval
}

// Name ...
func (network *Network) Name() string {
	return constants.NETWORK_ETHEREUM
}

// CoinType ...
func (network *Network) CoinType() uint32 {
	return constants.ETH_COINTYPE
}

// NativeCurrency ...
func (network *Network) NativeCurrency() string {
	return constants.COIN_ETH
}

// EncodeAddress ... EIP-55 checksummed hex
func (network *Network) EncodeAddress(key *ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(*key).Hex()
}

// IsToken ...
func (network *Network) IsToken(currency string) bool {
	entry, ok := constants.Lookup(currency)
	return ok && entry.IsToken
}

// Balance ... display units of currency held by address
func (network *Network) Balance(ctx context.Context, address, currency string) (decimal.Decimal, error) {
	entry, ok := constants.Lookup(currency)
	if !ok || entry.Network != constants.NETWORK_ETHEREUM {
		return decimal.Zero, appError.UnsupportedCurrency(currency)
	}
	account := common.HexToAddress(address)
	if !entry.IsToken {
		wei, err := network.client.BalanceAt(ctx, account, nil)
		if err != nil {
			return decimal.Zero, fmt.Errorf("balance of %s: %w", address, err)
		}
		return utility.DisplayValue(entry.Decimals, wei), nil
	}

	units, err := network.tokenBalance(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}
	return utility.DisplayValue(entry.Decimals, units), nil
}

func (network *Network) tokenBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if (network.token == common.Address{}) {
		return nil, appError.Configuration("ethereum.tokenContract is not configured")
	}
	data, err := parsedERC20.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}
	output, err := network.client.CallContract(ctx, ethereum.CallMsg{To: &network.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("token balance of %s: %w", account.Hex(), err)
	}
	values, err := parsedERC20.Unpack("balanceOf", output)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("decode token balance of %s: %v", account.Hex(), err)
	}
	units, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected token balance type %T", values[0])
	}
	return units, nil
}

func (network *Network) chain(ctx context.Context) (*big.Int, error) {
	network.chainMu.Lock()
	defer network.chainMu.Unlock()
	if network.chainID != nil {
		return network.chainID, nil
	}
	if network.cfg.ChainID > 0 {
		network.chainID = big.NewInt(network.cfg.ChainID)
		return network.chainID, nil
	}
	chainID, err := network.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	network.chainID = chainID
	return chainID, nil
}

func (network *Network) loadTreasury() {
	network.treasuryOnce.Do(func() {
		if network.cfg.TreasuryPrivateKey != "" {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(network.cfg.TreasuryPrivateKey, "0x"))
			if err != nil {
				network.treasuryErr = appError.Configuration("ethereum.treasuryPrivateKey is invalid: %s", err)
				return
			}
			network.treasuryKey = key
			network.treasury = crypto.PubkeyToAddress(key.PublicKey)
		}
		if network.cfg.TreasuryAddress != "" {
			if !common.IsHexAddress(network.cfg.TreasuryAddress) {
				network.treasuryErr = appError.Configuration("ethereum.treasuryAddress %q is not a hex address", network.cfg.TreasuryAddress)
				return
			}
			network.treasury = common.HexToAddress(network.cfg.TreasuryAddress)
		}
	})
}

// treasuryFunder ... key that pays for deposit address gas
func (network *Network) treasuryFunder() (*ecdsa.PrivateKey, error) {
	network.loadTreasury()
	if network.treasuryErr != nil {
		return nil, network.treasuryErr
	}
	if network.treasuryKey == nil {
		return nil, appError.Configuration("ethereum.treasuryPrivateKey is not configured")
	}
	return network.treasuryKey, nil
}

// treasuryDestination ... where swept funds go
func (network *Network) treasuryDestination() (common.Address, error) {
	network.loadTreasury()
	if network.treasuryErr != nil {
		return common.Address{}, network.treasuryErr
	}
	if (network.treasury == common.Address{}) {
		return common.Address{}, appError.Configuration("ethereum treasury is not configured")
	}
	return network.treasury, nil
}
