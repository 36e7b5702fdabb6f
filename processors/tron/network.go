package tron

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/utility"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/shopspring/decimal"
)

const (
	defaultNativeFee     = "1.1"
	defaultTokenFee      = "15"
	defaultTokenFeeLimit = 30_000_000
)

// Network ... TRON mainnet or testnet configured under tron.*
type Network struct {
	client        Client
	cfg           config.NetworkConfig
	nativeFee     decimal.Decimal
	tokenFee      decimal.Decimal
	tokenFeeLimit int64

	treasuryOnce sync.Once
	treasuryKey  *ecdsa.PrivateKey
	treasury     string
	treasuryErr  error

	pollInterval    time.Duration
	receiptInterval time.Duration
}

// NewNetwork ...
func NewNetwork(client Client, cfg config.NetworkConfig) *Network {
	nativeFee := decimal.RequireFromString(defaultNativeFee)
	if cfg.NativeFee > 0 {
		nativeFee = decimal.NewFromFloat(cfg.NativeFee)
	}
	tokenFee := decimal.RequireFromString(defaultTokenFee)
	if cfg.TokenFee > 0 {
		tokenFee = decimal.NewFromFloat(cfg.TokenFee)
	}
	tokenFeeLimit := cfg.TokenFeeLimit
	if tokenFeeLimit <= 0 {
		tokenFeeLimit = defaultTokenFeeLimit
	}
	return &Network{
		client:          client,
		cfg:             cfg,
		nativeFee:       nativeFee,
		tokenFee:        tokenFee,
		tokenFeeLimit:   tokenFeeLimit,
		pollInterval:    config.Seconds(cfg.PollInterval, constants.TRON_POLL_INTERVAL),
		receiptInterval: constants.RECEIPT_POLL_INTERVAL,
	}
}

// SetPollInterval ...
func (network *Network) SetPollInterval(interval time.Duration) {
	network.pollInterval = interval
}

// SetReceiptInterval ...
func (network *Network) SetReceiptInterval(interval time.Duration) {
	network.receiptInterval = interval
}

// Name ...
func (network *Network) Name() string {
	return constants.NETWORK_TRON
}

// CoinType ...
func (network *Network) CoinType() uint32 {
	return constants.TRX_COINTYPE
}

// NativeCurrency ...
func (network *Network) NativeCurrency() string {
	return constants.COIN_TRX
}

// EncodeAddress ... base58check with the 0x41 prefix
func (network *Network) EncodeAddress(key *ecdsa.PublicKey) string {
	return address.PubkeyToAddress(*key).String()
}

// IsToken ...
func (network *Network) IsToken(currency string) bool {
	entry, ok := constants.Lookup(currency)
	return ok && entry.IsToken
}

// TransferFee ... fixed TRX cost of a transfer; TRC-20 calls burn energy, plain transfers only bandwidth
func (network *Network) TransferFee(ctx context.Context, currency string) (decimal.Decimal, error) {
	entry, ok := constants.Lookup(currency)
	if !ok || entry.Network != constants.NETWORK_TRON {
		return decimal.Zero, appError.UnsupportedCurrency(currency)
	}
	if entry.IsToken {
		return network.tokenFee, nil
	}
	return network.nativeFee, nil
}

// Balance ... display units of currency held by addr; an account never seen on chain holds nothing
func (network *Network) Balance(ctx context.Context, addr, currency string) (decimal.Decimal, error) {
	entry, ok := constants.Lookup(currency)
	if !ok || entry.Network != constants.NETWORK_TRON {
		return decimal.Zero, appError.UnsupportedCurrency(currency)
	}
	if entry.IsToken {
		if network.cfg.TokenContract == "" {
			return decimal.Zero, appError.Configuration("tron.tokenContract is not configured")
		}
		units, err := network.client.TRC20ContractBalance(addr, network.cfg.TokenContract)
		if err != nil {
			return decimal.Zero, fmt.Errorf("token balance of %s: %w", addr, err)
		}
		return utility.DisplayValue(entry.Decimals, units), nil
	}

	account, err := network.client.GetAccount(addr)
	if err != nil {
		if isAccountNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("account %s: %w", addr, err)
	}
	return decimal.New(account.GetBalance(), -int32(entry.Decimals)), nil
}

func isAccountNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

func (network *Network) loadTreasury() {
	network.treasuryOnce.Do(func() {
		if network.cfg.TreasuryPrivateKey != "" {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(network.cfg.TreasuryPrivateKey, "0x"))
			if err != nil {
				network.treasuryErr = appError.Configuration("tron.treasuryPrivateKey is invalid: %s", err)
				return
			}
			network.treasuryKey = key
			network.treasury = address.PubkeyToAddress(key.PublicKey).String()
		}
		if network.cfg.TreasuryAddress != "" {
			if _, err := address.Base58ToAddress(network.cfg.TreasuryAddress); err != nil {
				network.treasuryErr = appError.Configuration("tron.treasuryAddress %q is invalid: %s", network.cfg.TreasuryAddress, err)
				return
			}
			network.treasury = network.cfg.TreasuryAddress
		}
	})
}

// treasuryFunder ... key that pays deposit address fees
func (network *Network) treasuryFunder() (*ecdsa.PrivateKey, string, error) {
	network.loadTreasury()
	if network.treasuryErr != nil {
		return nil, "", network.treasuryErr
	}
	if network.treasuryKey == nil {
		return nil, "", appError.Configuration("tron.treasuryPrivateKey is not configured")
	}
	return network.treasuryKey, address.PubkeyToAddress(network.treasuryKey.PublicKey).String(), nil
}

// treasuryDestination ... where swept funds go
func (network *Network) treasuryDestination() (string, error) {
	network.loadTreasury()
	if network.treasuryErr != nil {
		return "", network.treasuryErr
	}
	if network.treasury == "" {
		return "", appError.Configuration("tron treasury is not configured")
	}
	return network.treasury, nil
}
