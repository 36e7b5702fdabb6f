package ethereum

import (
	"context"
	"crypto-collector/utility"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// fee headroom over the EIP-1559 estimate, in tenths
const feeMarginTenths = 12

func (network *Network) gasLimit(currency string) uint64 {
	if network.IsToken(currency) {
		return network.cfg.GasLimitToken
	}
	return network.cfg.GasLimitNative
}

// gasPrices ... tip and maxFeePerGas = 2 * baseFee + tip, in wei
func (network *Network) gasPrices(ctx context.Context) (*big.Int, *big.Int, error) {
	header, err := network.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("latest header: %w", err)
	}
	tip, err := network.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	baseFee := big.NewInt(0)
	if header.BaseFee != nil {
		baseFee = header.BaseFee
	}
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return tip, maxFee, nil
}

// feeWei ... maxFeePerGas * gasLimit with margin
func (network *Network) feeWei(ctx context.Context, currency string) (*big.Int, error) {
	_, maxFee, err := network.gasPrices(ctx)
	if err != nil {
		return nil, err
	}
	fee := new(big.Int).Mul(maxFee, new(big.Int).SetUint64(network.gasLimit(currency)))
	fee.Mul(fee, big.NewInt(feeMarginTenths))
	return fee.Div(fee, big.NewInt(10)), nil
}

// TransferFee ... ETH reserved for moving currency out of a deposit address
func (network *Network) TransferFee(ctx context.Context, currency string) (decimal.Decimal, error) {
	entry, ok := constants.Lookup(currency)
	if !ok || entry.Network != constants.NETWORK_ETHEREUM {
		return decimal.Zero, appError.UnsupportedCurrency(currency)
	}
	wei, err := network.feeWei(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return utility.DisplayValue(constants.ETH_DECIMALS, wei), nil
}
