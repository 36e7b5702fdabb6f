package ethereum

import (
	"context"
	"crypto-collector/utility"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Prefund sends amount ETH from treasury to address and waits for the receipt
func (network *Network) Prefund(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	key, err := network.treasuryFunder()
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("prefund target %q is not a hex address", address)
	}
	tip, maxFee, err := network.gasPrices(ctx)
	if err != nil {
		return "", err
	}

	network.prefundMu.Lock()
	tx, err := network.send(ctx, key, common.HexToAddress(address), utility.BaseUnits(constants.ETH_DECIMALS, amount), nil, network.cfg.GasLimitNative, tip, maxFee)
	network.prefundMu.Unlock()
	if err != nil {
		return "", err
	}
	logger.Info("Prefund %s submitted to %s", tx.Hash().Hex(), address)
	if err := network.waitMined(ctx, tx.Hash()); err != nil {
		return tx.Hash().Hex(), err
	}
	return tx.Hash().Hex(), nil
}

// Transfer moves amount of currency from the key's address to treasury.
// The fee cap is bounded by reservedFee so a native sweep never spends more than the balance.
func (network *Network) Transfer(ctx context.Context, key *ecdsa.PrivateKey, currency string, amount, reservedFee decimal.Decimal) (string, error) {
	treasury, err := network.treasuryDestination()
	if err != nil {
		return "", err
	}
	entry, ok := constants.Lookup(currency)
	if !ok || entry.Network != constants.NETWORK_ETHEREUM {
		return "", appError.UnsupportedCurrency(currency)
	}
	gasLimit := network.gasLimit(currency)

	allowance := utility.BaseUnits(constants.ETH_DECIMALS, reservedFee)
	if entry.IsToken {
		// token gas comes out of the prefunded ETH, never more than what is there
		held, err := network.client.BalanceAt(ctx, crypto.PubkeyToAddress(key.PublicKey), nil)
		if err != nil {
			return "", fmt.Errorf("gas balance: %w", err)
		}
		if held.Cmp(allowance) < 0 {
			allowance = held
		}
	}
	maxFee := new(big.Int).Div(allowance, new(big.Int).SetUint64(gasLimit))
	if maxFee.Sign() <= 0 {
		return "", appError.New(http.StatusPaymentRequired, errorcode.CHAIN_ERR, "no gas available to move %s", currency)
	}
	tip, err := network.client.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas tip: %w", err)
	}
	if tip.Cmp(maxFee) > 0 {
		tip = new(big.Int).Set(maxFee)
	}

	var tx *types.Transaction
	if entry.IsToken {
		data, packErr := parsedERC20.Pack("transfer", treasury, utility.BaseUnits(entry.Decimals, amount))
		if packErr != nil {
			return "", packErr
		}
		tx, err = network.send(ctx, key, network.token, big.NewInt(0), data, gasLimit, tip, maxFee)
	} else {
		tx, err = network.send(ctx, key, treasury, utility.BaseUnits(entry.Decimals, amount), nil, gasLimit, tip, maxFee)
	}
	if err != nil {
		return "", err
	}
	if err := network.waitMined(ctx, tx.Hash()); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

func (network *Network) send(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte, gasLimit uint64, tip, maxFee *big.Int) (*types.Transaction, error) {
	chainID, err := network.chain(ctx)
	if err != nil {
		return nil, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := network.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce of %s: %w", from.Hex(), err)
	}
	tx, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: maxFee,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	}), types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := network.client.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("send transaction from %s: %w", from.Hex(), err)
	}
	logger.Debug("Sent %s from %s to %s", tx.Hash().Hex(), from.Hex(), to.Hex())
	return tx, nil
}

// waitMined polls for the receipt until it lands or ctx ends
func (network *Network) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(network.receiptInterval)
	defer ticker.Stop()
	for {
		receipt, err := network.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			logger.Warning("Receipt lookup for %s failed : %s", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
