package tron

import (
	"context"
	"crypto-collector/utility"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/logger"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/api"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/core"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
)

// Prefund sends amount TRX from treasury to addr and waits for it to land in a block
func (network *Network) Prefund(ctx context.Context, addr string, amount decimal.Decimal) (string, error) {
	key, from, err := network.treasuryFunder()
	if err != nil {
		return "", err
	}
	if _, err := address.Base58ToAddress(addr); err != nil {
		return "", fmt.Errorf("prefund target %q: %w", addr, err)
	}
	sun := utility.BaseUnits(constants.TRX_DECIMALS, amount)
	tx, err := network.client.Transfer(from, addr, sun.Int64())
	if err != nil {
		return "", fmt.Errorf("build prefund to %s: %w", addr, err)
	}
	txID, err := network.signAndBroadcast(tx, key)
	if err != nil {
		return "", err
	}
	logger.Info("Prefund %s submitted to %s", txID, addr)
	if err := network.waitConfirmed(ctx, txID); err != nil {
		return txID, err
	}
	return txID, nil
}

// Transfer moves amount of currency from the key's address to treasury
func (network *Network) Transfer(ctx context.Context, key *ecdsa.PrivateKey, currency string, amount, reservedFee decimal.Decimal) (string, error) {
	treasury, err := network.treasuryDestination()
	if err != nil {
		return "", err
	}
	entry, ok := constants.Lookup(currency)
	if !ok || entry.Network != constants.NETWORK_TRON {
		return "", appError.UnsupportedCurrency(currency)
	}
	from := address.PubkeyToAddress(key.PublicKey).String()
	units := utility.BaseUnits(entry.Decimals, amount)

	var tx *api.TransactionExtention
	if entry.IsToken {
		if network.cfg.TokenContract == "" {
			return "", appError.Configuration("tron.tokenContract is not configured")
		}
		tx, err = network.client.TRC20Send(from, treasury, network.cfg.TokenContract, units, network.tokenFeeLimit)
	} else {
		tx, err = network.client.Transfer(from, treasury, units.Int64())
	}
	if err != nil {
		return "", fmt.Errorf("build transfer from %s: %w", from, err)
	}
	txID, err := network.signAndBroadcast(tx, key)
	if err != nil {
		return "", err
	}
	if err := network.waitConfirmed(ctx, txID); err != nil {
		return "", err
	}
	return txID, nil
}

// signAndBroadcast signs sha256(raw_data) with the secp256k1 key; the digest is also the transaction id
func (network *Network) signAndBroadcast(extention *api.TransactionExtention, key *ecdsa.PrivateKey) (string, error) {
	if extention == nil || extention.Transaction == nil {
		return "", errors.New("node returned an empty transaction")
	}
	if extention.Result != nil && extention.Result.Code != api.Return_SUCCESS {
		return "", fmt.Errorf("node rejected transaction: %s", string(extention.Result.Message))
	}
	tx := extention.Transaction
	raw, err := proto.Marshal(tx.GetRawData())
	if err != nil {
		return "", fmt.Errorf("encode raw data: %w", err)
	}
	digest := sha256.Sum256(raw)
	signature, err := crypto.Sign(digest[:], key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	tx.Signature = append(tx.Signature, signature)
	txID := hex.EncodeToString(digest[:])

	result, err := network.client.Broadcast(tx)
	if err != nil {
		return "", fmt.Errorf("broadcast %s: %w", txID, err)
	}
	if !result.GetResult() {
		return "", fmt.Errorf("broadcast %s failed: %s %s", txID, result.GetCode(), string(result.GetMessage()))
	}
	return txID, nil
}

// waitConfirmed polls the transaction info until it is in a block or ctx ends
func (network *Network) waitConfirmed(ctx context.Context, txID string) error {
	ticker := time.NewTicker(network.receiptInterval)
	defer ticker.Stop()
	for {
		info, err := network.client.GetTransactionInfoByID(txID)
		if err == nil && info.GetBlockNumber() > 0 {
			if info.GetResult() == core.TransactionInfo_FAILED {
				return fmt.Errorf("transaction %s failed: %s", txID, string(info.GetResMessage()))
			}
			if receipt := info.GetReceipt(); receipt != nil &&
				receipt.GetResult() != core.Transaction_Result_DEFAULT &&
				receipt.GetResult() != core.Transaction_Result_SUCCESS {
				return fmt.Errorf("transaction %s failed: %s", txID, receipt.GetResult())
			}
			return nil
		}
		if err != nil {
			logger.Debug("Transaction info for %s not available yet : %s", txID, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", txID, ctx.Err())
		case <-ticker.C:
		}
	}
}
