package ethereum

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/utility/appError"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client ... the JSON-RPC calls the collector makes
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Subscriber ... push notifications, only available over WebSocket
type Subscriber interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Dial connects the RPC endpoint and, when configured, the WebSocket endpoint.
// Without a WebSocket URL the RPC client is used for subscriptions too.
func Dial(ctx context.Context, cfg config.NetworkConfig) (*ethclient.Client, *ethclient.Client, error) {
	if cfg.RPCURL == "" {
		return nil, nil, appError.Configuration("ethereum.rpcURL is not configured")
	}
	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to ethereum rpc: %w", err)
	}
	if cfg.WSURL == "" || cfg.WSURL == cfg.RPCURL {
		return rpc, rpc, nil
	}
	ws, err := ethclient.DialContext(ctx, cfg.WSURL)
	if err != nil {
		rpc.Close()
		return nil, nil, fmt.Errorf("connect to ethereum websocket: %w", err)
	}
	return rpc, ws, nil
}
