package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// fakeClient ... in-memory chain answering the calls Network makes
type fakeClient struct {
	mu            sync.Mutex
	chainID       *big.Int
	baseFee       *big.Int
	tip           *big.Int
	balances      map[common.Address]*big.Int
	tokenBalances map[common.Address]*big.Int
	nonces        map[common.Address]uint64
	sent          []*types.Transaction
	sendErr       error
	reverted      bool
	unmined       bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		chainID:       big.NewInt(1),
		baseFee:       big.NewInt(10_000_000_000),
		tip:           big.NewInt(2_000_000_000),
		balances:      map[common.Address]*big.Int{},
		tokenBalances: map[common.Address]*big.Int{},
		nonces:        map[common.Address]uint64{},
	}
}

func (c *fakeClient) ChainID(ctx context.Context) (*big.Int, error) {
	return c.chainID, nil
}

func (c *fakeClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if balance, ok := c.balances[account]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (c *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *fakeClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: c.baseFee}, nil
}

func (c *fakeClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.tip), nil
}

func (c *fakeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return err
	}
	if tx.Nonce() != c.nonces[from] {
		return errors.New("nonce too low")
	}
	c.nonces[from]++
	c.sent = append(c.sent, tx)
	return nil
}

func (c *fakeClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmined {
		return nil, ethereum.NotFound
	}
	for _, tx := range c.sent {
		if tx.Hash() == txHash {
			status := types.ReceiptStatusSuccessful
			if c.reverted {
				status = types.ReceiptStatusFailed
			}
			return &types.Receipt{Status: status, TxHash: txHash, BlockNumber: big.NewInt(101)}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (c *fakeClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method := parsedERC20.Methods["balanceOf"]
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	balance, ok := c.tokenBalances[args[0].(common.Address)]
	c.mu.Unlock()
	if !ok {
		balance = big.NewInt(0)
	}
	return method.Outputs.Pack(balance)
}

func (c *fakeClient) transactions() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction{}, c.sent...)
}

// fakeSubscriber ... pushes whatever the test sends on heads / logs, fails a subscription on fail
type fakeSubscriber struct {
	mu      sync.Mutex
	heads   chan *types.Header
	logs    chan types.Log
	fail    chan error
	queries []ethereum.FilterQuery
	count   int
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{heads: make(chan *types.Header), logs: make(chan types.Log), fail: make(chan error)}
}

func (s *fakeSubscriber) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for {
			select {
			case <-quit:
				return nil
			case err := <-s.fail:
				return err
			case head := <-s.heads:
				ch <- head
			}
		}
	}), nil
}

func (s *fakeSubscriber) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	s.mu.Lock()
	s.count++
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for {
			select {
			case <-quit:
				return nil
			case err := <-s.fail:
				return err
			case log := <-s.logs:
				ch <- log
			}
		}
	}), nil
}

func (s *fakeSubscriber) subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
