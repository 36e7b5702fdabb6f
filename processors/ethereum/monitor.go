package ethereum

import (
	"context"
	"crypto-collector/model"
	"crypto-collector/tasks/monitor"
	"crypto-collector/utility/logger"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var errSubscriptionClosed = errors.New("subscription closed")

// Watch checks the address once, then again on every new head (native) or every
// token Transfer into it. A dropped subscription is re-established after the poll interval.
func (network *Network) Watch(ctx context.Context, record model.DepositAddress, check monitor.CheckFunc) error {
	if err := check(ctx); err != nil {
		return err
	}
	for {
		err := network.subscribe(ctx, record, check)
		if monitor.IsStop(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warning("Subscription for %s dropped : %s, retrying in %s", record.WalletAddress, err, network.pollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(network.pollInterval):
		}
		// catch up on anything that arrived while unsubscribed
		if err := check(ctx); err != nil {
			return err
		}
	}
}

func (network *Network) subscribe(ctx context.Context, record model.DepositAddress, check monitor.CheckFunc) error {
	notify := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)
	var (
		sub ethereum.Subscription
		err error
	)
	if network.IsToken(record.Currency) {
		sub, err = network.subscribeTransfers(ctx, record.WalletAddress, notify, done)
	} else {
		sub, err = network.subscribeHeads(ctx, notify, done)
	}
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				return errSubscriptionClosed
			}
			return err
		case <-notify:
			if err := check(ctx); err != nil {
				return err
			}
		}
	}
}

func (network *Network) subscribeHeads(ctx context.Context, notify chan<- struct{}, done <-chan struct{}) (ethereum.Subscription, error) {
	heads := make(chan *types.Header, 16)
	sub, err := network.subscriber.SubscribeNewHead(ctx, heads)
	if err != nil {
		return nil, err
	}
	go forward(heads, notify, done)
	return sub, nil
}

// subscribeTransfers ... Transfer(address,address,uint256) logs of the token with topic[2] = address
func (network *Network) subscribeTransfers(ctx context.Context, address string, notify chan<- struct{}, done <-chan struct{}) (ethereum.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{network.token},
		Topics: [][]common.Hash{
			{transferTopic},
			nil,
			{common.BytesToHash(common.HexToAddress(address).Bytes())},
		},
	}
	logs := make(chan types.Log, 16)
	sub, err := network.subscriber.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, err
	}
	go forward(logs, notify, done)
	return sub, nil
}

// forward collapses a burst of notifications into at most one pending check
func forward[T any](events <-chan T, notify chan<- struct{}, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			select {
			case notify <- struct{}{}:
			default:
			}
		}
	}
}
