package tron

import (
	"context"
	"crypto-collector/model"
	"crypto-collector/tasks/monitor"
	"time"
)

// Watch polls the address on every tick until check stops it or ctx ends.
// TRON has no push subscription for account balances.
func (network *Network) Watch(ctx context.Context, record model.DepositAddress, check monitor.CheckFunc) error {
	if err := check(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(network.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := check(ctx); err != nil {
				return err
			}
		}
	}
}
