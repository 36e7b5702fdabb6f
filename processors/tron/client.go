package tron

import (
	"crypto-collector/config"
	"crypto-collector/utility/appError"
	"fmt"
	"math/big"

	"github.com/fbsobreira/gotron-sdk/pkg/client"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/api"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/core"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Client ... the full node gRPC calls the collector makes
type Client interface {
	GetAccount(addr string) (*core.Account, error)
	Transfer(from, toAddress string, amount int64) (*api.TransactionExtention, error)
	TRC20Send(from, to, contract string, amount *big.Int, feeLimit int64) (*api.TransactionExtention, error)
	TRC20ContractBalance(addr, contractAddress string) (*big.Int, error)
	Broadcast(tx *core.Transaction) (*api.Return, error)
	GetTransactionInfoByID(id string) (*core.TransactionInfo, error)
}

// Dial starts a gRPC client against a TRON full node
func Dial(cfg config.NetworkConfig) (*client.GrpcClient, error) {
	if cfg.GRPCURL == "" {
		return nil, appError.Configuration("tron.grpcURL is not configured")
	}
	grpcClient := client.NewGrpcClient(cfg.GRPCURL)
	if cfg.APIKey != "" {
		if err := grpcClient.SetAPIKey(cfg.APIKey); err != nil {
			return nil, appError.Configuration("tron.apiKey: %s", err)
		}
	}
	transport := credentials.NewClientTLSFromCert(nil, "")
	if cfg.GRPCInsecure {
		transport = insecure.NewCredentials()
	}
	if err := grpcClient.Start(grpc.WithTransportCredentials(transport)); err != nil {
		return nil, fmt.Errorf("connect to tron node %s: %w", cfg.GRPCURL, err)
	}
	return grpcClient, nil
}
