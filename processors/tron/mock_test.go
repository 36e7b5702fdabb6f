package tron

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/api"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/core"
	"google.golang.org/protobuf/proto"
)

type transfer struct {
	from, to, contract string
	amount             *big.Int
	feeLimit           int64
	signer             string
}

// fakeClient ... full node double that verifies signatures on broadcast
type fakeClient struct {
	mu              sync.Mutex
	accounts        map[string]int64
	tokenBalances   map[string]*big.Int
	built           map[*core.Transaction]*transfer
	confirmed       map[string]*transfer
	rejectBroadcast bool
	failOnChain     bool
	neverConfirms   bool
	seq             int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		accounts:      map[string]int64{},
		tokenBalances: map[string]*big.Int{},
		built:         map[*core.Transaction]*transfer{},
		confirmed:     map[string]*transfer{},
	}
}

func (c *fakeClient) GetAccount(addr string) (*core.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	balance, ok := c.accounts[addr]
	if !ok {
		return nil, errors.New("account not found")
	}
	return &core.Account{Balance: balance}, nil
}

func (c *fakeClient) build(t *transfer) *api.TransactionExtention {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	tx := &core.Transaction{RawData: &core.TransactionRaw{
		RefBlockBytes: []byte{byte(c.seq)},
		Timestamp:     c.seq,
		Expiration:    c.seq + 60_000,
	}}
	c.built[tx] = t
	return &api.TransactionExtention{Transaction: tx, Result: &api.Return{Result: true, Code: api.Return_SUCCESS}}
}

func (c *fakeClient) Transfer(from, toAddress string, amount int64) (*api.TransactionExtention, error) {
	return c.build(&transfer{from: from, to: toAddress, amount: big.NewInt(amount)}), nil
}

func (c *fakeClient) TRC20Send(from, to, contract string, amount *big.Int, feeLimit int64) (*api.TransactionExtention, error) {
	return c.build(&transfer{from: from, to: to, contract: contract, amount: amount, feeLimit: feeLimit}), nil
}

func (c *fakeClient) TRC20ContractBalance(addr, contractAddress string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if balance, ok := c.tokenBalances[addr]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func (c *fakeClient) Broadcast(tx *core.Transaction) (*api.Return, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejectBroadcast {
		return &api.Return{Result: false, Code: api.Return_SIGERROR, Message: []byte("validate signature error")}, nil
	}
	t, ok := c.built[tx]
	if !ok || len(tx.Signature) != 1 {
		return nil, errors.New("unknown or unsigned transaction")
	}
	raw, err := proto.Marshal(tx.RawData)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(raw)
	key, err := crypto.SigToPub(digest[:], tx.Signature[0])
	if err != nil {
		return nil, err
	}
	t.signer = address.PubkeyToAddress(*key).String()
	c.confirmed[hex.EncodeToString(digest[:])] = t
	return &api.Return{Result: true, Code: api.Return_SUCCESS}, nil
}

func (c *fakeClient) GetTransactionInfoByID(id string) (*core.TransactionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.confirmed[id]; !ok || c.neverConfirms {
		return nil, errors.New("transaction info not found")
	}
	if c.failOnChain {
		return &core.TransactionInfo{BlockNumber: 42, Result: core.TransactionInfo_FAILED, ResMessage: []byte("REVERT")}, nil
	}
	return &core.TransactionInfo{BlockNumber: 42}, nil
}

func (c *fakeClient) transfer(id string) (*transfer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.confirmed[id]
	return t, ok
}
