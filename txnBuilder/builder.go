package txnBuilder

import (
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// ITxBuilder ... derives receiving addresses for one network
type ITxBuilder interface {
	DeriveAddress(group string, index int64) (DerivedAddress, error)
	NextIndex(group string) (int64, error)
	ReserveIndex(group string) (int64, error)
}

// IndexStore ... where issued derivation indexes are recorded
type IndexStore interface {
	MaxDerivationIndex(network, group string) (int64, bool, error)
	ReserveDerivationIndex(network, group string) (int64, error)
}

// AddressEncoder renders a public key in the network's address format
type AddressEncoder func(key *ecdsa.PublicKey) string

// DerivedAddress ... child keypair at m/44'/coin'/account'/0/index
type DerivedAddress struct {
	Address        string
	DerivationPath string
	Index          int64
	SigningKey     *ecdsa.PrivateKey
}

// Builder ... BIP39 seed + BIP44 derivation for a single network
type Builder struct {
	network  string
	coinType uint32
	mnemonic string
	encode   AddressEncoder
	store    IndexStore

	once      sync.Once
	master    *hdkeychain.ExtendedKey
	masterErr error
}

// New ... the seed is only checked when the first address is derived
func New(network string, coinType uint32, mnemonic string, encode AddressEncoder, store IndexStore) *Builder {
	return &Builder{
		network:  network,
		coinType: coinType,
		mnemonic: strings.TrimSpace(mnemonic),
		encode:   encode,
		store:    store,
	}
}

// GenerateDerivationPath ...
func GenerateDerivationPath(coinType, account uint32, index int64) string {
	return fmt.Sprintf("m/44'/%d'/%d'/0/%d", coinType, account, index)
}

// DeriveAddress is deterministic for the same seed, group and index
func (b *Builder) DeriveAddress(group string, index int64) (DerivedAddress, error) {
	account, ok := constants.GroupAccount(group)
	if !ok {
		return DerivedAddress{}, appError.Configuration("no derivation account for currency group %s", group)
	}
	if index < 0 || index >= int64(hdkeychain.HardenedKeyStart) {
		return DerivedAddress{}, fmt.Errorf("derivation index %d out of range", index)
	}
	master, err := b.masterKey()
	if err != nil {
		return DerivedAddress{}, err
	}

	key := master
	for _, child := range []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + b.coinType,
		hdkeychain.HardenedKeyStart + account,
		0,
		uint32(index),
	} {
		if key, err = key.Derive(child); err != nil {
			return DerivedAddress{}, fmt.Errorf("derive child %d: %w", child, err)
		}
	}
	privateKey, err := key.ECPrivKey()
	if err != nil {
		return DerivedAddress{}, fmt.Errorf("derive private key: %w", err)
	}
	signingKey := privateKey.ToECDSA()

	return DerivedAddress{
		Address:        b.encode(&signingKey.PublicKey),
		DerivationPath: GenerateDerivationPath(b.coinType, account, index),
		Index:          index,
		SigningKey:     signingKey,
	}, nil
}

// NextIndex ... max issued index + 1, or 0 for an empty group. Not safe under concurrent issuance, see ReserveIndex
func (b *Builder) NextIndex(group string) (int64, error) {
	max, found, err := b.store.MaxDerivationIndex(b.network, group)
	if err != nil {
		return -1, err
	}
	if !found {
		return 0, nil
	}
	return max + 1, nil
}

// ReserveIndex ... claims the next index of the group; no two callers get the same one
func (b *Builder) ReserveIndex(group string) (int64, error) {
	return b.store.ReserveDerivationIndex(b.network, group)
}

// SigningKey re-derives the key of an issued address and checks it still maps to that address
func (b *Builder) SigningKey(group string, index int64, address string) (*ecdsa.PrivateKey, error) {
	derived, err := b.DeriveAddress(group, index)
	if err != nil {
		return nil, err
	}
	if derived.Address != address {
		return nil, appError.Configuration("seed derives %s at %s, ledger holds %s", derived.Address, derived.DerivationPath, address)
	}
	return derived.SigningKey, nil
}

func (b *Builder) masterKey() (*hdkeychain.ExtendedKey, error) {
	b.once.Do(func() {
		if b.mnemonic == "" {
			b.masterErr = appError.Configuration("master seed for %s is not configured", b.network)
			return
		}
		seed, err := bip39.NewSeedWithErrorChecking(b.mnemonic, "")
		if err != nil {
			b.masterErr = appError.Configuration("master seed for %s is not a valid mnemonic: %s", b.network, err)
			return
		}
		b.master, b.masterErr = hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	})
	return b.master, b.masterErr
}
