// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

const (
	// bip84Purpose is the purpose field of native segwit derivation paths.
	bip84Purpose = 84

	// mnemonicEntropyBits is the entropy of a generated 12 word mnemonic.
	mnemonicEntropyBits = 128
)

var (
	// ErrInvalidMnemonic is returned when a mnemonic fails the BIP39
	// word list or checksum check.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrUnknownAddress is returned when an address was not derived by the
	// keyring.
	ErrUnknownAddress = errors.New("address is not in the wallet")
)

// NewMnemonic generates a new random 12 word BIP39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

// Keyring derives P2WPKH receiving addresses along the BIP84 path
// m/84'/coin'/0'/0/i and keeps track of the ones handed out.
type Keyring struct {
	params *chaincfg.Params

	// branch is the extended key at m/84'/coin'/0'/0.
	branch *hdkeychain.ExtendedKey

	mu      sync.RWMutex
	addrs   []string
	indexOf map[string]uint32
}

// NewKeyring creates a keyring from a BIP39 mnemonic and optional passphrase.
func NewKeyring(mnemonic, passphrase string,
	params *chaincfg.Params) (*Keyring, error) {

	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("unable to create master key: %w", err)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + bip84Purpose,
		hdkeychain.HardenedKeyStart + params.HDCoinType,
		hdkeychain.HardenedKeyStart,
		0,
	}

	branch := master
	for _, child := range path {
		branch, err = branch.Derive(child)
		if err != nil {
			return nil, fmt.Errorf("unable to derive branch key: "+
				"%w", err)
		}
	}

	return &Keyring{
		params:  params,
		branch:  branch,
		indexOf: make(map[string]uint32),
	}, nil
}

// DeriveKey returns the private key and P2WPKH address at the given index of
// the receiving branch.
func (k *Keyring) DeriveKey(index uint32) (*btcec.PrivateKey,
	btcutil.Address, error) {

	child, err := k.branch.Derive(index)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to derive key %d: %w",
			index, err)
	}

	privKey, err := child.ECPrivKey()
	if err != nil {
		return nil, nil, err
	}

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(privKey.PubKey().SerializeCompressed()),
		k.params,
	)
	if err != nil {
		return nil, nil, err
	}

	return privKey, addr, nil
}

// NewAddress derives the next unused receiving address.
func (k *Keyring) NewAddress() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	index := uint32(len(k.addrs))
	_, addr, err := k.DeriveKey(index)
	if err != nil {
		return "", err
	}

	encoded := addr.EncodeAddress()
	k.addrs = append(k.addrs, encoded)
	k.indexOf[encoded] = index

	log.Infof("Derived address %s at index %d", encoded, index)

	return encoded, nil
}

// Addresses returns every address handed out so far, in derivation order.
func (k *Keyring) Addresses() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	addrs := make([]string, len(k.addrs))
	copy(addrs, k.addrs)

	return addrs
}

// AddressIndex returns the derivation index of an address handed out by the
// keyring.
func (k *Keyring) AddressIndex(addr string) (uint32, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	index, ok := k.indexOf[addr]

	return index, ok
}

// PrivKeyFor returns the private key of an address handed out by the keyring.
func (k *Keyring) PrivKeyFor(addr string) (*btcec.PrivateKey, error) {
	index, ok := k.AddressIndex(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}

	privKey, _, err := k.DeriveKey(index)

	return privKey, err
}

// Params returns the network the keyring derives addresses for.
func (k *Keyring) Params() *chaincfg.Params {
	return k.params
}
