// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
)

// TestKeyringDerivation checks the derived addresses against the BIP84 test
// vectors.
func TestKeyringDerivation(t *testing.T) {
	t.Parallel()

	keyring := newTestKeyring(t, 0)
	require.Empty(t, keyring.Addresses())

	addr0, err := keyring.NewAddress()
	require.NoError(t, err)
	require.Equal(t, testAddr0, addr0)

	addr1, err := keyring.NewAddress()
	require.NoError(t, err)
	require.Equal(t, testAddr1, addr1)

	require.Equal(t, []string{testAddr0, testAddr1}, keyring.Addresses())

	index, ok := keyring.AddressIndex(testAddr1)
	require.True(t, ok)
	require.EqualValues(t, 1, index)

	// The private key handed out for an address must match it.
	privKey, err := keyring.PrivKeyFor(testAddr0)
	require.NoError(t, err)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(privKey.PubKey().SerializeCompressed()),
		&chaincfg.MainNetParams,
	)
	require.NoError(t, err)
	require.Equal(t, testAddr0, addr.EncodeAddress())
}

// TestKeyringUnknownAddress checks lookups of addresses the keyring never
// handed out.
func TestKeyringUnknownAddress(t *testing.T) {
	t.Parallel()

	keyring := newTestKeyring(t, 1)

	_, ok := keyring.AddressIndex(testAddr1)
	require.False(t, ok)

	_, err := keyring.PrivKeyFor(testAddr1)
	require.ErrorIs(t, err, ErrUnknownAddress)
}

// TestKeyringTestnet checks that testnet keyrings derive testnet addresses.
func TestKeyringTestnet(t *testing.T) {
	t.Parallel()

	keyring, err := NewKeyring(
		testMnemonic, "", &chaincfg.TestNet3Params,
	)
	require.NoError(t, err)

	addr, err := keyring.NewAddress()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "tb1q"))
	require.NotEqual(t, testAddr0[3:], addr[3:])
}

// TestNewKeyringInvalidMnemonic checks mnemonic validation.
func TestNewKeyringInvalidMnemonic(t *testing.T) {
	t.Parallel()

	_, err := NewKeyring(
		"abandon abandon abandon", "", &chaincfg.MainNetParams,
	)
	require.ErrorIs(t, err, ErrInvalidMnemonic)

	// Valid words with a bad checksum.
	badChecksum := strings.Repeat("abandon ", 11) + "abandon"
	_, err = NewKeyring(badChecksum, "", &chaincfg.MainNetParams)
	require.ErrorIs(t, err, ErrInvalidMnemonic)
}

// TestNewMnemonic checks generated mnemonics are valid and distinct.
func TestNewMnemonic(t *testing.T) {
	t.Parallel()

	first, err := NewMnemonic()
	require.NoError(t, err)
	require.True(t, bip39.IsMnemonicValid(first))
	require.Len(t, strings.Fields(first), 12)

	second, err := NewMnemonic()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

// TestKeyringConcurrentNewAddress checks that concurrent derivations hand out
// distinct addresses.
func TestKeyringConcurrentNewAddress(t *testing.T) {
	t.Parallel()

	const numAddrs = 20

	keyring := newTestKeyring(t, 0)

	var wg sync.WaitGroup
	errs := make(chan error, numAddrs)
	for range numAddrs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := keyring.NewAddress()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	addrs := keyring.Addresses()
	require.Len(t, addrs, numAddrs)

	seen := make(map[string]struct{}, numAddrs)
	for i, addr := range addrs {
		index, ok := keyring.AddressIndex(addr)
		require.True(t, ok)
		require.EqualValues(t, i, index)

		seen[addr] = struct{}{}
	}
	require.Len(t, seen, numAddrs)
}
