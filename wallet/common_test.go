// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	// testMnemonic is the BIP84 test vector mnemonic.
	testMnemonic = "abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon abandon about"

	// testAddr0 and testAddr1 are the first two receiving addresses of
	// testMnemonic on mainnet.
	testAddr0 = "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"
	testAddr1 = "bc1qnjg0jd8228aq7egyzacy8cys3knf9xvrerkf9g"
)

// mockChainBackend is a mock implementation of ChainBackend.
type mockChainBackend struct {
	mock.Mock
}

// A compile-time assertion to ensure mockChainBackend implements
// ChainBackend.
var _ ChainBackend = (*mockChainBackend)(nil)

// ListUnspent implements ChainBackend.
func (m *mockChainBackend) ListUnspent(ctx context.Context,
	addr string) ([]UnspentOutput, error) {

	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]UnspentOutput), args.Error(1)
}

// FeeEstimates implements ChainBackend.
func (m *mockChainBackend) FeeEstimates(
	ctx context.Context) (map[uint32]float64, error) {

	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[uint32]float64), args.Error(1)
}

// Balance implements ChainBackend.
func (m *mockChainBackend) Balance(ctx context.Context,
	addr string) (*AddressBalance, error) {

	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*AddressBalance), args.Error(1)
}

// History implements ChainBackend.
func (m *mockChainBackend) History(ctx context.Context,
	addr string) ([]TxRecord, error) {

	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]TxRecord), args.Error(1)
}

// Broadcast implements ChainBackend.
func (m *mockChainBackend) Broadcast(ctx context.Context,
	tx *wire.MsgTx) (*chainhash.Hash, error) {

	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*chainhash.Hash), args.Error(1)
}

// newTestKeyring returns a mainnet keyring of testMnemonic with numAddrs
// addresses already handed out.
func newTestKeyring(t *testing.T, numAddrs int) *Keyring {
	t.Helper()

	keyring, err := NewKeyring(testMnemonic, "", &chaincfg.MainNetParams)
	require.NoError(t, err)

	for range numAddrs {
		_, err := keyring.NewAddress()
		require.NoError(t, err)
	}

	return keyring
}

// ownedUtxos returns outputs paying to addr, one per value, each with the
// given number of confirmations.
func ownedUtxos(t *testing.T, addr string, confs uint32,
	values ...btcutil.Amount) []UnspentOutput {

	t.Helper()

	pkScript, err := txscript.PayToAddrScript(mustDecodeAddr(t, addr))
	require.NoError(t, err)

	utxos := testUtxos(t, values...)
	for i := range utxos {
		utxos[i].PkScript = pkScript
		utxos[i].Confirmations = confs
	}

	return utxos
}

// createTestWalletWithMocks creates a Wallet backed by a mocked chain and a
// keyring with two addresses. Mock expectations are asserted on cleanup.
func createTestWalletWithMocks(t *testing.T,
	cfg Config) (*Wallet, *mockChainBackend) {

	t.Helper()

	chain := &mockChainBackend{}
	t.Cleanup(func() {
		chain.AssertExpectations(t)
	})

	cfg.Chain = chain
	if cfg.Keyring == nil {
		cfg.Keyring = newTestKeyring(t, 2)
	}
	if cfg.Policy == (FeePolicy{}) {
		cfg.Policy = DefaultFeePolicy()
	}

	w, err := New(cfg)
	require.NoError(t, err)

	return w, chain
}
