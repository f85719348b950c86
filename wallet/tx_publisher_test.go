// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// signedTestTx authors and signs a payment from testAddr0.
func signedTestTx(t *testing.T, w *Wallet) *wire.MsgTx {
	t.Helper()

	key, err := w.cfg.Keyring.PrivKeyFor(testAddr0)
	require.NoError(t, err)

	tx, err := NewSigner().Sign(authorTestPacket(t, 50_000, 100_000), key)
	require.NoError(t, err)

	return tx
}

// TestCheckTx checks the sanity and signature presence checks.
func TestCheckTx(t *testing.T) {
	t.Parallel()

	w, _ := createTestWalletWithMocks(t, Config{})

	signed := signedTestTx(t, w)
	require.NoError(t, w.CheckTx(signed))

	unsigned := authorTestPacket(t, 50_000, 100_000).UnsignedTx
	require.ErrorIs(t, w.CheckTx(unsigned), ErrTxNotFinal)

	require.Error(t, w.CheckTx(wire.NewMsgTx(txVersion)))
}

// TestBroadcast checks publishing through the chain backend.
func TestBroadcast(t *testing.T) {
	t.Parallel()

	t.Run("published", func(t *testing.T) {
		t.Parallel()

		w, chain := createTestWalletWithMocks(t, Config{})
		tx := signedTestTx(t, w)
		txid := tx.TxHash()

		chain.On("Broadcast", mock.Anything, tx).
			Return(&txid, nil).Once()

		published, err := w.Broadcast(t.Context(), tx)
		require.NoError(t, err)
		require.Equal(t, txid, *published)
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		w, chain := createTestWalletWithMocks(t, Config{})
		tx := signedTestTx(t, w)

		errRejected := errors.New("bad-txns-inputs-missingorspent")
		chain.On("Broadcast", mock.Anything, tx).
			Return(nil, errRejected).Once()

		_, err := w.Broadcast(t.Context(), tx)
		require.ErrorIs(t, err, errRejected)
		require.ErrorContains(t, err, tx.TxHash().String())
	})

	t.Run("unsigned is not sent", func(t *testing.T) {
		t.Parallel()

		w, _ := createTestWalletWithMocks(t, Config{})
		unsigned := authorTestPacket(t, 50_000, 100_000).UnsignedTx

		_, err := w.Broadcast(t.Context(), unsigned)
		require.ErrorIs(t, err, ErrTxNotFinal)
	})

	t.Run("different txid is passed through", func(t *testing.T) {
		t.Parallel()

		w, chain := createTestWalletWithMocks(t, Config{})
		tx := signedTestTx(t, w)
		other := chainhash.Hash{0x09}

		chain.On("Broadcast", mock.Anything, tx).
			Return(&other, nil).Once()

		published, err := w.Broadcast(t.Context(), tx)
		require.NoError(t, err)
		require.Equal(t, other, *published)
	})
}
