// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// authorTestPacket authors an unsigned packet spending the given values from
// testAddr0.
func authorTestPacket(t *testing.T, amount btcutil.Amount,
	values ...btcutil.Amount) *psbt.Packet {

	t.Helper()

	quote := testQuote(t, amount, values...)

	packet, err := NewTxAuthor(&chaincfg.MainNetParams).Author(
		&AuthorRequest{
			From:  testAddr0,
			To:    testP2WPKHAddr,
			Quote: quote,
		},
	)
	require.NoError(t, err)

	return packet
}

// TestSignerSign signs authored packets and runs every input through the
// script engine.
func TestSignerSign(t *testing.T) {
	t.Parallel()

	keyring := newTestKeyring(t, 1)
	key, err := keyring.PrivKeyFor(testAddr0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		amount btcutil.Amount
		values []btcutil.Amount
	}{
		{
			name:   "single input",
			amount: 50_000,
			values: []btcutil.Amount{100_000},
		},
		{
			name:   "multiple inputs",
			amount: 120_000,
			values: []btcutil.Amount{60_000, 30_000, 45_000},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			packet := authorTestPacket(t, tc.amount, tc.values...)

			prevOuts := txscript.NewMultiPrevOutFetcher(nil)
			for i, in := range packet.UnsignedTx.TxIn {
				prevOuts.AddPrevOut(
					in.PreviousOutPoint,
					packet.Inputs[i].WitnessUtxo,
				)
			}

			tx, err := NewSigner().Sign(packet, key)
			require.NoError(t, err)

			sigHashes := txscript.NewTxSigHashes(tx, prevOuts)
			for i, in := range tx.TxIn {
				require.Len(t, in.Witness, 2)

				prevOut := prevOuts.FetchPrevOutput(
					in.PreviousOutPoint,
				)
				vm, err := txscript.NewEngine(
					prevOut.PkScript, tx, i,
					txscript.StandardVerifyFlags, nil,
					sigHashes, prevOut.Value, prevOuts,
				)
				require.NoError(t, err)
				require.NoError(t, vm.Execute())
			}

			rawTx, err := SerializeTx(tx)
			require.NoError(t, err)

			raw, err := hex.DecodeString(rawTx)
			require.NoError(t, err)

			var decoded wire.MsgTx
			require.NoError(t, decoded.Deserialize(
				bytes.NewReader(raw),
			))
			require.Equal(t, tx.TxHash(), decoded.TxHash())
			require.Equal(t, tx.WitnessHash(), decoded.WitnessHash())
		})
	}
}

// TestSignerErrors checks that inputs the key cannot spend are rejected.
func TestSignerErrors(t *testing.T) {
	t.Parallel()

	keyring := newTestKeyring(t, 2)
	otherKey, err := keyring.PrivKeyFor(testAddr1)
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()

		packet := authorTestPacket(t, 50_000, 100_000)

		_, err := NewSigner().Sign(packet, otherKey)
		require.ErrorIs(t, err, ErrKeyMismatch)
	})

	t.Run("missing witness utxo", func(t *testing.T) {
		t.Parallel()

		packet := authorTestPacket(t, 50_000, 100_000)
		packet.Inputs[0].WitnessUtxo = nil

		_, err := NewSigner().Sign(packet, otherKey)
		require.ErrorIs(t, err, ErrMissingWitnessUtxo)
	})
}
