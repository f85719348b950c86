// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// testQuote quotes a payment of amount at rate 1 from outputs of testAddr0.
func testQuote(t *testing.T, amount btcutil.Amount,
	values ...btcutil.Amount) *FeeQuote {

	t.Helper()

	quoter := NewFeeQuoter(DefaultFeePolicy())
	quote, err := quoter.Quote(&QuoteRequest{
		Sender:  testAddr0,
		Amount:  amount,
		FeeRate: btcunit.NewSatPerVByte(1),
		UTXOs:   fn.Some(ownedUtxos(t, testAddr0, 1, values...)),
	})
	require.NoError(t, err)

	return quote
}

// TestTxAuthorAuthor checks the outputs and inputs of authored packets.
func TestTxAuthorAuthor(t *testing.T) {
	t.Parallel()

	author := NewTxAuthor(&chaincfg.MainNetParams)

	fromScript, err := txscript.PayToAddrScript(
		mustDecodeAddr(t, testAddr0),
	)
	require.NoError(t, err)

	toScript, err := txscript.PayToAddrScript(
		mustDecodeAddr(t, testP2TRAddr),
	)
	require.NoError(t, err)

	t.Run("with change", func(t *testing.T) {
		t.Parallel()

		quote := testQuote(t, 50_000, 100_000)
		require.True(t, quote.HasChange())

		packet, err := author.Author(&AuthorRequest{
			From:  testAddr0,
			To:    testP2TRAddr,
			Quote: quote,
		})
		require.NoError(t, err)

		tx := packet.UnsignedTx
		require.EqualValues(t, txVersion, tx.Version)
		require.Len(t, tx.TxOut, 2)
		require.EqualValues(t, 50_000, tx.TxOut[0].Value)
		require.Equal(t, toScript, tx.TxOut[0].PkScript)
		require.EqualValues(t, quote.Change, tx.TxOut[1].Value)
		require.Equal(t, fromScript, tx.TxOut[1].PkScript)

		require.Len(t, tx.TxIn, 1)
		require.Equal(t, quote.Selected[0].OutPoint,
			tx.TxIn[0].PreviousOutPoint)
		require.EqualValues(t, 100_000,
			packet.Inputs[0].WitnessUtxo.Value)
		require.Equal(t, fromScript,
			packet.Inputs[0].WitnessUtxo.PkScript)

		// Inputs minus outputs is exactly the quoted fee.
		var outTotal int64
		for _, out := range tx.TxOut {
			outTotal += out.Value
		}
		require.EqualValues(t, quote.Fee, 100_000-outTotal)
	})

	t.Run("without change", func(t *testing.T) {
		t.Parallel()

		quote := testQuote(t, 50_000, 50_500)
		require.False(t, quote.HasChange())

		packet, err := author.Author(&AuthorRequest{
			From:  testAddr0,
			To:    testP2WPKHAddr,
			Quote: quote,
		})
		require.NoError(t, err)
		require.Len(t, packet.UnsignedTx.TxOut, 1)
	})

	t.Run("inputs without script use sender", func(t *testing.T) {
		t.Parallel()

		quote := testQuote(t, 50_000, 100_000)
		quote.Selected[0].PkScript = nil

		packet, err := author.Author(&AuthorRequest{
			From:  testAddr0,
			To:    testP2TRAddr,
			Quote: quote,
		})
		require.NoError(t, err)
		require.Equal(t, fromScript,
			packet.Inputs[0].WitnessUtxo.PkScript)
	})
}

// TestTxAuthorErrors checks that the author rejects quotes it cannot build.
func TestTxAuthorErrors(t *testing.T) {
	t.Parallel()

	author := NewTxAuthor(&chaincfg.MainNetParams)

	preview, err := NewFeeQuoter(DefaultFeePolicy()).Quote(&QuoteRequest{
		Amount:  1_000,
		FeeRate: btcunit.NewSatPerVByte(1),
		UTXOs:   fn.Some([]UnspentOutput{}),
	})
	require.NoError(t, err)

	underfunded := testQuote(t, 50_000, 100_000)
	underfunded.Fee = underfunded.TotalInput

	tests := []struct {
		name    string
		req     *AuthorRequest
		wantErr error
	}{
		{
			name:    "nil quote",
			req:     &AuthorRequest{From: testAddr0, To: testAddr1},
			wantErr: ErrNoInputs,
		},
		{
			name: "preview quote",
			req: &AuthorRequest{
				From: testAddr0, To: testAddr1, Quote: preview,
			},
			wantErr: ErrNoInputs,
		},
		{
			name: "inputs do not cover amount and fee",
			req: &AuthorRequest{
				From: testAddr0, To: testAddr1,
				Quote: underfunded,
			},
			wantErr: ErrInsufficientInputValue,
		},
		{
			name: "dust payment",
			req: &AuthorRequest{
				From: testAddr0, To: testAddr1,
				Quote: testQuote(t, 100, 10_000),
			},
			wantErr: txrules.ErrOutputIsDust,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			packet, err := author.Author(tc.req)
			require.ErrorIs(t, err, tc.wantErr)
			require.Nil(t, packet)
		})
	}

	t.Run("invalid recipient", func(t *testing.T) {
		t.Parallel()

		_, err := author.Author(&AuthorRequest{
			From:  testAddr0,
			To:    "not an address",
			Quote: testQuote(t, 50_000, 100_000),
		})
		require.ErrorContains(t, err, "recipient")
	})
}
