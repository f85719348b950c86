// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestFeeQuoterQuote checks the final fee, change and output count of quotes
// spending real inputs.
func TestFeeQuoterQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		values      []btcutil.Amount
		amount      btcutil.Amount
		rate        btcutil.Amount
		wantFee     btcutil.Amount
		wantChange  btcutil.Amount
		wantOutputs int
		wantVSize   uint64
	}{
		{
			name:        "change output",
			values:      []btcutil.Amount{100_000},
			amount:      50_000,
			rate:        1,
			wantFee:     141,
			wantChange:  49_859,
			wantOutputs: 2,
			wantVSize:   140,
		},
		{
			name:        "no change output",
			values:      []btcutil.Amount{50_500},
			amount:      50_000,
			rate:        1,
			wantFee:     110,
			wantChange:  0,
			wantOutputs: 1,
			wantVSize:   109,
		},
		{
			// Selection commits change of exactly 546, the buffer
			// then takes it below the limit.
			name:        "buffer drops change output",
			values:      []btcutil.Amount{50_686},
			amount:      50_000,
			rate:        1,
			wantFee:     110,
			wantChange:  0,
			wantOutputs: 1,
			wantVSize:   109,
		},
		{
			// The leftover covers the size fee but not the buffer.
			name:        "buffer trimmed to leftover",
			values:      []btcutil.Amount{50_109},
			amount:      50_000,
			rate:        1,
			wantFee:     109,
			wantChange:  0,
			wantOutputs: 1,
			wantVSize:   109,
		},
	}

	quoter := NewFeeQuoter(DefaultFeePolicy())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange.
			rate := btcunit.NewSatPerVByte(tc.rate)
			req := &QuoteRequest{
				Amount:  tc.amount,
				FeeRate: rate,
				UTXOs:   fn.Some(testUtxos(t, tc.values...)),
			}

			// Act.
			quote, err := quoter.Quote(req)

			// Assert.
			require.NoError(t, err)
			require.Equal(t, tc.wantFee, quote.Fee)
			require.Equal(t, tc.wantChange, quote.Change)
			require.Equal(t, tc.wantOutputs, quote.OutputCount)
			require.Equal(t, tc.wantVSize, quote.VSize.VBytes())
			require.Equal(t, tc.wantFee.ToBTC(), quote.FeeBTC)
			require.False(t, quote.IsPreview())
			require.Equal(t, tc.wantOutputs == 2, quote.HasChange())

			require.GreaterOrEqual(t, quote.TotalInput,
				quote.Amount+quote.Fee+quote.Change)
			require.GreaterOrEqual(t, quote.Fee,
				rate.FeeForVByteRoundUp(quote.VSize))
		})
	}
}

// TestFeeQuoterPreview checks that an empty UTXO set yields a fallback quote
// instead of an error.
func TestFeeQuoterPreview(t *testing.T) {
	t.Parallel()

	quoter := NewFeeQuoter(DefaultFeePolicy())

	quote, err := quoter.Quote(&QuoteRequest{
		Sender:  testP2WPKHAddr,
		Amount:  50_000,
		FeeRate: btcunit.CalcSatPerVByte(5, btcunit.NewVByte(2)),
		UTXOs:   fn.Some([]UnspentOutput{}),
	})
	require.NoError(t, err)

	require.True(t, quote.IsPreview())
	require.Empty(t, quote.Selected)
	require.EqualValues(t, 140, quote.VSize.VBytes())
	require.EqualValues(t, 350, quote.Fee)
	require.Zero(t, quote.Change)
	require.Zero(t, quote.TotalInput)
	require.Equal(t, 2, quote.OutputCount)
}

// TestFeeQuoterErrors checks request validation and error propagation.
func TestFeeQuoterErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     *QuoteRequest
		wantErr error
	}{
		{
			name: "missing utxo set",
			req: &QuoteRequest{
				Amount:  1_000,
				FeeRate: btcunit.NewSatPerVByte(1),
				UTXOs:   fn.None[[]UnspentOutput](),
			},
			wantErr: ErrMissingUtxoSet,
		},
		{
			name: "negative amount",
			req: &QuoteRequest{
				Amount:  -1,
				FeeRate: btcunit.NewSatPerVByte(1),
				UTXOs:   fn.Some([]UnspentOutput{}),
			},
			wantErr: ErrNegativeAmount,
		},
		{
			name: "negative utxo value",
			req: &QuoteRequest{
				Amount:  1_000,
				FeeRate: btcunit.NewSatPerVByte(1),
				UTXOs: fn.Some([]UnspentOutput{
					{Value: 5_000}, {Value: -1},
				}),
			},
			wantErr: ErrNegativeUtxoValue,
		},
		{
			name: "insufficient funds",
			req: &QuoteRequest{
				Amount:  50_000,
				FeeRate: btcunit.NewSatPerVByte(10),
				UTXOs: fn.Some([]UnspentOutput{
					{Value: 50_100},
				}),
			},
			wantErr: ErrInsufficientFunds,
		},
	}

	quoter := NewFeeQuoter(DefaultFeePolicy())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			quote, err := quoter.Quote(tc.req)
			require.ErrorIs(t, err, tc.wantErr)
			require.Nil(t, quote)
		})
	}
}

// TestFeeQuoterIdempotent checks that identical requests give identical
// quotes.
func TestFeeQuoterIdempotent(t *testing.T) {
	t.Parallel()

	quoter := NewFeeQuoter(DefaultFeePolicy())
	utxos := testUtxos(t, 12_000, 80_000, 3_000, 80_000)

	newReq := func() *QuoteRequest {
		return &QuoteRequest{
			Sender:  testP2TRAddr,
			Amount:  95_000,
			FeeRate: btcunit.NewSatPerVByte(12),
			UTXOs:   fn.Some(utxos),
		}
	}

	first, err := quoter.Quote(newReq())
	require.NoError(t, err)

	second, err := quoter.Quote(newReq())
	require.NoError(t, err)

	require.Equal(t, first, second)
}

// TestFeeQuoterPolicy checks that a custom policy changes the buffer and the
// change decision.
func TestFeeQuoterPolicy(t *testing.T) {
	t.Parallel()

	quoter := NewFeeQuoter(FeePolicy{DustLimit: 1_000, FeeBuffer: 0})
	require.Equal(t, btcutil.Amount(1_000), quoter.Policy().DustLimit)

	// 50_900 leaves 760 after the 140 sat two output fee, below the
	// custom limit, so the transaction has a single output.
	quote, err := quoter.Quote(&QuoteRequest{
		Amount:  50_000,
		FeeRate: btcunit.NewSatPerVByte(1),
		UTXOs:   fn.Some(testUtxos(t, 50_900)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, quote.OutputCount)
	require.EqualValues(t, 109, quote.Fee)
}

// TestFeeQuoteString checks the display form of a quote.
func TestFeeQuoteString(t *testing.T) {
	t.Parallel()

	quote := &FeeQuote{
		Fee:     141,
		FeeBTC:  btcutil.Amount(141).ToBTC(),
		VSize:   btcunit.NewVByte(140),
		FeeRate: btcunit.NewSatPerVByte(1),
	}

	require.Equal(t,
		"141 sats (0.00000141 BTC) • 1.000 sat/vb • 140 vBytes",
		quote.String())
}
