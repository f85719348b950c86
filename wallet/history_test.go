// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestTxRecordNetValue checks the value moved into and out of an address.
func TestTxRecordNetValue(t *testing.T) {
	t.Parallel()

	record := TxRecord{
		Inputs: []TxIO{
			{Address: testAddr0, Value: 100_000},
			{Address: testAddr1, Value: 5_000},
		},
		Outputs: []TxIO{
			{Address: testP2TRAddr, Value: 50_000},
			{Address: testAddr0, Value: 49_859},
			{Value: 0},
		},
	}

	require.EqualValues(t, -50_141, record.NetValue(testAddr0))
	require.EqualValues(t, -5_000, record.NetValue(testAddr1))
	require.EqualValues(t, 50_000, record.NetValue(testP2TRAddr))
	require.Zero(t, record.NetValue(testP2PKHAddr))
}

// TestWalletHistory checks that history is served by the chain backend.
func TestWalletHistory(t *testing.T) {
	t.Parallel()

	w, chain := createTestWalletWithMocks(t, Config{})

	records := []TxRecord{{TxID: chainhash.Hash{0x01}, Confirmed: true}}
	chain.On("History", mock.Anything, testAddr0).
		Return(records, nil).Once()

	got, err := w.History(t.Context(), testAddr0)
	require.NoError(t, err)
	require.Equal(t, records, got)

	errChainDown := errors.New("chain down")
	chain.On("History", mock.Anything, testAddr1).
		Return(nil, errChainDown).Once()

	_, err = w.History(t.Context(), testAddr1)
	require.ErrorIs(t, err, errChainDown)
}
