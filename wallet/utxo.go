// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrNegativeUtxoValue is returned when an unspent output carries a
	// negative value.
	ErrNegativeUtxoValue = errors.New("utxo value must not be negative")
)

// UnspentOutput is a spendable output that is a candidate for coin selection.
// It is owned by the caller and only read by the selection engine.
type UnspentOutput struct {
	// OutPoint identifies the output by transaction id and index.
	OutPoint wire.OutPoint

	// Value is the amount locked in the output.
	Value btcutil.Amount

	// Address is an optional hint naming the address the output pays to.
	// When set it takes precedence over PkScript for size estimation.
	Address string

	// PkScript is the optional output script. It is required when the
	// output is later spent in a PSBT.
	PkScript []byte

	// Confirmations is the number of blocks that have confirmed the
	// output, zero while it is unconfirmed.
	Confirmations uint32
}

// NewUnspentOutput creates an UnspentOutput from a hex transaction id, output
// index and value in satoshis.
func NewUnspentOutput(txid string, vout uint32,
	value btcutil.Amount) (UnspentOutput, error) {

	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return UnspentOutput{}, fmt.Errorf("invalid txid %q: %w", txid,
			err)
	}

	if value < 0 {
		return UnspentOutput{}, fmt.Errorf("%w: %v", ErrNegativeUtxoValue,
			value)
	}

	return UnspentOutput{
		OutPoint: *wire.NewOutPoint(hash, vout),
		Value:    value,
	}, nil
}

// addressType returns the type used to size this output when it is spent. An
// address hint is preferred, then the output script, then the caller supplied
// fallback.
func (u *UnspentOutput) addressType(fallback AddressType) AddressType {
	switch {
	case u.Address != "":
		return ClassifyAddress(u.Address)

	case len(u.PkScript) != 0:
		return ClassifyPkScript(u.PkScript)

	default:
		return fallback
	}
}

// validateUtxos checks every output for a non-negative value.
func validateUtxos(utxos []UnspentOutput) error {
	for i := range utxos {
		if utxos[i].Value < 0 {
			return fmt.Errorf("%w: %v has value %v",
				ErrNegativeUtxoValue, utxos[i].OutPoint,
				utxos[i].Value)
		}
	}

	return nil
}

// sumValues returns the total value of the given outputs.
func sumValues(utxos []UnspentOutput) btcutil.Amount {
	var total btcutil.Amount
	for i := range utxos {
		total += utxos[i].Value
	}

	return total
}
