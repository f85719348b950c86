// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

const (
	// txVersion is the version of every authored transaction.
	txVersion = 2
)

var (
	// ErrInsufficientInputValue is returned when the inputs of a quote do
	// not cover the payment plus fee. The author never adjusts a quote to
	// make it fit.
	ErrInsufficientInputValue = errors.New("selected inputs do not cover " +
		"amount plus fee")

	// ErrNoInputs is returned when a preview quote, which has no inputs,
	// is passed to the author.
	ErrNoInputs = errors.New("quote has no inputs to spend")

	// ErrAddressNetworkMismatch is returned when an address does not
	// belong to the author's network.
	ErrAddressNetworkMismatch = errors.New("address is not for the " +
		"configured network")
)

// AuthorRequest describes a transaction to build from a quote.
type AuthorRequest struct {
	// From is the sender. Change is paid back to it and inputs without a
	// script of their own are assumed to pay to it.
	From string

	// To is the recipient of the payment output.
	To string

	// Quote is the fee quote the transaction is built from.
	Quote *FeeQuote
}

// TxAuthor builds unsigned PSBT packets from fee quotes.
type TxAuthor struct {
	params *chaincfg.Params
}

// NewTxAuthor creates an author for the given network.
func NewTxAuthor(params *chaincfg.Params) *TxAuthor {
	return &TxAuthor{params: params}
}

// Author builds an unsigned packet spending exactly the quote's inputs into a
// payment output and, when the quote has change, a change output back to the
// sender. Every input carries its witness UTXO so it can be signed.
func (a *TxAuthor) Author(req *AuthorRequest) (*psbt.Packet, error) {
	quote := req.Quote
	if quote == nil || quote.IsPreview() {
		return nil, ErrNoInputs
	}

	if quote.TotalInput < quote.Amount+quote.Fee {
		return nil, fmt.Errorf("%w: have %v, need %v + %v fee",
			ErrInsufficientInputValue, quote.TotalInput,
			quote.Amount, quote.Fee)
	}

	toScript, err := a.addrScript(req.To)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	fromScript, err := a.addrScript(req.From)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}

	tx := wire.NewMsgTx(txVersion)

	payment := wire.NewTxOut(int64(quote.Amount), toScript)
	err = txrules.CheckOutput(payment, txrules.DefaultRelayFeePerKb)
	if err != nil {
		return nil, fmt.Errorf("payment output: %w", err)
	}
	tx.AddTxOut(payment)

	if quote.HasChange() {
		change := wire.NewTxOut(int64(quote.Change), fromScript)
		err := txrules.CheckOutput(change, txrules.DefaultRelayFeePerKb)
		if err != nil {
			return nil, fmt.Errorf("change output: %w", err)
		}
		tx.AddTxOut(change)
	}

	prevOuts := make([]*wire.TxOut, 0, len(quote.Selected))
	for i := range quote.Selected {
		utxo := &quote.Selected[i]

		pkScript, err := a.inputScript(utxo, fromScript)
		if err != nil {
			return nil, fmt.Errorf("input %v: %w", utxo.OutPoint,
				err)
		}

		tx.AddTxIn(wire.NewTxIn(&utxo.OutPoint, nil, nil))
		prevOuts = append(
			prevOuts, wire.NewTxOut(int64(utxo.Value), pkScript),
		)
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, fmt.Errorf("unable to create packet: %w", err)
	}

	for i, prevOut := range prevOuts {
		packet.Inputs[i].WitnessUtxo = prevOut
		packet.Inputs[i].SighashType = txscript.SigHashAll
	}

	log.Debugf("Authored tx %v: %d inputs, %d outputs, quoted vsize %v, "+
		"script estimate %d vb", tx.TxHash(), len(tx.TxIn),
		len(tx.TxOut), quote.VSize, scriptVSize(tx, prevOuts))

	return packet, nil
}

// addrScript decodes an address of the author's network to its output
// script.
func (a *TxAuthor) addrScript(addr string) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(addr, a.params)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	if !decoded.IsForNet(a.params) {
		return nil, fmt.Errorf("%w: %s on %s", ErrAddressNetworkMismatch,
			addr, a.params.Name)
	}

	return txscript.PayToAddrScript(decoded)
}

// inputScript returns the output script locking utxo: its own script, the
// script of its address hint, or the sender's script.
func (a *TxAuthor) inputScript(utxo *UnspentOutput,
	fromScript []byte) ([]byte, error) {

	switch {
	case len(utxo.PkScript) != 0:
		return utxo.PkScript, nil

	case utxo.Address != "":
		return a.addrScript(utxo.Address)

	default:
		return fromScript, nil
	}
}

// scriptVSize estimates the virtual size of tx from the actual scripts it
// spends, for comparison with the quoted size in logs.
func scriptVSize(tx *wire.MsgTx, prevOuts []*wire.TxOut) int {
	var p2pkh, p2tr, p2wpkh, nested int
	for _, prevOut := range prevOuts {
		switch ClassifyPkScript(prevOut.PkScript) {
		case AddrTypeP2TR:
			p2tr++
		case AddrTypeP2WPKH:
			p2wpkh++
		case AddrTypeP2SH:
			nested++
		default:
			p2pkh++
		}
	}

	return txsizes.EstimateVirtualSize(
		p2pkh, p2tr, p2wpkh, nested, tx.TxOut, 0,
	)
}
