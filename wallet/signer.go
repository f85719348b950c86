// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrMissingWitnessUtxo is returned when an input to sign does not
	// carry the output it spends.
	ErrMissingWitnessUtxo = errors.New("input is missing its witness utxo")

	// ErrKeyMismatch is returned when an input is not a P2WPKH output of
	// the signing key.
	ErrKeyMismatch = errors.New("input does not pay to the signing key")
)

// Signer signs packets whose inputs all pay to a single P2WPKH key.
type Signer struct{}

// NewSigner creates a signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign adds a SIGHASH_ALL witness signature from key to every input of the
// packet, finalizes it and returns the extracted transaction.
func (s *Signer) Sign(packet *psbt.Packet,
	key *btcec.PrivateKey) (*wire.MsgTx, error) {

	tx := packet.UnsignedTx
	pubKey := key.PubKey().SerializeCompressed()

	expected, err := p2wpkhScript(pubKey)
	if err != nil {
		return nil, err
	}

	prevOuts := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range tx.TxIn {
		utxo := packet.Inputs[i].WitnessUtxo
		if utxo == nil {
			return nil, fmt.Errorf("%w: input %d",
				ErrMissingWitnessUtxo, i)
		}

		if !bytes.Equal(utxo.PkScript, expected) {
			return nil, fmt.Errorf("%w: input %d (%v)",
				ErrKeyMismatch, i, txIn.PreviousOutPoint)
		}

		prevOuts.AddPrevOut(txIn.PreviousOutPoint, utxo)
	}

	sigHashes := txscript.NewTxSigHashes(tx, prevOuts)

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, err
	}

	for i := range tx.TxIn {
		utxo := packet.Inputs[i].WitnessUtxo

		sig, err := txscript.RawTxInWitnessSignature(
			tx, sigHashes, i, utxo.Value, utxo.PkScript,
			txscript.SigHashAll, key,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to sign input %d: %w", i,
				err)
		}

		outcome, err := updater.Sign(i, sig, pubKey, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("unable to add signature to "+
				"input %d: %w", i, err)
		}
		if outcome != psbt.SignSuccesful {
			return nil, fmt.Errorf("unable to add signature to "+
				"input %d: outcome %d", i, outcome)
		}
	}

	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return nil, fmt.Errorf("unable to finalize packet: %w", err)
	}

	signed, err := psbt.Extract(packet)
	if err != nil {
		return nil, fmt.Errorf("unable to extract tx: %w", err)
	}

	log.Debugf("Signed tx %v with %d inputs", signed.TxHash(),
		len(signed.TxIn))

	return signed, nil
}

// SerializeTx returns the hex encoding of a transaction with its witnesses.
func SerializeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf.Bytes()), nil
}

// p2wpkhScript returns the P2WPKH output script of a compressed public key.
func p2wpkhScript(pubKey []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(pubKey)).
		Script()
}
