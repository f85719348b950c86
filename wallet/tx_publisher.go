// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
)

var (
	// ErrTxNotFinal is returned when a transaction handed to the publisher
	// still has an input without a witness or signature script.
	ErrTxNotFinal = errors.New("transaction has unsigned inputs")
)

// TxPublisher provides an interface for publishing transactions.
type TxPublisher interface {
	// CheckTx checks that a transaction is well formed and fully signed
	// without broadcasting it.
	CheckTx(tx *wire.MsgTx) error

	// Broadcast publishes a transaction to the network and returns the
	// txid reported by the chain backend.
	Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error)
}

// A compile time check to ensure that Wallet implements the interface.
var _ TxPublisher = (*Wallet)(nil)

// CheckTx checks that a transaction is well formed and fully signed without
// broadcasting it.
func (w *Wallet) CheckTx(tx *wire.MsgTx) error {
	err := blockchain.CheckTransactionSanity(btcutil.NewTx(tx))
	if err != nil {
		return fmt.Errorf("transaction %v failed sanity check: %w",
			tx.TxHash(), err)
	}

	for i, txIn := range tx.TxIn {
		if len(txIn.Witness) == 0 && len(txIn.SignatureScript) == 0 {
			return fmt.Errorf("%w: input %d of %v", ErrTxNotFinal, i,
				tx.TxHash())
		}
	}

	return nil
}

// Broadcast publishes a transaction to the network. It is the main
// implementation of the TxPublisher interface.
func (w *Wallet) Broadcast(ctx context.Context,
	tx *wire.MsgTx) (*chainhash.Hash, error) {

	if err := w.CheckTx(tx); err != nil {
		return nil, err
	}

	txid := tx.TxHash()
	log.Tracef("Publishing tx %v: %v", txid, newLogClosure(func() string {
		return spew.Sdump(tx)
	}))

	published, err := w.cfg.Chain.Broadcast(ctx, tx)
	if err != nil {
		log.Errorf("%v: broadcast failed: %v", txid, err)

		return nil, fmt.Errorf("unable to broadcast %v: %w", txid, err)
	}

	if !published.IsEqual(&txid) {
		log.Warnf("Chain backend reported txid %v for tx %v",
			published, txid)
	}

	return published, nil
}
