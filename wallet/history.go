// Copyright (c) 2015-2020 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxIO is one input or output of a transaction in an address history. The
// address is empty for scripts that have no address form.
type TxIO struct {
	Address string
	Value   btcutil.Amount
}

// TxRecord is a transaction touching an address, as reported by the chain
// backend.
type TxRecord struct {
	TxID chainhash.Hash

	// Confirmed is false while the transaction is in the mempool. The
	// block fields are zero in that case.
	Confirmed   bool
	BlockHeight uint32
	BlockTime   time.Time

	Fee     btcutil.Amount
	Inputs  []TxIO
	Outputs []TxIO
}

// NetValue returns the value the transaction moved into addr, negative when
// addr paid out more than it received.
func (r *TxRecord) NetValue(addr string) btcutil.Amount {
	var net btcutil.Amount
	for _, out := range r.Outputs {
		if out.Address == addr {
			net += out.Value
		}
	}

	for _, in := range r.Inputs {
		if in.Address == addr {
			net -= in.Value
		}
	}

	return net
}

// History implements Controller. Records are returned in the order of the
// chain backend, newest first for Esplora.
func (w *Wallet) History(ctx context.Context,
	addr string) ([]TxRecord, error) {

	records, err := w.cfg.Chain.History(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch history of %s: %w",
			addr, err)
	}

	log.Debugf("Fetched %d transactions of %s", len(records), addr)

	return records, nil
}
