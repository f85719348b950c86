// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"encoding/hex"

	"github.com/Swapso-App/BTC-module/wallet"
	"github.com/btcsuite/btcd/btcutil"
)

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Needed and Available are set for insufficient funds errors.
	Needed    *int64 `json:"needed,omitempty"`
	Available *int64 `json:"available,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK    bool       `json:"ok"`
	Error *ErrorInfo `json:"error"`
}

// UtxoJSON is an unspent output supplied by or returned to a client.
type UtxoJSON struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Value         int64  `json:"value"`
	Address       string `json:"address,omitempty"`
	ScriptPubKey  string `json:"scriptPubKey,omitempty"`
	Confirmations uint32 `json:"confirmations,omitempty"`
}

// toUnspentOutput converts a client supplied output.
func (u *UtxoJSON) toUnspentOutput() (wallet.UnspentOutput, error) {
	utxo, err := wallet.NewUnspentOutput(
		u.TxID, u.Vout, btcutil.Amount(u.Value),
	)
	if err != nil {
		return wallet.UnspentOutput{}, err
	}

	if u.ScriptPubKey != "" {
		utxo.PkScript, err = hex.DecodeString(u.ScriptPubKey)
		if err != nil {
			return wallet.UnspentOutput{}, err
		}
	}
	utxo.Address = u.Address
	utxo.Confirmations = u.Confirmations

	return utxo, nil
}

// newUtxoJSON converts an output for a response.
func newUtxoJSON(utxo *wallet.UnspentOutput) UtxoJSON {
	return UtxoJSON{
		TxID:          utxo.OutPoint.Hash.String(),
		Vout:          utxo.OutPoint.Index,
		Value:         int64(utxo.Value),
		Address:       utxo.Address,
		ScriptPubKey:  hex.EncodeToString(utxo.PkScript),
		Confirmations: utxo.Confirmations,
	}
}

// FeeQuoteRequest is the body of POST /api/fee-quote. When UTXOs is omitted
// the server fetches the sender's outputs itself. An empty list asks for a
// preview.
type FeeQuoteRequest struct {
	From    string      `json:"from"`
	Amount  int64       `json:"amount"`
	FeeRate float64     `json:"feeRate"`
	UTXOs   *[]UtxoJSON `json:"utxos"`
}

// QuoteJSON is a fee quote in a response.
type QuoteJSON struct {
	Fee         int64      `json:"fee"`
	FeeBTC      float64    `json:"feeBtc"`
	VSize       uint64     `json:"vsize"`
	FeeRate     float64    `json:"feeRate"`
	Amount      int64      `json:"amount"`
	TotalInput  int64      `json:"totalInput"`
	Change      int64      `json:"change"`
	OutputCount int        `json:"outputCount"`
	Selected    []UtxoJSON `json:"selected"`
	Display     string     `json:"display"`
}

// newQuoteJSON converts a quote for a response.
func newQuoteJSON(quote *wallet.FeeQuote) *QuoteJSON {
	selected := make([]UtxoJSON, 0, len(quote.Selected))
	for i := range quote.Selected {
		selected = append(selected, newUtxoJSON(&quote.Selected[i]))
	}

	return &QuoteJSON{
		Fee:         int64(quote.Fee),
		FeeBTC:      quote.FeeBTC,
		VSize:       quote.VSize.VBytes(),
		FeeRate:     quote.FeeRate.Float64(),
		Amount:      int64(quote.Amount),
		TotalInput:  int64(quote.TotalInput),
		Change:      int64(quote.Change),
		OutputCount: quote.OutputCount,
		Selected:    selected,
		Display:     quote.String(),
	}
}

// FeeQuoteResponse is the body of a successful fee quote.
type FeeQuoteResponse struct {
	OK    bool       `json:"ok"`
	Quote *QuoteJSON `json:"quote"`
}

// SendRequest is the body of POST /api/send. A missing fee rate uses the
// fast tier.
type SendRequest struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Amount  int64    `json:"amount"`
	FeeRate *float64 `json:"feeRate"`
}

// SendResponse is the body of a successful send.
type SendResponse struct {
	OK    bool       `json:"ok"`
	TxID  string     `json:"txid"`
	Hex   string     `json:"hex"`
	Quote *QuoteJSON `json:"quote"`
}

// FeesResponse is the body of GET /api/fees, rates in sat/vb.
type FeesResponse struct {
	OK       bool    `json:"ok"`
	Fast     float64 `json:"fast"`
	Standard float64 `json:"standard"`
	Slow     float64 `json:"slow"`
}

// BalanceResponse is the body of GET /api/balance/:address.
type BalanceResponse struct {
	OK          bool   `json:"ok"`
	Address     string `json:"address"`
	Confirmed   int64  `json:"confirmed"`
	Unconfirmed int64  `json:"unconfirmed"`
	Total       int64  `json:"total"`
}

// AddressResponse is the body of POST /api/addresses.
type AddressResponse struct {
	OK      bool   `json:"ok"`
	Address string `json:"address"`
}

// AddressesResponse is the body of GET /api/addresses.
type AddressesResponse struct {
	OK        bool     `json:"ok"`
	Addresses []string `json:"addresses"`
}

// TxIOJSON is an input or output of a history entry.
type TxIOJSON struct {
	Address string `json:"address,omitempty"`
	Value   int64  `json:"value"`
}

// HistoryTxJSON is a transaction of an address history. The block fields are
// null while the transaction is unconfirmed.
type HistoryTxJSON struct {
	TxID        string     `json:"txid"`
	Confirmed   bool       `json:"confirmed"`
	BlockHeight *uint32    `json:"blockHeight"`
	BlockTime   *int64     `json:"blockTime"`
	Fee         int64      `json:"fee"`
	Net         int64      `json:"net"`
	Inputs      []TxIOJSON `json:"inputs"`
	Outputs     []TxIOJSON `json:"outputs"`
}

// newHistoryTxJSON converts a history record seen from addr.
func newHistoryTxJSON(record *wallet.TxRecord, addr string) HistoryTxJSON {
	convert := func(ios []wallet.TxIO) []TxIOJSON {
		out := make([]TxIOJSON, 0, len(ios))
		for _, io := range ios {
			out = append(out, TxIOJSON{
				Address: io.Address,
				Value:   int64(io.Value),
			})
		}

		return out
	}

	tx := HistoryTxJSON{
		TxID:      record.TxID.String(),
		Confirmed: record.Confirmed,
		Fee:       int64(record.Fee),
		Net:       int64(record.NetValue(addr)),
		Inputs:    convert(record.Inputs),
		Outputs:   convert(record.Outputs),
	}
	if record.Confirmed {
		height := record.BlockHeight
		blockTime := record.BlockTime.Unix()
		tx.BlockHeight = &height
		tx.BlockTime = &blockTime
	}

	return tx
}

// HistoryResponse is the body of GET /api/history/:address.
type HistoryResponse struct {
	OK           bool            `json:"ok"`
	Address      string          `json:"address"`
	Transactions []HistoryTxJSON `json:"transactions"`
}
