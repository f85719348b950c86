// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Swapso-App/BTC-module/wallet"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRequestTimeout bounds every request to the Esplora server.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxConcurrency is the number of transaction lookups run in
	// parallel while resolving output scripts.
	DefaultMaxConcurrency = 8
)

var (
	// ErrUnexpectedStatus is returned when the Esplora server answers with
	// a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected esplora response")

	// ErrNoDefaultURL is returned when no Esplora URL is configured for a
	// network without a public default, such as regtest.
	ErrNoDefaultURL = errors.New("no default esplora url for network")

	// ErrOutputNotFound is returned when a transaction does not have the
	// output an unspent entry refers to.
	ErrOutputNotFound = errors.New("output not found in transaction")

	// defaultURLs are the public Esplora instances per network.
	defaultURLs = map[string]string{
		chaincfg.MainNetParams.Name:  "https://blockstream.info/api",
		chaincfg.TestNet3Params.Name: "https://blockstream.info/testnet/api",
		chaincfg.SigNetParams.Name:   "https://mempool.space/signet/api",
	}
)

// DefaultURL returns the public Esplora URL for a network.
func DefaultURL(params *chaincfg.Params) (string, error) {
	url, ok := defaultURLs[params.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoDefaultURL, params.Name)
	}

	return url, nil
}

// EsploraConfig holds the options of an EsploraClient.
type EsploraConfig struct {
	// URL is the base URL of the Esplora REST API. When empty the
	// network's public default is used.
	URL string

	// Params is the network the server serves.
	Params *chaincfg.Params

	// Timeout bounds each request. Zero uses DefaultRequestTimeout.
	Timeout time.Duration

	// MaxConcurrency bounds parallel transaction lookups. Zero uses
	// DefaultMaxConcurrency.
	MaxConcurrency int
}

// txStatus is the confirmation status of a transaction or output.
type txStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

// esploraUtxo is an entry of /address/:address/utxo.
type esploraUtxo struct {
	TxID   string   `json:"txid"`
	Vout   uint32   `json:"vout"`
	Value  int64    `json:"value"`
	Status txStatus `json:"status"`
}

// esploraTxOut is an output of /tx/:txid.
type esploraTxOut struct {
	ScriptPubKey string `json:"scriptpubkey"`
	Address      string `json:"scriptpubkey_address"`
	Value        int64  `json:"value"`
}

// esploraTxIn is an input of /tx/:txid. Prevout is absent for coinbase
// inputs.
type esploraTxIn struct {
	Prevout *esploraTxOut `json:"prevout"`
}

// esploraTx is the subset of /tx/:txid the client reads.
type esploraTx struct {
	TxID   string         `json:"txid"`
	Vin    []esploraTxIn  `json:"vin"`
	Vout   []esploraTxOut `json:"vout"`
	Fee    int64          `json:"fee"`
	Status txStatus       `json:"status"`
}

// addrStats are the funded and spent totals of an address.
type addrStats struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
}

// esploraAddress is the subset of /address/:address the client reads.
type esploraAddress struct {
	ChainStats   addrStats `json:"chain_stats"`
	MempoolStats addrStats `json:"mempool_stats"`
}

// EsploraClient is a ChainBackend backed by an Esplora REST server.
type EsploraClient struct {
	client         *resty.Client
	params         *chaincfg.Params
	maxConcurrency int
}

// A compile-time check to ensure that EsploraClient satisfies the
// wallet.ChainBackend interface.
var _ wallet.ChainBackend = (*EsploraClient)(nil)

// NewEsploraClient creates a client for the configured server.
func NewEsploraClient(cfg EsploraConfig) (*EsploraClient, error) {
	if cfg.Params == nil {
		cfg.Params = &chaincfg.MainNetParams
	}

	if cfg.URL == "" {
		url, err := DefaultURL(cfg.Params)
		if err != nil {
			return nil, err
		}
		cfg.URL = url
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	log.Infof("Using esplora server %s for %s", cfg.URL, cfg.Params.Name)

	return &EsploraClient{
		client:         client,
		params:         cfg.Params,
		maxConcurrency: cfg.MaxConcurrency,
	}, nil
}

// Params returns the network the client was created for.
func (c *EsploraClient) Params() *chaincfg.Params {
	return c.params
}

// StatusError is a non-2xx answer from the Esplora server. It matches
// ErrUnexpectedStatus with errors.Is.
type StatusError struct {
	// Method and URL identify the failed request.
	Method string
	URL    string

	// Code is the HTTP status code.
	Code int

	// Body is the trimmed response body, usually a plain text reason.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s %s: %d %s", ErrUnexpectedStatus, e.Method,
		e.URL, e.Code, e.Body)
}

// Is makes the error match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// checkResponse turns a failed request or a non-2xx answer into an error.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}

	if resp.IsError() {
		return &StatusError{
			Method: resp.Request.Method,
			URL:    resp.Request.URL,
			Code:   resp.StatusCode(),
			Body:   strings.TrimSpace(resp.String()),
		}
	}

	return nil
}

// TipHeight returns the height of the best block.
func (c *EsploraClient) TipHeight(ctx context.Context) (uint32, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get("/blocks/tip/height")
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}

	height, err := strconv.ParseUint(strings.TrimSpace(resp.String()), 10,
		32)
	if err != nil {
		return 0, fmt.Errorf("invalid tip height: %w", err)
	}

	return uint32(height), nil
}

// fetchTx returns a transaction by id.
func (c *EsploraClient) fetchTx(ctx context.Context,
	txid string) (*esploraTx, error) {

	var tx esploraTx
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("txid", txid).
		SetResult(&tx).
		Get("/tx/{txid}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &tx, nil
}

// ListUnspent returns the unspent outputs of addr. The output script of each
// entry is resolved from its transaction, fetching each transaction once.
func (c *EsploraClient) ListUnspent(ctx context.Context,
	addr string) ([]wallet.UnspentOutput, error) {

	var entries []esploraUtxo
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("address", addr).
		SetResult(&entries).
		Get("/address/{address}/utxo")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return []wallet.UnspentOutput{}, nil
	}

	tip, err := c.TipHeight(ctx)
	if err != nil {
		return nil, err
	}

	txids := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		txids[entry.TxID] = struct{}{}
	}

	var (
		mu  sync.Mutex
		txs = make(map[string]*esploraTx, len(txids))
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.maxConcurrency)
	for txid := range txids {
		eg.Go(func() error {
			tx, err := c.fetchTx(egCtx, txid)
			if err != nil {
				return fmt.Errorf("tx %s: %w", txid, err)
			}

			mu.Lock()
			txs[txid] = tx
			mu.Unlock()

			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	utxos := make([]wallet.UnspentOutput, 0, len(entries))
	for _, entry := range entries {
		utxo, err := c.toUnspentOutput(entry, txs[entry.TxID], tip)
		if err != nil {
			return nil, err
		}

		utxos = append(utxos, utxo)
	}

	log.Debugf("Fetched %d unspent outputs of %s from %d txns at tip %d",
		len(utxos), addr, len(txs), tip)

	return utxos, nil
}

// toUnspentOutput combines an unspent entry with its transaction.
func (c *EsploraClient) toUnspentOutput(entry esploraUtxo, tx *esploraTx,
	tip uint32) (wallet.UnspentOutput, error) {

	utxo, err := wallet.NewUnspentOutput(
		entry.TxID, entry.Vout, btcutil.Amount(entry.Value),
	)
	if err != nil {
		return wallet.UnspentOutput{}, err
	}

	if int(entry.Vout) >= len(tx.Vout) {
		return wallet.UnspentOutput{}, fmt.Errorf("%w: %s:%d",
			ErrOutputNotFound, entry.TxID, entry.Vout)
	}

	out := tx.Vout[entry.Vout]
	utxo.PkScript, err = hex.DecodeString(out.ScriptPubKey)
	if err != nil {
		return wallet.UnspentOutput{}, fmt.Errorf("invalid script of "+
			"%s:%d: %w", entry.TxID, entry.Vout, err)
	}
	utxo.Address = out.Address

	if entry.Status.Confirmed && tip >= entry.Status.BlockHeight {
		utxo.Confirmations = tip - entry.Status.BlockHeight + 1
	}

	return utxo, nil
}

// FeeEstimates returns the server's fee estimates in sat/vb keyed by
// confirmation target.
func (c *EsploraClient) FeeEstimates(
	ctx context.Context) (map[uint32]float64, error) {

	var raw map[string]float64
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&raw).
		Get("/fee-estimates")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	estimates := make(map[uint32]float64, len(raw))
	for target, rate := range raw {
		blocks, err := strconv.ParseUint(target, 10, 32)
		if err != nil {
			log.Warnf("Skipping fee estimate with invalid target "+
				"%q", target)
			continue
		}

		estimates[uint32(blocks)] = rate
	}

	return estimates, nil
}

// Balance returns the confirmed and mempool balance of addr.
func (c *EsploraClient) Balance(ctx context.Context,
	addr string) (*wallet.AddressBalance, error) {

	var info esploraAddress
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("address", addr).
		SetResult(&info).
		Get("/address/{address}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	chainStats, mempoolStats := info.ChainStats, info.MempoolStats

	return &wallet.AddressBalance{
		Confirmed: btcutil.Amount(
			chainStats.FundedTxoSum - chainStats.SpentTxoSum,
		),
		Unconfirmed: btcutil.Amount(
			mempoolStats.FundedTxoSum - mempoolStats.SpentTxoSum,
		),
	}, nil
}

// Broadcast posts a signed transaction and returns the txid reported by the
// server.
func (c *EsploraClient) Broadcast(ctx context.Context,
	tx *wire.MsgTx) (*chainhash.Hash, error) {

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(hex.EncodeToString(buf.Bytes())).
		Post("/tx")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	txid, err := chainhash.NewHashFromStr(strings.TrimSpace(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid txid in broadcast response: %w",
			err)
	}

	return txid, nil
}

// History returns the transactions touching addr, newest first. Esplora
// serves the mempool transactions and the most recent confirmed ones in a
// single page, older history is not fetched.
func (c *EsploraClient) History(ctx context.Context,
	addr string) ([]wallet.TxRecord, error) {

	var txns []esploraTx
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("address", addr).
		SetResult(&txns).
		Get("/address/{address}/txs")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	records := make([]wallet.TxRecord, 0, len(txns))
	for i := range txns {
		record, err := toTxRecord(&txns[i])
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

// toTxRecord converts a transaction of an address history.
func toTxRecord(tx *esploraTx) (wallet.TxRecord, error) {
	txid, err := chainhash.NewHashFromStr(tx.TxID)
	if err != nil {
		return wallet.TxRecord{}, fmt.Errorf("invalid txid %q: %w",
			tx.TxID, err)
	}

	record := wallet.TxRecord{
		TxID:      *txid,
		Confirmed: tx.Status.Confirmed,
		Fee:       btcutil.Amount(tx.Fee),
		Inputs:    make([]wallet.TxIO, 0, len(tx.Vin)),
		Outputs:   make([]wallet.TxIO, 0, len(tx.Vout)),
	}
	if tx.Status.Confirmed {
		record.BlockHeight = tx.Status.BlockHeight
		record.BlockTime = time.Unix(tx.Status.BlockTime, 0)
	}

	for _, in := range tx.Vin {
		var io wallet.TxIO
		if in.Prevout != nil {
			io = wallet.TxIO{
				Address: in.Prevout.Address,
				Value:   btcutil.Amount(in.Prevout.Value),
			}
		}
		record.Inputs = append(record.Inputs, io)
	}

	for _, out := range tx.Vout {
		record.Outputs = append(record.Outputs, wallet.TxIO{
			Address: out.Address,
			Value:   btcutil.Amount(out.Value),
		})
	}

	return record, nil
}

// IsNotFound reports whether err is a 404 answer from the server.
func IsNotFound(err error) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr) &&
		statusErr.Code == http.StatusNotFound
}

// IsRejected reports whether err is the server refusing a request as
// invalid, e.g. a broadcast failing mempool policy.
func IsRejected(err error) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr) &&
		statusErr.Code == http.StatusBadRequest
}
