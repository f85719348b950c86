// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// FastConfTarget is the confirmation target, in blocks, of the fast
	// fee tier.
	FastConfTarget = 1

	// StandardConfTarget is the confirmation target of the standard tier.
	StandardConfTarget = 3

	// SlowConfTarget is the confirmation target of the slow tier.
	SlowConfTarget = 6
)

var (
	// DefaultMaxFeeRate is the highest fee rate a send may use.
	DefaultMaxFeeRate = btcunit.NewSatPerVByte(1000)

	// defaultTierRates are used for tiers the estimator has no data for.
	defaultTierRates = map[uint32]btcutil.Amount{
		FastConfTarget:     5,
		StandardConfTarget: 2,
		SlowConfTarget:     1,
	}

	// ErrMissingChainBackend is returned when a wallet is created without
	// a chain backend.
	ErrMissingChainBackend = errors.New("chain backend is required")

	// ErrMissingKeyring is returned when a wallet is created without a
	// keyring.
	ErrMissingKeyring = errors.New("keyring is required")

	// ErrFeeRateTooHigh is returned when a send uses a fee rate above the
	// configured maximum.
	ErrFeeRateTooHigh = errors.New("fee rate exceeds maximum")

	// ErrInvalidFeeRateValue is returned when a send uses a fee rate that
	// is not positive.
	ErrInvalidFeeRateValue = errors.New("fee rate must be positive")
)

// AddressBalance is the balance of an address as seen by the chain backend.
type AddressBalance struct {
	// Confirmed is the value of confirmed unspent outputs.
	Confirmed btcutil.Amount

	// Unconfirmed is the net value of mempool transactions, which may be
	// negative.
	Unconfirmed btcutil.Amount
}

// Total returns the confirmed and unconfirmed balance combined.
func (b *AddressBalance) Total() btcutil.Amount {
	return b.Confirmed + b.Unconfirmed
}

// FeeTiers are the fee rates suggested for three confirmation targets.
type FeeTiers struct {
	// Fast targets confirmation in the next block.
	Fast btcunit.SatPerVByte

	// Standard targets confirmation within three blocks.
	Standard btcunit.SatPerVByte

	// Slow targets confirmation within six blocks.
	Slow btcunit.SatPerVByte
}

// ChainBackend is the source of chain data the wallet needs.
type ChainBackend interface {
	// ListUnspent returns the unspent outputs paying to addr, with their
	// output scripts and confirmation counts filled in.
	ListUnspent(ctx context.Context, addr string) ([]UnspentOutput, error)

	// FeeEstimates returns fee rates in sat/vb keyed by confirmation
	// target in blocks.
	FeeEstimates(ctx context.Context) (map[uint32]float64, error)

	// Balance returns the balance of addr.
	Balance(ctx context.Context, addr string) (*AddressBalance, error)

	// History returns the transactions touching addr.
	History(ctx context.Context, addr string) ([]TxRecord, error)

	// Broadcast publishes a signed transaction and returns its txid.
	Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error)
}

// QuoteFeeRequest asks for the fee of paying Amount from From.
type QuoteFeeRequest struct {
	// From is the paying address.
	From string

	// Amount is the value to pay.
	Amount btcutil.Amount

	// FeeRate is the rate to quote at.
	FeeRate btcunit.SatPerVByte
}

// SendRequest describes a payment to build, sign and broadcast.
type SendRequest struct {
	// From is the paying address. It must have been derived by the
	// wallet's keyring.
	From string

	// To is the recipient.
	To string

	// Amount is the value to pay.
	Amount btcutil.Amount

	// FeeRate is the rate to pay. When None the fast tier is used.
	FeeRate fn.Option[btcunit.SatPerVByte]
}

// SendResult is the outcome of a broadcast payment.
type SendResult struct {
	// TxID is the hash of the broadcast transaction.
	TxID chainhash.Hash

	// RawTx is the hex serialized signed transaction.
	RawTx string

	// Quote is the quote the transaction was built from.
	Quote *FeeQuote
}

// Controller is the wallet's public API: quoting, sending and address
// management.
type Controller interface {
	// QuoteFee fetches the sender's spendable outputs and quotes a
	// payment.
	QuoteFee(ctx context.Context, req QuoteFeeRequest) (*FeeQuote, error)

	// Send quotes, builds, signs and broadcasts a payment.
	Send(ctx context.Context, req SendRequest) (*SendResult, error)

	// FeeTiers returns the current suggested fee rates.
	FeeTiers(ctx context.Context) (*FeeTiers, error)

	// Balance returns the balance of an address.
	Balance(ctx context.Context, addr string) (*AddressBalance, error)

	// History returns the transactions touching an address.
	History(ctx context.Context, addr string) ([]TxRecord, error)

	// NewAddress derives a new receiving address.
	NewAddress(ctx context.Context) (string, error)

	// Addresses lists the receiving addresses derived so far.
	Addresses(ctx context.Context) ([]string, error)
}

// Config holds the dependencies and policy of a Wallet.
type Config struct {
	// Chain is the chain data backend.
	Chain ChainBackend

	// Keyring derives the wallet's addresses and keys.
	Keyring *Keyring

	// Policy is the coin selection and fee policy.
	Policy FeePolicy

	// MinConfs is the minimum number of confirmations an output needs to
	// be spent. Zero allows unconfirmed outputs.
	MinConfs uint32

	// MaxFeeRate is the highest fee rate a send may use. A zero value
	// uses DefaultMaxFeeRate.
	MaxFeeRate btcunit.SatPerVByte
}

// Wallet implements Controller on top of a chain backend and a keyring.
type Wallet struct {
	cfg Config

	quoter *FeeQuoter
	author *TxAuthor
	signer *Signer
}

// A compile-time assertion to ensure Wallet implements Controller.
var _ Controller = (*Wallet)(nil)

// New creates a wallet from the given config.
func New(cfg Config) (*Wallet, error) {
	if cfg.Chain == nil {
		return nil, ErrMissingChainBackend
	}

	if cfg.Keyring == nil {
		return nil, ErrMissingKeyring
	}

	if !cfg.MaxFeeRate.IsPositive() {
		cfg.MaxFeeRate = DefaultMaxFeeRate
	}

	return &Wallet{
		cfg:    cfg,
		quoter: NewFeeQuoter(cfg.Policy),
		author: NewTxAuthor(cfg.Keyring.Params()),
		signer: NewSigner(),
	}, nil
}

// QuoteFee implements Controller.
func (w *Wallet) QuoteFee(ctx context.Context,
	req QuoteFeeRequest) (*FeeQuote, error) {

	utxos, err := w.spendable(ctx, req.From)
	if err != nil {
		return nil, err
	}

	return w.quoter.Quote(&QuoteRequest{
		Sender:  req.From,
		Amount:  req.Amount,
		FeeRate: req.FeeRate,
		UTXOs:   fn.Some(utxos),
	})
}

// Send implements Controller. The sender's outputs are fetched right before
// quoting so the quote reflects the current chain state.
func (w *Wallet) Send(ctx context.Context,
	req SendRequest) (*SendResult, error) {

	key, err := w.cfg.Keyring.PrivKeyFor(req.From)
	if err != nil {
		return nil, err
	}

	feeRate, err := w.resolveFeeRate(ctx, req.FeeRate)
	if err != nil {
		return nil, err
	}

	utxos, err := w.spendable(ctx, req.From)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputsAvailable,
			req.From)
	}

	quote, err := w.quoter.Quote(&QuoteRequest{
		Sender:  req.From,
		Amount:  req.Amount,
		FeeRate: feeRate,
		UTXOs:   fn.Some(utxos),
	})
	if err != nil {
		return nil, err
	}

	packet, err := w.author.Author(&AuthorRequest{
		From:  req.From,
		To:    req.To,
		Quote: quote,
	})
	if err != nil {
		return nil, err
	}

	tx, err := w.signer.Sign(packet, key)
	if err != nil {
		return nil, err
	}

	rawTx, err := SerializeTx(tx)
	if err != nil {
		return nil, err
	}

	txid, err := w.Broadcast(ctx, tx)
	if err != nil {
		return nil, err
	}

	log.Infof("Broadcast tx %v paying %v to %s, fee %v", txid,
		req.Amount, req.To, quote.Fee)

	return &SendResult{
		TxID:  *txid,
		RawTx: rawTx,
		Quote: quote,
	}, nil
}

// FeeTiers implements Controller. Targets the estimator has no data for get
// a fixed default rate. Estimates are rounded up to whole sat/vb.
func (w *Wallet) FeeTiers(ctx context.Context) (*FeeTiers, error) {
	estimates, err := w.cfg.Chain.FeeEstimates(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch fee estimates: %w", err)
	}

	tierRate := func(target uint32) btcunit.SatPerVByte {
		rate, ok := estimates[target]
		if !ok || rate <= 0 || math.IsNaN(rate) ||
			math.IsInf(rate, 0) {

			return btcunit.NewSatPerVByte(defaultTierRates[target])
		}

		return btcunit.NewSatPerVByte(btcutil.Amount(math.Ceil(rate)))
	}

	return &FeeTiers{
		Fast:     tierRate(FastConfTarget),
		Standard: tierRate(StandardConfTarget),
		Slow:     tierRate(SlowConfTarget),
	}, nil
}

// Balance implements Controller.
func (w *Wallet) Balance(ctx context.Context,
	addr string) (*AddressBalance, error) {

	return w.cfg.Chain.Balance(ctx, addr)
}

// NewAddress implements Controller.
func (w *Wallet) NewAddress(_ context.Context) (string, error) {
	return w.cfg.Keyring.NewAddress()
}

// Addresses implements Controller.
func (w *Wallet) Addresses(_ context.Context) ([]string, error) {
	return w.cfg.Keyring.Addresses(), nil
}

// spendable returns the outputs of addr with at least MinConfs
// confirmations.
func (w *Wallet) spendable(ctx context.Context,
	addr string) ([]UnspentOutput, error) {

	utxos, err := w.cfg.Chain.ListUnspent(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("unable to list unspent outputs of %s: "+
			"%w", addr, err)
	}

	eligible := make([]UnspentOutput, 0, len(utxos))
	for _, utxo := range utxos {
		if utxo.Confirmations < w.cfg.MinConfs {
			continue
		}

		eligible = append(eligible, utxo)
	}

	log.Debugf("Address %s has %d of %d outputs with at least %d "+
		"confirmations", addr, len(eligible), len(utxos),
		w.cfg.MinConfs)

	return eligible, nil
}

// resolveFeeRate returns the requested rate, or the fast tier when none was
// given, and checks it against the configured bounds.
func (w *Wallet) resolveFeeRate(ctx context.Context,
	rate fn.Option[btcunit.SatPerVByte]) (btcunit.SatPerVByte, error) {

	feeRate := rate.UnwrapOr(btcunit.ZeroSatPerVByte)
	if rate.IsNone() {
		tiers, err := w.FeeTiers(ctx)
		if err != nil {
			return btcunit.SatPerVByte{}, err
		}

		feeRate = tiers.Fast
	}

	if !feeRate.IsPositive() {
		return btcunit.SatPerVByte{}, fmt.Errorf("%w: %v",
			ErrInvalidFeeRateValue, feeRate)
	}

	if feeRate.GreaterThan(w.cfg.MaxFeeRate) {
		return btcunit.SatPerVByte{}, fmt.Errorf("%w: %v > %v",
			ErrFeeRateTooHigh, feeRate, w.cfg.MaxFeeRate)
	}

	return feeRate, nil
}
