// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultFeeBuffer is the flat amount added to every quoted fee that
	// spends real inputs. It is a heuristic margin for rounding at the
	// size boundaries, not a derived bound.
	DefaultFeeBuffer btcutil.Amount = 1
)

var (
	// ErrMissingUtxoSet is returned when a quote is requested without a
	// UTXO set. This is distinct from an empty set, which yields a preview
	// quote.
	ErrMissingUtxoSet = errors.New("utxo set not provided, fetch the " +
		"sender's unspent outputs first")

	// ErrNegativeAmount is returned when the amount to pay is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// FeePolicy holds the tunables of coin selection and fee quoting.
type FeePolicy struct {
	// DustLimit is the smallest change output that will be created.
	DustLimit btcutil.Amount

	// FeeBuffer is added to the final fee of a quote with inputs.
	FeeBuffer btcutil.Amount
}

// DefaultFeePolicy returns the policy used when none is configured.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		DustLimit: DefaultDustLimit,
		FeeBuffer: DefaultFeeBuffer,
	}
}

// QuoteRequest describes a payment to quote.
type QuoteRequest struct {
	// Sender is the paying address. It decides the size of the change
	// output and of inputs without a hint. It may be empty.
	Sender string

	// Amount is the value of the payment output.
	Amount btcutil.Amount

	// FeeRate is the rate the transaction should pay.
	FeeRate btcunit.SatPerVByte

	// UTXOs are the candidate inputs. None means the caller never fetched
	// them, Some of an empty slice means the sender has nothing to spend.
	UTXOs fn.Option[[]UnspentOutput]
}

// sender returns the sender address as an option, None when unset.
func (r *QuoteRequest) sender() fn.Option[string] {
	if r.Sender == "" {
		return fn.None[string]()
	}

	return fn.Some(r.Sender)
}

// FeeQuote is the fee and input plan for a payment. It is built fresh for
// every request and must be re-requested when the inputs or amount change.
type FeeQuote struct {
	// Fee is the fee in satoshis. It is the authoritative value.
	Fee btcutil.Amount

	// FeeBTC is Fee expressed in whole coins, for display.
	FeeBTC float64

	// VSize is the estimated virtual size of the transaction.
	VSize btcunit.VByte

	// Selected are the inputs to spend, empty for a preview.
	Selected []UnspentOutput

	// TotalInput is the value of Selected.
	TotalInput btcutil.Amount

	// Amount is the value of the payment output.
	Amount btcutil.Amount

	// Change is the value returned to the sender, zero without change.
	Change btcutil.Amount

	// OutputCount is the number of outputs the fee was computed for.
	OutputCount int

	// FeeRate is the rate the fee was computed at.
	FeeRate btcunit.SatPerVByte
}

// IsPreview reports whether the quote was made without any inputs.
func (q *FeeQuote) IsPreview() bool {
	return len(q.Selected) == 0
}

// HasChange reports whether the transaction carries a change output.
func (q *FeeQuote) HasChange() bool {
	return q.OutputCount == outputsWithChange && q.Change > 0
}

// String returns a display form of the fee, e.g.
// "141 sats (0.00000141 BTC) • 1.000 sat/vb • 140 vBytes".
func (q *FeeQuote) String() string {
	return fmt.Sprintf("%d sats (%.8f BTC) • %v • %d vBytes",
		int64(q.Fee), q.FeeBTC, q.FeeRate, q.VSize.VBytes())
}

// FeeQuoter turns a payment request into a FeeQuote. It is stateless and safe
// for concurrent use.
type FeeQuoter struct {
	policy   FeePolicy
	selector *CoinSelector
}

// NewFeeQuoter creates a quoter using the given policy.
func NewFeeQuoter(policy FeePolicy) *FeeQuoter {
	return &FeeQuoter{
		policy:   policy,
		selector: NewCoinSelector(policy.DustLimit),
	}
}

// Policy returns the policy the quoter was created with.
func (f *FeeQuoter) Policy() FeePolicy {
	return f.policy
}

// Quote selects inputs for the request and returns the fee to attach.
//
// An empty UTXO set yields a preview priced from a one input, two output
// estimate. Otherwise the fee is recomputed for exactly the selected inputs
// and committed output count, and the fee buffer is added. A buffer that
// pushes change below the dust limit drops the change output.
func (f *FeeQuoter) Quote(req *QuoteRequest) (*FeeQuote, error) {
	utxos, err := req.UTXOs.UnwrapOrErr(ErrMissingUtxoSet)
	if err != nil {
		return nil, err
	}

	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeAmount, req.Amount)
	}

	if err := validateUtxos(utxos); err != nil {
		return nil, err
	}

	sender := req.sender()

	if len(utxos) == 0 {
		return f.previewQuote(req, sender), nil
	}

	selection, err := f.selector.Select(
		utxos, req.Amount, req.FeeRate, sender,
	)
	if err != nil {
		return nil, err
	}

	quote := f.finalQuote(req, selection, selection.OutputCount, sender)
	if quote.OutputCount == outputsWithChange &&
		quote.Change < f.policy.DustLimit {

		log.Debugf("Change %v below dust limit %v after fee buffer, "+
			"dropping change output", quote.Change,
			f.policy.DustLimit)

		quote = f.finalQuote(
			req, selection, outputsWithoutChange, sender,
		)
	}

	log.Debugf("Quoted %v for %v to pay %v from %d inputs",
		quote, req.Amount, req.Sender, len(quote.Selected))

	return quote, nil
}

// previewQuote prices a payment before any inputs are known.
func (f *FeeQuoter) previewQuote(req *QuoteRequest,
	sender fn.Option[string]) *FeeQuote {

	estimate := EstimateTxSize(nil, outputsWithChange, sender)
	fee := req.FeeRate.FeeForVByteRoundUp(estimate.VSize)

	return &FeeQuote{
		Fee:         fee,
		FeeBTC:      fee.ToBTC(),
		VSize:       estimate.VSize,
		Selected:    []UnspentOutput{},
		Amount:      req.Amount,
		OutputCount: estimate.OutputCount,
		FeeRate:     req.FeeRate,
	}
}

// finalQuote re-estimates the size of spending the selected inputs into
// outputCount outputs and derives the buffered fee and change from it.
func (f *FeeQuoter) finalQuote(req *QuoteRequest, selection *SelectionResult,
	outputCount int, sender fn.Option[string]) *FeeQuote {

	estimate := EstimateTxSize(selection.Selected, outputCount, sender)
	fee := req.FeeRate.FeeForVByteRoundUp(estimate.VSize) +
		f.policy.FeeBuffer

	spendable := selection.TotalInput - req.Amount

	var change btcutil.Amount
	if outputCount == outputsWithChange {
		change = spendable - fee
	} else if fee > spendable {
		// Without change the whole remainder is fee. The selector
		// guarantees it covers the unbuffered fee, so only the buffer
		// is trimmed here.
		fee = spendable
	}

	selected := make([]UnspentOutput, len(selection.Selected))
	copy(selected, selection.Selected)

	return &FeeQuote{
		Fee:         fee,
		FeeBTC:      fee.ToBTC(),
		VSize:       estimate.VSize,
		Selected:    selected,
		TotalInput:  selection.TotalInput,
		Amount:      req.Amount,
		Change:      change,
		OutputCount: outputCount,
		FeeRate:     req.FeeRate,
	}
}
