// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultDustLimit is the smallest change output, in satoshis, the
	// selector will create. Anything below it is added to the fee.
	DefaultDustLimit btcutil.Amount = 546

	// outputsWithChange is the output count of a payment plus change.
	outputsWithChange = 2

	// outputsWithoutChange is the output count of a payment only.
	outputsWithoutChange = 1
)

var (
	// ErrNoInputsAvailable is returned when coin selection is attempted
	// over an empty set of unspent outputs.
	ErrNoInputsAvailable = errors.New("no utxos available, wallet may be " +
		"empty or all funds already spent")

	// ErrInsufficientFunds is returned when the candidate outputs cannot
	// cover the target amount plus the fee needed to spend them.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// InsufficientFundsError reports how far a selection fell short. It matches
// ErrInsufficientFunds with errors.Is.
type InsufficientFundsError struct {
	// Target is the amount that was to be paid.
	Target btcutil.Amount

	// Fee is the fee for spending every candidate into a single output.
	Fee btcutil.Amount

	// Needed is Target plus Fee.
	Needed btcutil.Amount

	// Available is the total value of every candidate.
	Available btcutil.Amount
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v: need %d sats (%d + %d fee), have %d sats",
		ErrInsufficientFunds, int64(e.Needed), int64(e.Target),
		int64(e.Fee), int64(e.Available))
}

// Is makes the error match ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Shortfall returns the amount missing to fund the payment.
func (e *InsufficientFundsError) Shortfall() btcutil.Amount {
	return e.Needed - e.Available
}

// SelectionResult is the outcome of a successful coin selection.
type SelectionResult struct {
	// Selected holds the chosen outputs in the order they were added.
	Selected []UnspentOutput

	// Target is the amount being paid.
	Target btcutil.Amount

	// TotalInput is the sum of the selected values.
	TotalInput btcutil.Amount

	// Fee is the size derived fee of the committed scenario.
	Fee btcutil.Amount

	// Change is the change output value, zero when OutputCount is 1.
	Change btcutil.Amount

	// OutputCount is 2 with a change output and 1 without.
	OutputCount int
}

// ImpliedFee returns the fee the transaction actually pays: everything the
// inputs provide that is not paid out. Without change this includes the
// leftover that was too small to return.
func (r *SelectionResult) ImpliedFee() btcutil.Amount {
	return r.TotalInput - r.Target - r.Change
}

// sortByAmount is a sortable type for ordering outputs by their value.
type sortByAmount []UnspentOutput

func (s sortByAmount) Len() int { return len(s) }
func (s sortByAmount) Less(i, j int) bool {
	return s[i].Value < s[j].Value
}
func (s sortByAmount) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// arrangeLargestFirst returns a copy of the outputs ordered by value,
// largest first. Outputs with equal values keep their relative order.
func arrangeLargestFirst(utxos []UnspentOutput) []UnspentOutput {
	arranged := make([]UnspentOutput, len(utxos))
	copy(arranged, utxos)

	sort.Stable(sort.Reverse(sortByAmount(arranged)))

	return arranged
}

// CoinSelector chooses which outputs fund a payment. It holds no state beyond
// its policy and is safe for concurrent use.
type CoinSelector struct {
	dustLimit btcutil.Amount
}

// NewCoinSelector creates a selector that never creates change below
// dustLimit.
func NewCoinSelector(dustLimit btcutil.Amount) *CoinSelector {
	return &CoinSelector{dustLimit: dustLimit}
}

// feeForOutputs estimates the size of spending selected into outputCount
// outputs and returns the rounded up fee at feeRate.
func feeForOutputs(selected []UnspentOutput, outputCount int,
	feeRate btcunit.SatPerVByte,
	sender fn.Option[string]) (btcutil.Amount, TxSizeEstimate) {

	estimate := EstimateTxSize(selected, outputCount, sender)

	return feeRate.FeeForVByteRoundUp(estimate.VSize), estimate
}

// Select picks outputs largest first until they cover target plus the fee of
// spending them. After every added output two scenarios are priced: paying
// target plus a change output, and paying target alone. Change is only
// created when it is at least the dust limit; otherwise the leftover is given
// up as fee. Selection stops at the first output that makes the committed
// scenario affordable.
//
// Neither a zero target nor a non-positive fee rate is rejected here.
func (s *CoinSelector) Select(utxos []UnspentOutput, target btcutil.Amount,
	feeRate btcunit.SatPerVByte,
	sender fn.Option[string]) (*SelectionResult, error) {

	if len(utxos) == 0 {
		return nil, ErrNoInputsAvailable
	}

	arranged := arrangeLargestFirst(utxos)

	var totalInput btcutil.Amount
	for i := range arranged {
		selected := arranged[:i+1]
		totalInput += arranged[i].Value

		feeWithChange, withChange := feeForOutputs(
			selected, outputsWithChange, feeRate, sender,
		)
		changeWithChange := totalInput - target - feeWithChange

		feeNoChange, noChange := feeForOutputs(
			selected, outputsWithoutChange, feeRate, sender,
		)

		result := &SelectionResult{
			Target:      target,
			TotalInput:  totalInput,
			Fee:         feeNoChange,
			OutputCount: outputsWithoutChange,
		}
		vsize := noChange.VSize
		if changeWithChange >= s.dustLimit {
			result.Fee = feeWithChange
			result.Change = changeWithChange
			result.OutputCount = outputsWithChange
			vsize = withChange.VSize
		}

		log.Debugf("Coin selection step %d: total_input=%d target=%d "+
			"fee=%d change=%d outputs=%d vsize=%v rate=%v", i+1,
			int64(totalInput), int64(target), int64(result.Fee),
			int64(result.Change), result.OutputCount, vsize,
			feeRate)

		if totalInput < target+result.Fee {
			continue
		}

		result.Selected = make([]UnspentOutput, len(selected))
		copy(result.Selected, selected)

		log.Tracef("Selected coins: %v", newLogClosure(func() string {
			return spew.Sdump(result)
		}))

		return result, nil
	}

	// Report the shortfall against the cheapest way of spending every
	// candidate.
	minFee, _ := feeForOutputs(
		arranged, outputsWithoutChange, feeRate, sender,
	)

	return nil, &InsufficientFundsError{
		Target:    target,
		Fee:       minFee,
		Needed:    target + minFee,
		Available: totalInput,
	}
}
