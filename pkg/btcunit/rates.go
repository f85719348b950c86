// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides a set of types for dealing with bitcoin units.
package btcunit

import (
	"errors"
	"log/slog"
	"math"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places to use when
	// converting a fee rate to a string. We use 3 decimal places to ensure
	// that low fee rates (e.g., 1 sat/kvb = 0.001 sat/vbyte) are displayed
	// with sufficient precision and not rounded to zero.
	floatStringPrecision = 3
)

var (
	// ErrInvalidFeeRate is returned when a fee rate cannot be represented
	// as a rational number, e.g. NaN or an infinity.
	ErrInvalidFeeRate = errors.New("invalid fee rate")

	// ZeroSatPerVByte is a fee rate of 0 sat/vb.
	ZeroSatPerVByte = NewSatPerVByte(0)
)

// baseFeeRate stores the canonical representation of a fee rate, which is
// satoshis per kilo-weight-unit (sat/kwu). All other fee rate units are
// derived from this.
type baseFeeRate struct {
	// satsPerKWU is the fee rate in satoshis per kilo-weight-unit. A nil
	// value is treated as zero so the zero value of the struct is usable.
	satsPerKWU *big.Rat
}

// newBaseFeeRate creates a new baseFeeRate with the given numerator and
// denominator. It handles the zero denominator case by returning a zero fee
// rate.
func newBaseFeeRate(numerator btcutil.Amount, denominator uint64) baseFeeRate {
	if denominator == 0 {
		return baseFeeRate{satsPerKWU: big.NewRat(0, 1)}
	}

	return baseFeeRate{satsPerKWU: big.NewRat(
		int64(numerator),
		safeUint64ToInt64(denominator),
	)}
}

// rat returns the canonical rate, substituting zero for an unset rate.
func (f baseFeeRate) rat() *big.Rat {
	if f.satsPerKWU == nil {
		return big.NewRat(0, 1)
	}

	return f.satsPerKWU
}

// FeeForWeight calculates the fee resulting from this fee rate and the given
// weight in weight units (wu). The result is rounded down.
func (f baseFeeRate) FeeForWeight(weightUnit WeightUnit) btcutil.Amount {
	fee := big.NewRat(0, 1)
	fee.Mul(f.rat(), big.NewRat(safeUint64ToInt64(weightUnit.wu), kilo))

	quotient := big.NewInt(0)
	quotient.Div(fee.Num(), fee.Denom())

	return btcutil.Amount(quotient.Int64())
}

// FeeForWeightRoundUp calculates the fee resulting from this fee rate and the
// given weight in weight units (wu), rounding up to the nearest satoshi.
func (f baseFeeRate) FeeForWeightRoundUp(weightUnit WeightUnit) btcutil.Amount {
	fee := big.NewRat(0, 1)
	fee.Mul(f.rat(), big.NewRat(safeUint64ToInt64(weightUnit.wu), kilo))

	return ceilRat(fee)
}

// FeeForVByteRoundUp calculates the fee for the given size after rounding the
// size up to whole virtual bytes, i.e. ceil(ceil(wu/4) * rate). This is the
// fee a wallet must attach so the transaction never underpays the rate.
func (f baseFeeRate) FeeForVByteRoundUp(vb VByte) btcutil.Amount {
	return f.FeeForWeightRoundUp(vb.RoundUp().ToWU())
}

// IsPositive reports whether the fee rate is strictly greater than zero.
func (f baseFeeRate) IsPositive() bool {
	return f.rat().Sign() > 0
}

// ceilRat rounds a rational number towards positive infinity. big.Int.Div
// performs Euclidean division and the denominator of a big.Rat is always
// positive, so (num + den - 1) / den is the ceiling for either sign.
func ceilRat(r *big.Rat) btcutil.Amount {
	numerator := r.Num()
	denominator := r.Denom()

	result := big.NewInt(0)
	result.Add(numerator, denominator)
	result.Sub(result, big.NewInt(1))
	result.Div(result, denominator)

	return btcutil.Amount(result.Int64())
}

// SatPerVByte represents a fee rate in sat/vbyte. Internally, all fee rates
// are stored and operated on as satoshis per kilo-weight-unit (sat/kw).
// Conversions to other units and fee calculations are performed using this
// canonical internal representation. The `String()` method is the only one
// that presents the fee rate in its specific sat/vbyte unit.
type SatPerVByte struct {
	baseFeeRate
}

// NewSatPerVByte creates a new fee rate in sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	return CalcSatPerVByte(rate, NewVByte(1))
}

// CalcSatPerVByte calculates the fee rate in sat/vb for a given fee and size.
func CalcSatPerVByte(fee btcutil.Amount, vb VByte) SatPerVByte {
	// To convert the rate to the canonical sat/kwu unit, we use the
	// formula: (fee * 1000) / size_in_wu.
	numerator := fee * kilo
	denominator := vb.wu

	return SatPerVByte{newBaseFeeRate(numerator, denominator)}
}

// ParseSatPerVByte converts a fractional sat/vb rate, as reported by fee
// estimators and entered by users, to a SatPerVByte. The float is converted
// exactly, so 2.5 sat/vb yields exactly 625 sat/kwu.
func ParseSatPerVByte(rate float64) (SatPerVByte, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return SatPerVByte{}, ErrInvalidFeeRate
	}

	perVByte := new(big.Rat).SetFloat64(rate)

	// sat/kwu = sat/vb * 1000 / WitnessScaleFactor.
	perKWU := new(big.Rat).Mul(
		perVByte, big.NewRat(kilo, blockchain.WitnessScaleFactor),
	)

	return SatPerVByte{baseFeeRate{satsPerKWU: perKWU}}, nil
}

// Float64 returns the rate in sat/vb as a float, for display and JSON.
func (s SatPerVByte) Float64() float64 {
	perVByte := new(big.Rat).Mul(
		s.rat(), big.NewRat(blockchain.WitnessScaleFactor, kilo),
	)
	f, _ := perVByte.Float64()

	return f
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	kwToVbRate := big.NewRat(0, 1)
	kwToVbRate.Mul(s.rat(),
		big.NewRat(blockchain.WitnessScaleFactor, kilo),
	)

	return kwToVbRate.FloatString(floatStringPrecision) + " sat/vb"
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerVByte) Equal(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) == 0
}

// GreaterThan returns true if the fee rate is greater than the other fee rate.
func (s SatPerVByte) GreaterThan(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) > 0
}

// LessThanOrEqual returns true if the fee rate is less than or equal to the
// other fee rate.
func (s SatPerVByte) LessThanOrEqual(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) <= 0
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at math.MaxInt64.
// This is used to silence gosec warnings about integer overflows. In practice,
// the values being converted are transaction weights or sizes, which are
// limited by consensus rules and are not expected to overflow an int64.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		slog.Warn("Capping uint64 value to math.MaxInt64",
			slog.Uint64("old", u), slog.Int64("new", math.MaxInt64))

		return math.MaxInt64
	}

	return int64(u)
}
