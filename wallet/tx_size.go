// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// txOverheadWeight covers version, locktime and the input and output
	// counts: 10 bytes at 4 wu each.
	txOverheadWeight = 40

	// fallbackTxWeight is the weight assumed for a transaction whose
	// inputs are not known yet: one P2WPKH input and two outputs.
	fallbackTxWeight = 560
)

// inputWeights is the weight, in wu, added by spending one input of a given
// type.
var inputWeights = map[AddressType]uint64{
	AddrTypeP2PKH:   592,
	AddrTypeP2SH:    640,
	AddrTypeP2WPKH:  272,
	AddrTypeP2WSH:   272,
	AddrTypeP2TR:    230,
	AddrTypeUnknown: 592,
}

// outputWeights is the weight, in wu, added by creating one output of a given
// type.
var outputWeights = map[AddressType]uint64{
	AddrTypeP2PKH:   136,
	AddrTypeP2SH:    128,
	AddrTypeP2WPKH:  124,
	AddrTypeP2WSH:   172,
	AddrTypeP2TR:    172,
	AddrTypeUnknown: 136,
}

// InputWeight returns the estimated weight of spending one input of the given
// type. Types outside the table are sized as AddrTypeUnknown.
func InputWeight(addrType AddressType) btcunit.WeightUnit {
	wu, ok := inputWeights[addrType]
	if !ok {
		wu = inputWeights[AddrTypeUnknown]
	}

	return btcunit.NewWeightUnit(wu)
}

// OutputWeight returns the estimated weight of one output of the given type.
// Types outside the table are sized as AddrTypeUnknown.
func OutputWeight(addrType AddressType) btcunit.WeightUnit {
	wu, ok := outputWeights[addrType]
	if !ok {
		wu = outputWeights[AddrTypeUnknown]
	}

	return btcunit.NewWeightUnit(wu)
}

// TxSizeEstimate is the estimated size of a transaction spending a set of
// outputs. It is a pure function of its inputs and is recomputed whenever
// they change.
type TxSizeEstimate struct {
	// Weight is the total estimated weight.
	Weight btcunit.WeightUnit

	// VSize is the weight expressed in whole virtual bytes, rounded up.
	VSize btcunit.VByte

	// InputCount is the number of inputs the estimate covers.
	InputCount int

	// OutputCount is the number of outputs the estimate covers.
	OutputCount int

	// InputTypes holds the type each input was sized as, in input order.
	InputTypes []AddressType
}

// senderAddrType classifies the optional sender address, defaulting to
// P2WPKH when none is given.
func senderAddrType(sender fn.Option[string]) AddressType {
	addrType := AddrTypeP2WPKH
	sender.WhenSome(func(addr string) {
		addrType = ClassifyAddress(addr)
	})

	return addrType
}

// EstimateTxSize estimates the size of a transaction spending utxos into
// outputCount outputs. Every output is assumed to be of the sender's own
// address type, as one of them is normally change back to the sender.
//
// With no utxos a fixed estimate of one P2WPKH input is returned so a fee can
// be previewed before the wallet's outputs are known.
func EstimateTxSize(utxos []UnspentOutput, outputCount int,
	sender fn.Option[string]) TxSizeEstimate {

	if len(utxos) == 0 {
		weight := btcunit.NewWeightUnit(fallbackTxWeight)

		return TxSizeEstimate{
			Weight:      weight,
			VSize:       weight.ToVB().RoundUp(),
			InputCount:  1,
			OutputCount: outputCount,
			InputTypes:  []AddressType{AddrTypeP2WPKH},
		}
	}

	// Inputs without a hint of their own are sized as the sender's type.
	senderType := senderAddrType(sender)

	total := uint64(txOverheadWeight)
	inputTypes := make([]AddressType, 0, len(utxos))
	for i := range utxos {
		addrType := utxos[i].addressType(senderType)
		inputTypes = append(inputTypes, addrType)
		total += InputWeight(addrType).WeightUnits()
	}

	if outputCount > 0 {
		total += uint64(outputCount) *
			OutputWeight(senderType).WeightUnits()
	}

	weight := btcunit.NewWeightUnit(total)

	return TxSizeEstimate{
		Weight:      weight,
		VSize:       weight.ToVB().RoundUp(),
		InputCount:  len(utxos),
		OutputCount: outputCount,
		InputTypes:  inputTypes,
	}
}
