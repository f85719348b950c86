// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"strings"

	"github.com/btcsuite/btcd/txscript"
)

// AddressType is the script type an address or output script pays to. It is
// only used for size estimation and is always derived, never stored.
type AddressType uint8

const (
	// AddrTypeUnknown is any address the classifier does not recognize.
	// It is sized like a legacy P2PKH address.
	AddrTypeUnknown AddressType = iota

	// AddrTypeP2PKH is a legacy pay-to-pubkey-hash address.
	AddrTypeP2PKH

	// AddrTypeP2SH is a pay-to-script-hash address.
	AddrTypeP2SH

	// AddrTypeP2WPKH is a native segwit v0 pay-to-witness-pubkey-hash
	// address.
	AddrTypeP2WPKH

	// AddrTypeP2WSH is a native segwit v0 pay-to-witness-script-hash
	// address.
	AddrTypeP2WSH

	// AddrTypeP2TR is a segwit v1 taproot address.
	AddrTypeP2TR
)

const (
	// segwitV0Prefix is the mainnet bech32 prefix of a v0 witness program.
	segwitV0Prefix = "bc1q"

	// taprootPrefix is the mainnet bech32m prefix of a v1 witness program.
	taprootPrefix = "bc1p"

	// segwitPrefix is the mainnet human readable part plus separator.
	segwitPrefix = "bc1"

	// p2wpkhAddrLen is the length of a mainnet P2WPKH address.
	p2wpkhAddrLen = 42

	// p2trAddrLen is the length of a mainnet P2TR address.
	p2trAddrLen = 62
)

// String returns the conventional name of the address type.
func (a AddressType) String() string {
	switch a {
	case AddrTypeP2PKH:
		return "P2PKH"
	case AddrTypeP2SH:
		return "P2SH"
	case AddrTypeP2WPKH:
		return "P2WPKH"
	case AddrTypeP2WSH:
		return "P2WSH"
	case AddrTypeP2TR:
		return "P2TR"
	default:
		return "UNKNOWN"
	}
}

// ClassifyAddress maps an address string to its AddressType using only the
// prefix and length. It never fails: anything unrecognized, including the
// empty string, is AddrTypeUnknown. The rules are ordered and the first match
// wins. Network prefixes other than mainnet are not recognized.
func ClassifyAddress(addr string) AddressType {
	switch {
	case strings.HasPrefix(addr, segwitV0Prefix) &&
		len(addr) == p2wpkhAddrLen:

		return AddrTypeP2WPKH

	case strings.HasPrefix(addr, taprootPrefix) &&
		len(addr) == p2trAddrLen:

		return AddrTypeP2TR

	case strings.HasPrefix(addr, "3"):
		return AddrTypeP2SH

	case strings.HasPrefix(addr, "1"):
		return AddrTypeP2PKH

	case strings.HasPrefix(addr, segwitPrefix) &&
		len(addr) > p2wpkhAddrLen:

		return AddrTypeP2WSH

	default:
		return AddrTypeUnknown
	}
}

// ClassifyPkScript maps a raw output script to its AddressType. Scripts that
// are not one of the standard single-key or script-hash templates are
// AddrTypeUnknown.
func ClassifyPkScript(pkScript []byte) AddressType {
	switch txscript.GetScriptClass(pkScript) {
	case txscript.PubKeyHashTy:
		return AddrTypeP2PKH
	case txscript.ScriptHashTy:
		return AddrTypeP2SH
	case txscript.WitnessV0PubKeyHashTy:
		return AddrTypeP2WPKH
	case txscript.WitnessV0ScriptHashTy:
		return AddrTypeP2WSH
	case txscript.WitnessV1TaprootTy:
		return AddrTypeP2TR
	default:
		return AddrTypeUnknown
	}
}
