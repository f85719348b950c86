// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"errors"
	"math"
	"net/http"

	"github.com/Swapso-App/BTC-module/chain"
	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/Swapso-App/BTC-module/wallet"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/gin-gonic/gin"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Error codes returned in ErrorInfo.Code.
const (
	codeInvalidJSON       = "INVALID_JSON"
	codeInvalidAmount     = "INVALID_AMOUNT"
	codeInvalidFeeRate    = "INVALID_FEE_RATE"
	codeInvalidAddress    = "INVALID_ADDRESS"
	codeInvalidUtxo       = "INVALID_UTXO"
	codeInsufficientFunds = "INSUFFICIENT_FUNDS"
	codeNoInputs          = "NO_INPUTS"
	codeUnknownAddress    = "UNKNOWN_ADDRESS"
	codeFeeRateTooHigh    = "FEE_RATE_TOO_HIGH"
	codeDustOutput        = "DUST_OUTPUT"
	codeBroadcastRejected = "BROADCAST_REJECTED"
	codeChainUnavailable  = "CHAIN_UNAVAILABLE"
	codeInternal          = "INTERNAL"
)

var (
	errNonPositiveAmount  = errors.New("amount must be greater than zero")
	errNonPositiveFeeRate = errors.New("fee rate must be greater than zero")
)

// abort writes an error response and stops the handler chain.
func abort(c *gin.Context, status int, info *ErrorInfo) {
	c.AbortWithStatusJSON(status, ErrorResponse{OK: false, Error: info})
}

// abortWithError maps a wallet or chain error to a status and code.
func abortWithError(c *gin.Context, err error) {
	var fundsErr *wallet.InsufficientFundsError

	switch {
	case errors.As(err, &fundsErr):
		needed := int64(fundsErr.Needed)
		available := int64(fundsErr.Available)
		abort(c, http.StatusUnprocessableEntity, &ErrorInfo{
			Code:      codeInsufficientFunds,
			Message:   err.Error(),
			Needed:    &needed,
			Available: &available,
		})

	case errors.Is(err, wallet.ErrNoInputsAvailable):
		abort(c, http.StatusUnprocessableEntity, &ErrorInfo{
			Code: codeNoInputs, Message: err.Error(),
		})

	case errors.Is(err, wallet.ErrUnknownAddress):
		abort(c, http.StatusNotFound, &ErrorInfo{
			Code: codeUnknownAddress, Message: err.Error(),
		})

	case errors.Is(err, wallet.ErrFeeRateTooHigh):
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeFeeRateTooHigh, Message: err.Error(),
		})

	case errors.Is(err, wallet.ErrInvalidFeeRateValue):
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeInvalidFeeRate, Message: err.Error(),
		})

	case errors.Is(err, wallet.ErrNegativeUtxoValue):
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeInvalidUtxo, Message: err.Error(),
		})

	case errors.Is(err, txrules.ErrOutputIsDust):
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeDustOutput, Message: err.Error(),
		})

	case chain.IsRejected(err):
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeBroadcastRejected, Message: err.Error(),
		})

	case errors.Is(err, chain.ErrUnexpectedStatus):
		abort(c, http.StatusBadGateway, &ErrorInfo{
			Code: codeChainUnavailable, Message: err.Error(),
		})

	default:
		log.Errorf("Request %s %s failed: %v", c.Request.Method,
			c.Request.URL.Path, err)

		abort(c, http.StatusInternalServerError, &ErrorInfo{
			Code: codeInternal, Message: err.Error(),
		})
	}
}

// parseFeeRate validates a client fee rate in sat/vb.
func parseFeeRate(rate float64) (btcunit.SatPerVByte, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return btcunit.SatPerVByte{}, errNonPositiveFeeRate
	}

	return btcunit.ParseSatPerVByte(rate)
}

// validAddress reports whether addr is an address of the server's network.
func (s *Server) validAddress(addr string) bool {
	decoded, err := btcutil.DecodeAddress(addr, s.cfg.Params)
	if err != nil {
		return false
	}

	return decoded.IsForNet(s.cfg.Params)
}

// handleHealth reports that the server is up.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleFeeQuote quotes a payment, from client supplied outputs when given
// and from the chain otherwise.
func (s *Server) handleFeeQuote(c *gin.Context) {
	var req FeeQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeInvalidJSON, Message: err.Error(),
		})
		return
	}

	if req.Amount <= 0 {
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeInvalidAmount, Message: errNonPositiveAmount.Error(),
		})
		return
	}

	feeRate, err := parseFeeRate(req.FeeRate)
	if err != nil {
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeInvalidFeeRate, Message: err.Error(),
		})
		return
	}

	var quote *wallet.FeeQuote
	if req.UTXOs == nil {
		if !s.validAddress(req.From) {
			abort(c, http.StatusBadRequest, &ErrorInfo{
				Code:    codeInvalidAddress,
				Message: "invalid sender address " + req.From,
			})
			return
		}

		quote, err = s.cfg.Wallet.QuoteFee(
			c.Request.Context(), wallet.QuoteFeeRequest{
				From:    req.From,
				Amount:  btcutil.Amount(req.Amount),
				FeeRate: feeRate,
			},
		)
	} else {
		utxos := make([]wallet.UnspentOutput, 0, len(*req.UTXOs))
		for i := range *req.UTXOs {
			utxo, err := (*req.UTXOs)[i].toUnspentOutput()
			if err != nil {
				abort(c, http.StatusBadRequest, &ErrorInfo{
					Code: codeInvalidUtxo, Message: err.Error(),
				})
				return
			}

			utxos = append(utxos, utxo)
		}

		quote, err = s.cfg.Quoter.Quote(&wallet.QuoteRequest{
			Sender:  req.From,
			Amount:  btcutil.Amount(req.Amount),
			FeeRate: feeRate,
			UTXOs:   fn.Some(utxos),
		})
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, FeeQuoteResponse{
		OK:    true,
		Quote: newQuoteJSON(quote),
	})
}

// handleFees returns the suggested fee tiers.
func (s *Server) handleFees(c *gin.Context) {
	tiers, err := s.cfg.Wallet.FeeTiers(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, FeesResponse{
		OK:       true,
		Fast:     tiers.Fast.Float64(),
		Standard: tiers.Standard.Float64(),
		Slow:     tiers.Slow.Float64(),
	})
}

// handleBalance returns the balance of an address.
func (s *Server) handleBalance(c *gin.Context) {
	addr := c.Param("address")
	if !s.validAddress(addr) {
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code:    codeInvalidAddress,
			Message: "invalid address " + addr,
		})
		return
	}

	balance, err := s.cfg.Wallet.Balance(c.Request.Context(), addr)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		OK:          true,
		Address:     addr,
		Confirmed:   int64(balance.Confirmed),
		Unconfirmed: int64(balance.Unconfirmed),
		Total:       int64(balance.Total()),
	})
}

// handleHistory returns the transactions touching an address.
func (s *Server) handleHistory(c *gin.Context) {
	addr := c.Param("address")
	if !s.validAddress(addr) {
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code:    codeInvalidAddress,
			Message: "invalid address " + addr,
		})
		return
	}

	records, err := s.cfg.Wallet.History(c.Request.Context(), addr)
	if err != nil {
		abortWithError(c, err)
		return
	}

	txns := make([]HistoryTxJSON, 0, len(records))
	for i := range records {
		txns = append(txns, newHistoryTxJSON(&records[i], addr))
	}

	c.JSON(http.StatusOK, HistoryResponse{
		OK:           true,
		Address:      addr,
		Transactions: txns,
	})
}

// handleNewAddress derives a new receiving address.
func (s *Server) handleNewAddress(c *gin.Context) {
	addr, err := s.cfg.Wallet.NewAddress(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AddressResponse{OK: true, Address: addr})
}

// handleAddresses lists the derived receiving addresses.
func (s *Server) handleAddresses(c *gin.Context) {
	addrs, err := s.cfg.Wallet.Addresses(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AddressesResponse{OK: true, Addresses: addrs})
}

// handleSend builds, signs and broadcasts a payment.
func (s *Server) handleSend(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeInvalidJSON, Message: err.Error(),
		})
		return
	}

	if req.Amount <= 0 {
		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code: codeInvalidAmount, Message: errNonPositiveAmount.Error(),
		})
		return
	}

	for _, addr := range []string{req.From, req.To} {
		if s.validAddress(addr) {
			continue
		}

		abort(c, http.StatusBadRequest, &ErrorInfo{
			Code:    codeInvalidAddress,
			Message: "invalid address " + addr,
		})
		return
	}

	feeRate := fn.None[btcunit.SatPerVByte]()
	if req.FeeRate != nil {
		rate, err := parseFeeRate(*req.FeeRate)
		if err != nil {
			abort(c, http.StatusBadRequest, &ErrorInfo{
				Code: codeInvalidFeeRate, Message: err.Error(),
			})
			return
		}
		feeRate = fn.Some(rate)
	}

	result, err := s.cfg.Wallet.Send(c.Request.Context(), wallet.SendRequest{
		From:    req.From,
		To:      req.To,
		Amount:  btcutil.Amount(req.Amount),
		FeeRate: feeRate,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SendResponse{
		OK:    true,
		TxID:  result.TxID.String(),
		Hex:   result.RawTx,
		Quote: newQuoteJSON(result.Quote),
	})
}
