// services/payment_dispatcher.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentCause string

const (
	CauseInsufficientFunds  PaymentCause = "insufficient_funds"
	CauseInvalidRecipient   PaymentCause = "invalid_recipient"
	CauseInvalidAmount      PaymentCause = "invalid_amount"
	CauseRejected           PaymentCause = "rejected"
	CauseNetwork            PaymentCause = "network"
	CauseBackendUnavailable PaymentCause = "backend_unavailable"
)

// PaymentError is a classified failure to send a payment.
type PaymentError struct {
	Cause      PaymentCause
	StatusCode int
	Message    string
	Err        error
}

func (e *PaymentError) Error() string {
	msg := fmt.Sprintf("payment %s: %s", e.Cause, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// classifyBackendError maps a non-200 payment service answer to a cause.
func classifyBackendError(status int, message, details string) *PaymentError {
	text := strings.ToLower(message + " " + details)
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "payment service rejected the request"
	}

	cause := CauseRejected
	switch {
	case strings.Contains(text, "insufficient"):
		cause = CauseInsufficientFunds
	case strings.Contains(text, "recipient") || strings.Contains(text, "address"):
		cause = CauseInvalidRecipient
	case strings.Contains(text, "amount"):
		cause = CauseInvalidAmount
	case status >= 500:
		cause = CauseBackendUnavailable
	}
	return &PaymentError{Cause: cause, StatusCode: status, Message: msg}
}

// PaymentDispatcher sends a single payout through the backend.
type PaymentDispatcher struct {
	backend PaymentBackend
}

func NewPaymentDispatcher(backend PaymentBackend) *PaymentDispatcher {
	return &PaymentDispatcher{backend: backend}
}

// Dispatch pays amount to recipient, as a token transfer when tokenAddress is
// set and in the native currency otherwise. recipient must come from the
// wallet validator.
func (d *PaymentDispatcher) Dispatch(ctx context.Context, recipient string, amount decimal.Decimal, tokenAddress string) (string, error) {
	if !amount.IsPositive() {
		return "", &PaymentError{Cause: CauseInvalidAmount, Message: fmt.Sprintf("amount must be positive, got %s", amount)}
	}
	if !common.IsHexAddress(recipient) {
		return "", &PaymentError{Cause: CauseInvalidRecipient, Message: fmt.Sprintf("malformed recipient %q", recipient)}
	}
	tokenAddress = strings.TrimSpace(tokenAddress)
	if tokenAddress != "" && !common.IsHexAddress(tokenAddress) {
		return "", &PaymentError{Cause: CauseRejected, Message: fmt.Sprintf("malformed token address %q", tokenAddress)}
	}

	var (
		txHash string
		err    error
	)
	if tokenAddress != "" {
		txHash, err = d.backend.SendTokenPayment(ctx, recipient, amount, tokenAddress)
	} else {
		txHash, err = d.backend.SendNativePayment(ctx, recipient, amount)
	}
	if err != nil {
		var pe *PaymentError
		if !errors.As(err, &pe) {
			pe = &PaymentError{Cause: CauseNetwork, Message: "payment backend call failed", Err: err}
		}
		paymentsDispatched.WithLabelValues(string(pe.Cause)).Inc()
		zap.L().Warn("payment dispatch failed",
			zap.String("recipient", recipient),
			zap.String("amount", amount.String()),
			zap.String("cause", string(pe.Cause)),
			zap.Error(err))
		return "", pe
	}

	txHash = normalizeTxHash(txHash)
	if txHash == "" {
		paymentsDispatched.WithLabelValues(string(CauseRejected)).Inc()
		return "", &PaymentError{Cause: CauseRejected, Message: "payment backend returned no transaction hash"}
	}
	if !validTxHash(txHash) {
		zap.L().Warn("payment backend returned an unusual transaction hash", zap.String("tx_hash", txHash))
	}

	paymentsDispatched.WithLabelValues("sent").Inc()
	zap.L().Info("payment dispatched",
		zap.String("recipient", recipient),
		zap.String("amount", amount.String()),
		zap.String("token_address", tokenAddress),
		zap.String("tx_hash", txHash))
	return txHash, nil
}

func normalizeTxHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if hash != "" && !strings.HasPrefix(hash, "0x") {
		hash = "0x" + hash
	}
	return hash
}

// validTxHash reports whether hash is a 0x-prefixed 32-byte hex string.
func validTxHash(hash string) bool {
	b, err := hexutil.Decode(hash)
	return err == nil && len(b) == common.HashLength
}
