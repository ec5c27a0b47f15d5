// services/payment_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the settlement state reported by the payment backend.
type TxStatus string

const (
	TxStatusSuccess   TxStatus = "success"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
	TxStatusError     TxStatus = "error"
	TxStatusPending   TxStatus = "pending"
	TxStatusNotFound  TxStatus = "not_found"
)

// PaymentBackend is the external service that moves funds.
type PaymentBackend interface {
	SendNativePayment(ctx context.Context, recipient string, amount decimal.Decimal) (string, error)
	SendTokenPayment(ctx context.Context, recipient string, amount decimal.Decimal, tokenAddress string) (string, error)
	GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error)
	Health(ctx context.Context) error
}

// PaymentClient talks to the payment service over HTTP.
type PaymentClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewPaymentClient(baseURL, token string, timeout time.Duration) *PaymentClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaymentClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

type paymentRequest struct {
	Recipient    string      `json:"recipient"`
	Amount       json.Number `json:"amount"`
	TokenAddress string      `json:"token_address,omitempty"`
}

type paymentResponse struct {
	TransactionHash string `json:"transaction_hash"`
	Error           string `json:"error"`
	Details         string `json:"details"`
}

type transactionStatusResponse struct {
	TransactionHash string   `json:"transaction_hash"`
	Status          TxStatus `json:"status"`
	Error           string   `json:"error"`
	Details         string   `json:"details"`
}

func (c *PaymentClient) SendNativePayment(ctx context.Context, recipient string, amount decimal.Decimal) (string, error) {
	return c.send(ctx, "/api/payment/send-native", paymentRequest{
		Recipient: recipient,
		Amount:    json.Number(amount.String()),
	})
}

func (c *PaymentClient) SendTokenPayment(ctx context.Context, recipient string, amount decimal.Decimal, tokenAddress string) (string, error) {
	return c.send(ctx, "/api/payment/send-token", paymentRequest{
		Recipient:    recipient,
		Amount:       json.Number(amount.String()),
		TokenAddress: tokenAddress,
	})
}

func (c *PaymentClient) send(ctx context.Context, path string, body paymentRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", &PaymentError{Cause: CauseInvalidAmount, Message: "failed to encode payment request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &PaymentError{Cause: CauseNetwork, Message: "failed to build payment request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", &PaymentError{Cause: CauseNetwork, Message: "payment service unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var out paymentResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
		return "", &PaymentError{Cause: CauseBackendUnavailable, StatusCode: resp.StatusCode, Message: "malformed payment response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyBackendError(resp.StatusCode, out.Error, out.Details)
	}
	if out.TransactionHash == "" {
		return "", &PaymentError{Cause: CauseBackendUnavailable, StatusCode: resp.StatusCode, Message: "payment response carried no transaction hash"}
	}
	return out.TransactionHash, nil
}

// GetTransactionStatus returns TxStatusNotFound (not an error) when the backend
// does not know the hash yet.
func (c *PaymentClient) GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	endpoint := c.BaseURL + "/api/payment/transaction-status/" + url.PathEscape(txHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	var out transactionStatusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&out); err != nil {
		if resp.StatusCode == http.StatusNotFound {
			return TxStatusNotFound, nil
		}
		return "", fmt.Errorf("failed to decode status response (HTTP %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return TxStatusNotFound, nil
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(out.Error+" "+out.Details))
	case out.Status == "":
		return "", errors.New("status response carried no status")
	}
	return out.Status, nil
}

func (c *PaymentClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/payment/health", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payment service unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *PaymentClient) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}
