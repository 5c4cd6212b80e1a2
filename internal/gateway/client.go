// Package gateway talks to the hosted payment gateway. Orders are opened over
// its REST API; confirmations come back signed through the verify callback.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	keyID   string
	secret  string
	client  *http.Client
}

func NewClient(baseURL, keyID, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		keyID:   keyID,
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a gateway order for the given amount (smallest currency
// unit) and returns the gateway's order id. Transient network failures are
// retried once; a business rejection from the gateway is not.
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		id, err := c.postOrder(ctx, body)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) postOrder(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("gateway response parse: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("gateway rejected order: %s (%s)", parsed.Error.Description, parsed.Error.Code)
		}
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if parsed.ID == "" {
		return "", errors.New("gateway returned empty order id")
	}
	return parsed.ID, nil
}

// VerifySignature checks a gateway payment confirmation against the shared
// secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.secret, orderID, paymentID, signature)
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}
