// Package verification talks to the external bank-transfer verification
// service. It holds no state.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single verification call.
const DefaultTimeout = 60 * time.Second

// intentTimeLayout matches the ISO-8601 millisecond form the service parses.
const intentTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrUnavailable covers transport failures, timeouts, 5xx replies and
// bodies that cannot be decoded.
var ErrUnavailable = errors.New("verification service unavailable")

// Request describes the transfer the merchant expects to have received.
type Request struct {
	TransactionID           string
	ExpectedReceiverName    string
	ExpectedReceiverAccount string
	ExpectedAmount          float64
	IntentCreatedAt         time.Time
}

// Amount accepts either a JSON number or a numeric string.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return errors.New("empty amount")
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*a = Amount(f)
	return nil
}

// Details is what the service confirmed about the transfer.
type Details struct {
	Payer    string `json:"payer"`
	Amount   Amount `json:"amount"`
	Date     string `json:"date"`
	Receiver string `json:"receiver"`
}

// Result is the decoded service reply. Success without Details is treated
// as unavailable by Verify.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Details *Details `json:"details,omitempty"`
}

// Verifier is implemented by Client and by test doubles.
type Verifier interface {
	Verify(ctx context.Context, req Request) (*Result, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type verifyBody struct {
	TransactionID           string  `json:"transaction_id"`
	ExpectedReceiverName    string  `json:"expected_receiver_name"`
	ExpectedReceiverAccount string  `json:"expected_receiver_account"`
	ExpectedAmount          float64 `json:"expected_amount"`
	IntentCreatedAt         string  `json:"intent_created_at"`
}

// Verify posts the expectation to {base}/verify. A decodable 2xx or 4xx
// reply is returned as a Result; anything else wraps ErrUnavailable.
func (c *Client) Verify(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(verifyBody{
		TransactionID:           req.TransactionID,
		ExpectedReceiverName:    req.ExpectedReceiverName,
		ExpectedReceiverAccount: req.ExpectedReceiverAccount,
		ExpectedAmount:          req.ExpectedAmount,
		IntentCreatedAt:         req.IntentCreatedAt.UTC().Format(intentTimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("encode verify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		// The service rejects bad transfers with 4xx and a message.
		result.Success = false
		if result.Message == "" {
			result.Message = fmt.Sprintf("verification rejected with status %d", resp.StatusCode)
		}
		return &result, nil
	}

	if result.Success && result.Details == nil {
		return nil, fmt.Errorf("%w: success reply without details", ErrUnavailable)
	}
	return &result, nil
}
