// Package boletoapi talks to the external slip-generation service. The
// service renders registered slips (and remittance files) on behalf of the
// bank; callers fall back to local encoding when it is unreachable.
package boletoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string, timeout time.Duration) *Client {
	if host == "" {
		host = "http://localhost:9292"
	}
	host = strings.TrimRight(host, "/")
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

// SlipRequest carries everything the service needs to register one slip.
type SlipRequest struct {
	BankCode    string `json:"bank_code"`
	Agency      string `json:"agency"`
	Account     string `json:"account"`
	Wallet      string `json:"wallet"`
	Beneficiary string `json:"beneficiary"`

	SlipNumber string `json:"our_number"`
	DueDate    string `json:"due_date"`
	ValueCents int64  `json:"value_cents"`

	PayerName     string `json:"payer_name,omitempty"`
	PayerDocument string `json:"payer_document,omitempty"`
	Instructions  string `json:"instructions,omitempty"`
}

// SlipResponse is the service's view of a registered slip. RawBody keeps the
// full payload so it can be stored as the slip artifact.
type SlipResponse struct {
	Barcode       string `json:"barcode"`
	DigitableLine string `json:"digitable_line"`
	SlipNumber    string `json:"our_number"`

	RawBody []byte `json:"-"`
}

// RemittanceRequest asks the service to render a clearing file for a set of
// already-registered slips.
type RemittanceRequest struct {
	Layout      string   `json:"layout"`
	BankCode    string   `json:"bank_code"`
	Agency      string   `json:"agency"`
	Account     string   `json:"account"`
	Beneficiary string   `json:"beneficiary"`
	Sequence    uint64   `json:"sequence"`
	SlipNumbers []string `json:"our_numbers"`
}

type RemittanceResponse struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &APIError{Status: resp.StatusCode, Body: string(out)}
	}
	return out, nil
}

func (c *Client) GenerateSlip(ctx context.Context, req SlipRequest) (*SlipResponse, error) {
	if strings.TrimSpace(req.SlipNumber) == "" {
		return nil, fmt.Errorf("our_number is required")
	}
	body, err := c.doPost(ctx, "/api/v1/boletos", req)
	if err != nil {
		return nil, err
	}
	var out SlipResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	out.RawBody = body
	return &out, nil
}

func (c *Client) GenerateRemittance(ctx context.Context, req RemittanceRequest) (*RemittanceResponse, error) {
	if len(req.SlipNumbers) == 0 {
		return nil, fmt.Errorf("our_numbers is required")
	}
	body, err := c.doPost(ctx, "/api/v1/remessas", req)
	if err != nil {
		return nil, err
	}
	var out RemittanceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
