package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Transaction is a stored transfer as returned by the server.
type Transaction struct {
	Signature string `json:"signature"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    uint64 `json:"amount"`    // lamports
	Timestamp uint64 `json:"timestamp"` // Unix seconds, 0 when unknown
}

// Time returns the block time of the transaction in UTC.
func (t Transaction) Time() time.Time {
	return time.Unix(int64(t.Timestamp), 0).UTC()
}

// ListTransactionsParams selects a page of transactions. Nil Limit and
// Offset leave the server defaults in place.
type ListTransactionsParams struct {
	PubKey string
	Day    string // dd/mm/yyyy
	Limit  *int
	Offset *int
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("request failed: %s (%s)", e.Message, e.Details)
	}
	return fmt.Sprintf("request failed: %s", e.Message)
}

// Client is the HTTP client for the solagg read API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListTransactions fetches one page of stored transactions for a key.
func (c *Client) ListTransactions(ctx context.Context, params ListTransactionsParams) ([]Transaction, error) {
	q := url.Values{}
	q.Set("pub_key", params.PubKey)
	if params.Day != "" {
		q.Set("day", params.Day)
	}
	if params.Limit != nil {
		q.Set("limit", strconv.Itoa(*params.Limit))
	}
	if params.Offset != nil {
		q.Set("offset", strconv.Itoa(*params.Offset))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var txns []Transaction
	if err := json.NewDecoder(resp.Body).Decode(&txns); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if txns == nil {
		txns = []Transaction{}
	}

	c.logger.Debug("transactions listed", "pub_key", params.PubKey, "count", len(txns))
	return txns, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Details: errResp.Details}
}
