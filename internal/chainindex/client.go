// Package chainindex queries an external chain indexer for transaction
// confirmation status and recent-block fee telemetry.
package chainindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TxStatus is the observed state of a transaction on the indexer.
type TxStatus struct {
	// Found is false when the indexer has never seen the transaction.
	// Not-found is an ordinary in-flight condition, not an error.
	Found bool
	// Confirmed is true once the transaction is in a block.
	Confirmed   bool
	BlockHeight int64
	// ExecError carries the indexer's execution-error payload when the
	// transaction was included but its script failed.
	ExecError string
}

// BlockStats is per-block fee telemetry.
type BlockStats struct {
	Height    int64   `json:"height"`
	MedianFee float64 `json:"median_fee"`
}

// Client is an HTTP client for a chain indexer.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates an indexer client targeting the given base URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates an indexer client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// txResponse is the indexer's transaction status document.
type txResponse struct {
	TxID   string `json:"txid"`
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	} `json:"status"`
	Error string `json:"error,omitempty"`
}

// blockResponse is one entry of the indexer's recent-blocks document.
type blockResponse struct {
	Height int64 `json:"height"`
	Extras struct {
		MedianFee float64 `json:"medianFee"`
	} `json:"extras"`
}

// TxStatus returns the confirmation status of a transaction. A 404
// yields Found=false with a nil error; transport and server failures
// return an error so callers can treat them as transient.
func (c *Client) TxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	if txid == "" {
		return nil, fmt.Errorf("empty txid")
	}
	var resp txResponse
	status, err := c.getJSON(ctx, "/tx/"+txid, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &TxStatus{Found: false}, nil
	}
	return &TxStatus{
		Found:       true,
		Confirmed:   resp.Status.Confirmed,
		BlockHeight: resp.Status.BlockHeight,
		ExecError:   resp.Error,
	}, nil
}

// RecentBlocks returns fee telemetry for up to n recent blocks, newest
// first.
func (c *Client) RecentBlocks(ctx context.Context, n int) ([]BlockStats, error) {
	var resp []blockResponse
	status, err := c.getJSON(ctx, "/v1/blocks", &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("indexer has no blocks endpoint")
	}
	if n > 0 && len(resp) > n {
		resp = resp[:n]
	}
	blocks := make([]BlockStats, len(resp))
	for i, b := range resp {
		blocks[i] = BlockStats{Height: b.Height, MedianFee: b.Extras.MedianFee}
	}
	return blocks, nil
}

// getJSON performs a GET and decodes the body unless the status is 404.
// Returns the HTTP status alongside any transport/decode error.
func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("indexer request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return http.StatusNotFound, nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("indexer %s: unexpected status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
