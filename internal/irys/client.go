package irys

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Digital-Mercenaries/zorp/internal/config"
	"github.com/Digital-Mercenaries/zorp/internal/metrics"
	"github.com/Digital-Mercenaries/zorp/internal/models"
)

// Client talks to the Irys durable storage network: balance queries and
// uploads against the node API, content fetches against the gateway.
// No operation is cached; balance and content state can change between
// calls, so every call is a fresh network round trip.
type Client struct {
	gatewayURL string
	nodeURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Irys client
func NewClient(cfg config.IrysConfig) *Client {
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &Client{
		gatewayURL: cfg.GatewayURL,
		nodeURL:    cfg.NodeURL,
		token:      cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// balanceResponse node balance query response
type balanceResponse struct {
	Balance string `json:"balance"`
}

// uploadResponse node upload response; Id is the content identifier
type uploadResponse struct {
	Id        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
	Signature string `json:"signature,omitempty"`
}

// GetBalance queries the funded balance for an account on the node
func (c *Client) GetBalance(ctx context.Context, account string) (*big.Int, error) {
	reqURL := fmt.Sprintf("%s/account/balance/%s?address=%s", c.nodeURL, c.token, url.QueryEscape(account))

	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues("balance").Observe(time.Since(start).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &NetworkError{Op: "balance", Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: "balance", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &NetworkError{Op: "balance", Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	var balResp balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balResp); err != nil {
		return nil, &NetworkError{Op: "balance", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	balance, ok := new(big.Int).SetString(balResp.Balance, 10)
	if !ok {
		return nil, &NetworkError{Op: "balance", Err: fmt.Errorf("unparseable balance %q", balResp.Balance)}
	}

	return balance, nil
}

// Upload sends opaque bytes to the node and returns the storage receipt.
// A 402 from the provider is classified as InsufficientBalanceError. A
// transport failure after the body went out (timeout, reset) is reported as an
// ambiguous UploadError: the provider may have accepted the bytes, so the
// caller must not silently upload again.
func (c *Client) Upload(ctx context.Context, data []byte) (*models.StorageReceipt, error) {
	reqURL := fmt.Sprintf("%s/tx/%s", c.nodeURL, c.token)

	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Once the body has gone out, a timeout no longer proves the provider
		// rejected the bytes. Mark the outcome ambiguous so the caller
		// surfaces it instead of re-uploading at a second cost.
		return nil, &UploadError{Ambiguous: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		body, _ := io.ReadAll(resp.Body)
		return nil, &InsufficientBalanceError{Detail: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UploadError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UploadError{Ambiguous: true, Err: fmt.Errorf("failed to read receipt: %w", err)}
	}

	var upResp uploadResponse
	if err := json.Unmarshal(raw, &upResp); err != nil {
		return nil, &UploadError{Ambiguous: true, Err: fmt.Errorf("failed to decode receipt: %w", err)}
	}
	if upResp.Id == "" {
		return nil, &UploadError{Ambiguous: true, Err: errors.New("provider receipt carries no content identifier")}
	}

	metrics.UploadBytesTotal.Add(float64(len(data)))

	return &models.StorageReceipt{
		Cid:             upResp.Id,
		ProviderReceipt: json.RawMessage(raw),
		ByteSize:        int64(len(data)),
	}, nil
}

// Fetch downloads the raw bytes behind a content identifier from the gateway
func (c *Client) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if cid == "" {
		return nil, &NotFoundError{Cid: cid}
	}
	reqURL := fmt.Sprintf("%s/%s", c.gatewayURL, url.PathEscape(cid))

	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &NetworkError{Op: "fetch", Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Cid: cid}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &NetworkError{Op: "fetch", Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "fetch", Err: err}
	}

	return data, nil
}

// isTimeout reports whether a transport error is a deadline or timeout
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
