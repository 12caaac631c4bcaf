// Package media uploads event assets to the content-addressed storage
// network. Identifiers are derived from content, so re-uploading identical
// bytes is safe and yields the same id.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tessera-live/tessera/internal/domain"
)

// Uploader stores one asset and returns its stable content identifier.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

const defaultMaxBytes = 10 << 20

// Client uploads to a content-store HTTP gateway. The gateway assigns the
// content id; identical bytes always map to the same id.
type Client struct {
	endpoint string
	http     *http.Client
	maxBytes int
}

type Option func(*Client)

// WithMaxBytes overrides the client-side payload size limit.
func WithMaxBytes(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	ContentID string `json:"cid"`
}

// Upload posts the asset and returns the store-assigned content id. Size is
// checked before any network call; oversized payloads are not retryable.
func (c *Client) Upload(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty payload: %w", domain.ErrUploadTransport)
	}
	if len(data) > c.maxBytes {
		return "", fmt.Errorf("payload is %d bytes, limit %d: %w", len(data), c.maxBytes, domain.ErrPayloadTooLarge)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %v: %w", err, domain.ErrUploadTransport)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return "", fmt.Errorf("store rejected payload size: %w", domain.ErrPayloadTooLarge)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return "", fmt.Errorf("upload status %d: %w", resp.StatusCode, domain.ErrUploadTransport)
	}

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode upload response: %v: %w", err, domain.ErrUploadTransport)
	}
	if body.ContentID == "" {
		return "", fmt.Errorf("upload response missing cid: %w", domain.ErrUploadTransport)
	}
	return body.ContentID, nil
}
