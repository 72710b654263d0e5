// Package registry contains the HTTP client for the external document
// registry. The engine only supplies the assembled JSON body and the
// content hash; auth and retries are not its concern.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/tilter/internal/ports/secondary"
)

// Client implements secondary.RegistryClient against a registry base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a registry client. A zero timeout falls back to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Push uploads one assembled document and returns the Location header the
// registry responds with.
func (c *Client) Push(ctx context.Context, document map[string]any) (string, error) {
	body, err := json.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry push failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registry push failed: status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("registry push succeeded but returned no location")
	}
	return location, nil
}

// Remove deletes a previously pushed document by its content hash.
func (c *Client) Remove(ctx context.Context, contentHash string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/documents/"+contentHash, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry delete failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("registry delete failed: status %d", resp.StatusCode)
	}
	return nil
}

// Ensure Client implements the interface
var _ secondary.RegistryClient = (*Client)(nil)
