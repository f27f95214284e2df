// Package remote implements the SyncTarget port against the hub's HTTP
// intake endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// Client uploads artifacts to the hub and probes its reachability.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a new hub client. baseURL is the hub root, e.g.
// "https://hub.example.com".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Upload sends one artifact to the hub's kind-specific intake endpoint. Any
// non-2xx response is an error so the sync layer retries later.
func (c *Client) Upload(ctx context.Context, artifact *domain.CaptureArtifact) error {
	body, err := json.Marshal(artifact)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/sync/%s", c.baseURL, artifact.Kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", artifact.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s: hub returned %d: %s", artifact.ID, resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// Probe reports whether the hub's health endpoint answers. The connectivity
// monitor feeds the result to the sync coordinator.
func (c *Client) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
	return resp.StatusCode == http.StatusOK
}
