package icy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const pollTimeout = 5 * time.Second

// maxStatusBody bounds how much of a status document is read; real
// documents are a few KB.
const maxStatusBody = 1 << 20

// Poller fetches track titles from a JSON status endpoint. It is the
// fallback for streams that point at a secondary URL instead of carrying
// titles inband. Each Poll is one GET; the caller spaces calls to bound the
// request rate.
type Poller struct {
	url    string
	client *http.Client
}

// NewPoller returns a poller for the given status URL. A nil client falls
// back to http.DefaultClient.
func NewPoller(client *http.Client, url string) *Poller {
	if client == nil {
		client = http.DefaultClient
	}
	return &Poller{url: url, client: client}
}

// URL returns the polled endpoint.
func (p *Poller) URL() string {
	return p.url
}

// Poll issues a single GET and extracts the current title. An empty title
// with a nil error means the endpoint answered but carried no usable title.
// Network failures, non-2xx responses and oversized bodies are errors; all
// of them are transient and the caller retries next interval.
func (p *Poller) Poll(ctx context.Context) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("accept", "application/json")
	req.Header.Add("user-agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, p.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return "", fmt.Errorf("failed to read status body: %w", err)
	}

	return TitleFromStatus(body), nil
}
