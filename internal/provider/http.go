package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	healthPath      = "/health"
	maxResponseSize = 1 << 20
)

// HTTP is a provider backed by a reachable HTTP server. Respond issues a GET
// against the server URL and Probe checks its /health endpoint.
type HTTP struct {
	id     uuid.UUID
	url    *url.URL
	client *http.Client
}

// NewHTTP creates a provider for the given URL. The identity is derived from
// the URL, so registering the same URL twice yields the same provider identity.
func NewHTTP(u *url.URL) *HTTP {
	return &HTTP{
		id:  uuid.NewSHA1(uuid.NameSpaceURL, []byte(u.String())),
		url: u,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (h *HTTP) ID() uuid.UUID {
	return h.id
}

// URL returns the backend server URL.
func (h *HTTP) URL() *url.URL {
	return h.url
}

// Respond returns the trimmed response body. Transport failures and
// non-2xx statuses are errors.
func (h *HTTP) Respond(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url.String(), nil)
	if err != nil {
		return "", err
	}

	res, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", h.url, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("backend %s responded with status %d", h.url, res.StatusCode)
	}

	return strings.TrimSpace(string(body)), nil
}

// Probe reports whether GET /health answers 200 OK.
func (h *HTTP) Probe(ctx context.Context) bool {
	healthURL := h.url.ResolveReference(&url.URL{Path: healthPath})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL.String(), nil)
	if err != nil {
		return false
	}

	res, err := h.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseSize))

	return res.StatusCode == http.StatusOK
}

func (h *HTTP) String() string {
	return h.url.String()
}
