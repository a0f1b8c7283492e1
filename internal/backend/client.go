// Package backend is the HTTP client for the detection and question-answering backend.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/visionguard/dashboard/internal/domain"
	"golang.org/x/net/http2"
)

// maxResponseBodySize caps how much of a backend response is read (1MB).
const maxResponseBodySize = 1 << 20

const (
	statusPath = "/status"
	askPath    = "/ask"
)

// HTTP/2 connection health checks. A connection that has been silent for
// readIdleTimeout is pinged and closed if no ack arrives within pingTimeout,
// so the once-a-second status poll never sticks to a dead connection.
const (
	readIdleTimeout = 30 * time.Second
	pingTimeout     = 15 * time.Second
)

// AskRequest is the body posted to the ask endpoint.
type AskRequest struct {
	Question string        `json:"question"`
	Context  domain.Status `json:"context"`
}

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Endpoint string
	Code     int
	Message  string // "error" field of the body, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Endpoint, e.Code)
}

// Client talks to the backend. It sets no request timeout: a hung request
// stays in flight until its context is cancelled.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the backend rooted at baseURL.
// A nil httpClient selects http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// NewHTTPClient returns an HTTP client that speaks HTTP/2 to TLS backends
// and health-checks idle HTTP/2 connections with PING frames.
// tlsConfig may be nil.
func NewHTTPClient(tlsConfig *tls.Config) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       tlsConfig.Clone(),
	}

	h2, err := http2.ConfigureTransports(transport)
	if err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	h2.ReadIdleTimeout = readIdleTimeout
	h2.PingTimeout = pingTimeout

	return &http.Client{Transport: transport}, nil
}

// FetchStatus retrieves the current detection snapshot.
func (c *Client) FetchStatus(ctx context.Context) (domain.Status, error) {
	var status domain.Status
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return status, fmt.Errorf("build status request: %w", err)
	}
	if err := c.do(req, statusPath, &status); err != nil {
		return domain.Status{}, err
	}
	return status, nil
}

// Ask submits a question with the given status as context.
func (c *Client) Ask(ctx context.Context, ask AskRequest) (domain.Answer, error) {
	var answer domain.Answer
	body, err := json.Marshal(ask)
	if err != nil {
		return answer, fmt.Errorf("encode ask request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(body))
	if err != nil {
		return answer, fmt.Errorf("build ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, askPath, &answer); err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Message: errorMessage(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

// IsStatusError reports whether err is a non-2xx backend response.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
