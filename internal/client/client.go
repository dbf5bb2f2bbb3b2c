// Package client is a typed SDK for the ticketing API.  It turns the
// {"error","code"} envelope back into the domain sentinel errors so
// callers can match them with errors.Is, and layers the payment bridge,
// the booking status resolver and the role gate on top of the raw calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/domain"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8080".  The /v1
	// prefix is added by the client.
	BaseURL string
	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client
	// Clock is used to resolve booking status; defaults to the system clock.
	Clock clock.Clock
}

// Client talks to one API server on behalf of one user.
type Client struct {
	baseURL string
	hc      *http.Client
	clock   clock.Clock

	mu    sync.RWMutex
	token string
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), hc: hc, clock: clk}, nil
}

// SetToken sets the bearer access token sent with every request.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// Token returns the current access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError is a non-2xx response.  It unwraps to the domain sentinel
// named by Code when there is one.
type APIError struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

// decodeError builds the error for a non-2xx response.  Known codes map
// to their sentinel; an unrecognised 5xx means the upstream is unavailable.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.Unmarshal(body, &env)
	apiErr := &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Error}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	apiErr.err = domain.ErrorForCode(env.Code)
	if apiErr.err == nil && resp.StatusCode >= 500 {
		apiErr.err = domain.ErrUpstreamUnavailable
	}
	return apiErr
}

// do sends one JSON request.  in may be nil; out may be nil when the
// response body is not needed.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		bs, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/v1"+path, body)
	if err != nil {
		return fmt.Errorf("client: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(domain.ErrUpstreamUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, errors.Join(domain.ErrUpstreamUnavailable, err))
	}
	return nil
}
