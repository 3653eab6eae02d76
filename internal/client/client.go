// Package client is the typed REST client for the ISHARE wallet backend.
// Every method is a thin call: attach the credential, hit the endpoint,
// decode the documented envelope. Each endpoint has exactly one envelope;
// a response that does not match it fails with *wallet.EnvelopeError rather
// than being sniffed for alternative shapes.
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
	"time"

	"github.com/atdata/ishare/internal/session"
	"github.com/atdata/ishare/internal/wallet"
)

const maxResponseBytes = 1 << 20

// Config carries the transport settings. APIKey is the programmatic
// credential (X-API-Key); the bearer token comes from the session store.
type Config struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// Client talks to the wallet backend. It reads the session store for the
// bearer token and clears it when the backend rejects the credential; it
// never writes session state otherwise except through Login/Register/Logout.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	store   *session.Store
}

func New(cfg Config, store *session.Store) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		store:   store,
	}
}

// do performs one round trip. Transport failures (including deadline expiry
// and cancellation) map to wallet.ErrNetworkUnavailable; a 401 clears the
// session and maps to wallet.ErrUnauthorized; any other non-2xx status maps
// to *wallet.RejectedError carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", wallet.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", wallet.ErrNetworkUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.store != nil {
			_ = c.store.Clear()
		}

		return fmt.Errorf("%w: %s", wallet.ErrUnauthorized, errorMessage(data))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &wallet.RejectedError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return &wallet.EnvelopeError{Endpoint: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	return nil
}

// authorize attaches the bearer token when a session exists, else the API
// key. Both credentials are accepted by the same endpoints.
func (c *Client) authorize(req *http.Request) {
	if c.store != nil {
		sess, err := c.store.Load()
		if err == nil && sess.Token != "" {
			req.Header.Set("Authorization", "Bearer "+sess.Token)

			return
		}
	}

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

// errorMessage extracts the server message from an error envelope: a JSON
// body with an "error" or "message" field, falling back to the raw text.
func errorMessage(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	err := json.Unmarshal(body, &env)
	if err == nil {
		if env.Error != "" {
			return env.Error
		}

		if env.Message != "" {
			return env.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "request failed"
	}

	return msg
}

// IsAuthenticated reports whether a stored session exists.
func (c *Client) IsAuthenticated() bool {
	if c.store == nil {
		return false
	}

	_, err := c.store.Load()

	return err == nil
}

// Unauthorized reports whether err is the credential-rejection error.
func Unauthorized(err error) bool {
	return errors.Is(err, wallet.ErrUnauthorized)
}
