// Package httpx is the JSON transport shared by provider adapters: bearer
// auth, a single 401-triggered token refresh-and-retry, and bounded
// exponential backoff on transient failures.
package httpx

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

	"github.com/cenkalti/backoff/v4"
)

// TokenSource supplies the bearer token and refreshes it after a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for fixed API keys; Refresh hands back the
// same key.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error)   { return string(s), nil }
func (s StaticToken) Refresh(context.Context) (string, error) { return string(s), nil }

// HTTPError is a non-2xx response with its body retained, so callers can
// pull provider-reported details (amount bounds, error codes) out of it.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string { return fmt.Sprintf("status %d", e.Status) }

var errRetryAfterRefresh = errors.New("retry after token refresh")

type Client struct {
	HTTP    *http.Client
	BaseURL string
	Tokens  TokenSource
}

func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u, err := c.resolve(path, params)
	if err != nil {
		return err
	}
	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpx: encode body: %w", err)
		}
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second

	refreshed := false
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.Tokens != nil {
			tok, err := c.Tokens.Token(ctx)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("httpx: token: %w", err))
			}
			if tok != "" {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error %d", resp.StatusCode)
		case resp.StatusCode == http.StatusUnauthorized:
			// One refresh-and-retry; a second 401 is final.
			if refreshed || c.Tokens == nil {
				return backoff.Permanent(&HTTPError{Status: resp.StatusCode})
			}
			refreshed = true
			if _, err := c.Tokens.Refresh(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("httpx: refresh token: %w", err))
			}
			return errRetryAfterRefresh
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
			return backoff.Permanent(&HTTPError{Status: resp.StatusCode, Body: b})
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("httpx: decode response: %w", err))
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(exp, ctx))
}

func (c *Client) resolve(path string, params url.Values) (string, error) {
	raw := path
	if c.BaseURL != "" {
		raw = strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("httpx: invalid url %q: %w", raw, err)
	}
	if params != nil {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
