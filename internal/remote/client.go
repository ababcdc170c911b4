// Package remote is the REST client for the loyalty backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"salun/internal/metrics"
	"salun/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxBodySize = 8 << 20

// Client calls the backend with a bearer credential. Every request is
// bounded by the client timeout in addition to the caller's context.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		client:  &http.Client{},
		log:     log.With().Str("component", "remote").Logger(),
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Method: method, Path: path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RequestDuration.WithLabelValues(method, "error").Observe(time.Since(start).Seconds())
		c.log.Debug().Err(err).Str("request_id", reqID).Str("method", method).Str("path", path).Msg("request failed")
		return &Error{Method: method, Path: path, Retryable: transient(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	c.log.Debug().
		Str("request_id", reqID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("request")
	if err != nil {
		metrics.RequestDuration.WithLabelValues(method, "error").Observe(elapsed.Seconds())
		return &Error{Method: method, Path: path, Status: resp.StatusCode, Retryable: true, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metrics.RequestDuration.WithLabelValues(method, "ok").Observe(elapsed.Seconds())
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := decode(raw, out); err != nil {
			return &Error{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	metrics.RequestDuration.WithLabelValues(method, fmt.Sprintf("%dxx", resp.StatusCode/100)).Observe(elapsed.Seconds())
	e := &Error{Method: method, Path: path, Status: resp.StatusCode, Message: messageOf(raw)}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		e.Err = ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		e.Err = ErrForbidden
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout:
		e.Retryable = true
	}
	return e
}

// transient reports whether a transport error is worth retrying. A caller
// cancellation is not.
func transient(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// messageOf extracts {"message": ...} or {"error": ...} from an error body.
func messageOf(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func decode(raw []byte, out any) error {
	switch v := out.(type) {
	case *store.Entity:
		e, err := store.DecodeEntity(raw)
		if err != nil {
			return err
		}
		*v = e
		return nil
	case *[]store.Entity:
		list, err := decodeList(raw)
		if err != nil {
			return err
		}
		*v = list
		return nil
	}
	return json.Unmarshal(raw, out)
}

// decodeList accepts a bare array or an object wrapping one array field,
// e.g. {"barcodes": [...]}.
func decodeList(raw []byte) ([]store.Entity, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		for _, v := range wrapped {
			v = bytes.TrimSpace(v)
			if len(v) > 0 && v[0] == '[' {
				return store.DecodeEntities(v)
			}
		}
		return []store.Entity{}, nil
	}
	if string(trimmed) == "null" {
		return []store.Entity{}, nil
	}
	return store.DecodeEntities(trimmed)
}
