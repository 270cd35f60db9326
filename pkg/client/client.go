// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package client calls the recommendation API with signed requests. The
// signature is obtained from the service's /sign endpoint by default, or
// computed locally when Local is set; both produce the same value.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/perfrec-auth/pkg/auth"
)

const (
	ActionIncrease = "INCREASE_BANDWIDTH"
	ActionDecrease = "DECREASE_BANDWIDTH"
)

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// Client talks to one API host as one application.
type Client struct {
	BaseURL *url.URL
	AppID   string
	Key     string
	Local   bool
	HTTP    *http.Client
	Now     func() time.Time
	logger  zerolog.Logger
}

// New constructs a client for the API at host (scheme://host[:port], with an
// optional path prefix that is kept in front of every API path).
func New(host, appID, key string) (*Client, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("host %q must be absolute (scheme://host)", host)
	}

	return &Client{
		BaseURL: base,
		AppID:   appID,
		Key:     key,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Now: func() time.Time {
			return time.Now().UTC()
		},
		logger: log.With().Str("component", "client").Logger(),
	}, nil
}

type signRequest struct {
	Plaintext json.RawMessage `json:"plaintext"`
	Key       string          `json:"key"`
	Path      string          `json:"path"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

// RemoteSign asks the service to sign body for path. body is sent as the
// JSON string plaintext, so the service signs exactly these bytes.
func (c *Client) RemoteSign(ctx context.Context, body []byte, path string) (string, error) {
	plaintext, err := json.Marshal(string(body))
	if err != nil {
		return "", fmt.Errorf("encode plaintext: %w", err)
	}

	payload, err := json.Marshal(signRequest{Plaintext: plaintext, Key: c.Key, Path: path})
	if err != nil {
		return "", fmt.Errorf("encode sign request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.resolve("/sign"), payload, nil)
	if err != nil {
		return "", fmt.Errorf("remote sign: %w", err)
	}

	var resp signResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if resp.Signature == "" {
		return "", fmt.Errorf("remote sign: empty signature")
	}
	return resp.Signature, nil
}

// Status calls GET /status.
func (c *Client) Status(ctx context.Context) (json.RawMessage, error) {
	return c.signed(ctx, http.MethodGet, "/status", nil)
}

// GetRecommendation calls GET /recommendation/{id}.
func (c *Client) GetRecommendation(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.signed(ctx, http.MethodGet, "/recommendation/"+strconv.FormatInt(id, 10), nil)
}

// PostRecommendation proposes a bandwidth change for serviceID. A positive
// change is an increase, anything else a decrease.
func (c *Client) PostRecommendation(ctx context.Context, serviceID string, change int) (json.RawMessage, error) {
	action := ActionDecrease
	if change > 0 {
		action = ActionIncrease
	}

	body, err := json.Marshal(struct {
		ServiceID       string `json:"service_id"`
		BandwidthChange int    `json:"bandwidth_change"`
		Action          string `json:"action"`
	}{serviceID, change, action})
	if err != nil {
		return nil, fmt.Errorf("encode recommendation: %w", err)
	}
	return c.signed(ctx, http.MethodPost, "/recommendation", body)
}

func (c *Client) signed(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	target := c.resolve(path)
	signedPath := target.RequestURI()

	var (
		sig string
		err error
	)
	if c.Local {
		sig, err = auth.SignAt(body, signedPath, c.Key, c.Now())
	} else {
		sig, err = c.RemoteSign(ctx, body, signedPath)
	}
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set(auth.HeaderAppID, c.AppID)
	headers.Set(auth.HeaderSignature, sig)

	return c.do(ctx, method, target, body, headers)
}

// resolve appends path to the base URL's own path.
func (c *Client) resolve(path string) *url.URL {
	target := *c.BaseURL
	target.Path = strings.TrimSuffix(c.BaseURL.Path, "/") + path
	target.RawPath = ""
	target.RawQuery = ""
	target.Fragment = ""
	return &target
}

func (c *Client) do(ctx context.Context, method string, target *url.URL, body []byte, headers http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vv := range headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error().Err(err).Msg("close response body failed")
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", target.String()).
		Int("status", resp.StatusCode).
		Msg("api call")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
