// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package proxy contains the signing reverse proxy. Local callers talk plain
// HTTP to it; every request it relays upstream carries the x-colt-app-id and
// x-colt-app-sig headers for the configured application.
package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/perfrec-auth/pkg/auth"
	"github.com/go-core-stack/perfrec-auth/pkg/config"
)

// hopHeaders lists standard hop-by-hop headers that must be stripped before a
// request is proxied so the upstream connection semantics remain correct.
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Proxy-Connection":    {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// Proxy forwards local requests to the upstream API and signs each one.
type Proxy struct {
	// cfg keeps runtime knobs such as the upstream URL and the app credentials.
	cfg config.ProxyConfig
	// client performs outbound HTTP requests with tuned transport settings.
	client *http.Client
	// signer computes the time-bucketed HMAC headers.
	signer *auth.Signer
	// logger emits structured logs for observability.
	logger zerolog.Logger
	// baseURL is the parsed upstream address used to resolve inbound paths.
	baseURL *url.URL
}

// New constructs a Proxy backed by an http.Client configured with sensible
// connection pooling defaults and the provided runtime configuration.
func New(cfg config.ProxyConfig) (http.Handler, error) {
	// Build a transport that honours system proxies and keeps connections warm.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, // nolint:gosec -- opt-in for development scenarios
		},
	}

	client := &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	}

	signer := auth.NewSigner(cfg.AppID, cfg.AppKey)

	handler := &Proxy{
		cfg:     cfg,
		client:  client,
		signer:  signer,
		logger:  log.With().Str("component", "proxy").Logger(),
		baseURL: cloneURL(cfg.Upstream),
	}

	return handler, nil
}

// ServeHTTP streams the signed request/response pair to and from the upstream.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	event := p.logger.With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_addr", r.RemoteAddr).
		Logger()

	resp, err := p.forwardRequest(r, event)
	if err != nil {
		status := http.StatusBadGateway
		var httpErr *httpError
		if errors.As(err, &httpErr) {
			status = httpErr.Status
		}
		http.Error(w, http.StatusText(status), status)
		event.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("request failed")
		return
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			event.Error().
				Err(closeErr).
				Msg("close upstream response body failed")
		}
	}()

	// Default to streaming the upstream body unless we need to inspect errors.
	var bodyReader io.Reader = resp.Body
	if resp.StatusCode >= http.StatusBadRequest {
		const maxLogBody = 64 * 1024 // limit to a manageable payload for logs.
		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLogBody))
		if readErr != nil {
			event.Error().
				Err(readErr).
				Int("status", resp.StatusCode).
				Msg("failed to read upstream error body")
		} else {
			event.Warn().
				Int("status", resp.StatusCode).
				Bytes("upstream_body", payload).
				Msg("upstream returned error")
			bodyReader = bytes.NewReader(payload)
		}
	}

	cleanHopHeaders(resp.Header)
	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if _, copyErr := io.Copy(w, bodyReader); copyErr != nil {
		event.Error().
			Err(copyErr).
			Dur("duration", time.Since(start)).
			Msg("stream response failed")
		return
	}

	event.Info().
		Dur("duration", time.Since(start)).
		Msg("request proxied")
}

// forwardRequest clones the inbound request, augments headers, signs it over
// the buffered body, and returns the upstream response for the caller to
// stream back.
func (p *Proxy) forwardRequest(r *http.Request, event zerolog.Logger) (*http.Response, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, auth.DefaultMaxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(bodyBytes)) > auth.DefaultMaxBody {
		return nil, &httpError{Status: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")}
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			event.Error().
				Err(err).
				Msg("close request body failed")
		}
	}()

	targetURL := p.singleJoiningURL(r.URL)

	upstreamReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	copyHeaders(upstreamReq.Header, r.Header)
	cleanHopHeaders(upstreamReq.Header)
	augmentForwardHeaders(upstreamReq.Header, r)

	// Callers must not smuggle their own credentials through.
	upstreamReq.Header.Del(auth.HeaderAppID)
	upstreamReq.Header.Del(auth.HeaderSignature)

	upstreamReq.Host = targetURL.Host

	if err := p.signer.AttachSignature(upstreamReq, bodyBytes); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, &httpError{Status: http.StatusGatewayTimeout, Err: err}
		default:
			var netErr net.Error
			if errors.As(err, &netErr); netErr != nil && netErr.Timeout() {
				return nil, &httpError{Status: http.StatusGatewayTimeout, Err: err}
			}
		}
		return nil, fmt.Errorf("perform upstream request: %w", err)
	}

	return resp, nil
}

// singleJoiningURL resolves the incoming path relative to the configured base.
func (p *Proxy) singleJoiningURL(requestURL *url.URL) *url.URL {
	ref := &url.URL{
		Path:     requestURL.Path,
		RawPath:  requestURL.RawPath,
		RawQuery: requestURL.RawQuery,
		Fragment: requestURL.Fragment,
	}
	target := p.baseURL.ResolveReference(ref)
	return target
}

// cloneURL makes a shallow copy of the provided URL pointer.
func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// copyHeaders appends all headers from src into dst.
func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// cleanHopHeaders removes hop-by-hop headers that should not be forwarded.
func cleanHopHeaders(h http.Header) {
	for k := range hopHeaders {
		h.Del(k)
	}
}

// augmentForwardHeaders ensures X-Forwarded-* headers capture client metadata.
func augmentForwardHeaders(h http.Header, r *http.Request) {
	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		prior := r.Header.Get("X-Forwarded-For")
		if prior != "" {
			clientIP = prior + ", " + clientIP
		}
		h.Set("X-Forwarded-For", clientIP)
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		h.Set("X-Forwarded-Proto", scheme)
	} else {
		h.Set("X-Forwarded-Proto", "http")
	}
	h.Set("X-Forwarded-Host", r.Host)
}

// copyResponseHeaders mirrors headers from the upstream response to the writer.
func copyResponseHeaders(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// httpError wraps a status code with the underlying error from the upstream round trip.
type httpError struct {
	Status int   // Status preserves the HTTP status to emit downstream.
	Err    error // Err retains the original cause for logging.
}

// Error implements the error interface for httpError.
func (e *httpError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Status, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As checks.
func (e *httpError) Unwrap() error {
	return e.Err
}
