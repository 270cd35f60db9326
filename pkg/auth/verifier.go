// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/perfrec-auth/pkg/keys"
)

// Resolver looks up an application identity by id. *keys.Directory
// satisfies it.
type Resolver interface {
	Resolve(appID string) (keys.Identity, error)
}

// Verifier recomputes request signatures against a read-only key directory.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	resolver Resolver
	window   int
	now      func() time.Time
	logger   zerolog.Logger
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithWindow sets the clock-skew tolerance in minutes.
func WithWindow(minutes int) Option {
	return func(v *Verifier) { v.window = minutes }
}

// WithClock replaces the wall clock used by VerifyRequest.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

// NewVerifier builds a verifier over resolver with DefaultWindow tolerance.
func NewVerifier(resolver Resolver, opts ...Option) *Verifier {
	v := &Verifier{
		resolver: resolver,
		window:   DefaultWindow,
		now: func() time.Time {
			return time.Now().UTC()
		},
		logger: log.With().Str("component", "verifier").Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Window reports the configured tolerance in minutes.
func (v *Verifier) Window() int {
	return v.window
}

// Verify checks sig for the request identified by appID, path and body at
// time now and returns the caller's identity on success.
//
// Candidates are tried in CandidateBuckets order: current bucket, next, then
// previous. Failures are terminal and are returned as *Error.
func (v *Verifier) Verify(sig, appID, path string, body any, now time.Time) (keys.Identity, error) {
	logger := v.logger.With().Str("app_id", appID).Str("path", path).Logger()

	identity, err := v.resolver.Resolve(appID)
	if err != nil {
		if !errors.Is(err, keys.ErrNotFound) {
			logger.Error().Err(err).Msg("key directory lookup failed")
		}
		logger.Info().Msg("unrecognised app id")
		return keys.Identity{}, ErrUnknownApp
	}

	if sig == "" {
		logger.Info().Msg("request carries no signature")
		return keys.Identity{}, ErrMissingSignature
	}

	digest, err := BodyDigest(body, identity.Key)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot canonicalize request body")
		return keys.Identity{}, err
	}

	for _, bucket := range CandidateBuckets(now, v.window) {
		expected := envelopeSignature(bucket, path, digest, identity.Key)
		matched := equalSignatures(sig, expected)
		logger.Debug().
			Str("bucket", bucket.String()).
			Bool("match", matched).
			Msg("checked candidate bucket")
		if matched {
			logger.Debug().Msg("signature ok")
			return identity, nil
		}
	}

	logger.Info().Msg("signature does not match any candidate bucket")
	return keys.Identity{}, ErrBadSignature
}

// VerifyRequest reads the auth headers from r and verifies them against body
// using the verifier's clock. The signed path is the request URI.
func (v *Verifier) VerifyRequest(r *http.Request, body []byte) (keys.Identity, error) {
	return v.Verify(
		r.Header.Get(HeaderSignature),
		r.Header.Get(HeaderAppID),
		r.URL.RequestURI(),
		body,
		v.now(),
	)
}
