// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	HeaderAppID     = "x-colt-app-id"
	HeaderSignature = "x-colt-app-sig"
)

// Signer produces the app-id/signature header pair for outbound requests.
type Signer struct {
	AppID string
	Key   string
	Now   func() time.Time
}

// NewSigner constructs a signer with the provided app id/key and a UTC clock.
func NewSigner(appID, key string) *Signer {
	return &Signer{
		AppID: appID,
		Key:   key,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Sign computes the signature for body and path in the current hour bucket.
func Sign(body any, path, key string) (string, error) {
	return SignAt(body, path, key, time.Now())
}

// SignAt computes the signature for body and path in the bucket containing t:
//
//	HMAC(bucket ++ path ++ HMAC(canonical(body), key), key)
//
// both base64 encoded.
func SignAt(body any, path, key string, t time.Time) (string, error) {
	digest, err := BodyDigest(body, key)
	if err != nil {
		return "", err
	}
	bucket := BucketOf(t)
	sig := envelopeSignature(bucket, path, digest, key)

	log.Debug().
		Str("bucket", bucket.String()).
		Str("path", path).
		Str("body_digest", digest).
		Msg("signed request")

	return sig, nil
}

// Sign computes the signature using the signer's key and clock.
func (s *Signer) Sign(body any, path string) (string, error) {
	return SignAt(body, path, s.Key, s.Now())
}

// AttachSignature injects the auth headers for req. body must be the exact
// payload that will be sent; the signed path is the request URI (path plus
// query).
func (s *Signer) AttachSignature(req *http.Request, body []byte) error {
	if s.AppID == "" || s.Key == "" {
		return fmt.Errorf("signer app id and key must be set")
	}

	sig, err := s.Sign(body, req.URL.RequestURI())
	if err != nil {
		return fmt.Errorf("compute signature: %w", err)
	}

	req.Header.Set(HeaderAppID, s.AppID)
	req.Header.Set(HeaderSignature, sig)

	return nil
}
