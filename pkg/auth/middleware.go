// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-core-stack/perfrec-auth/pkg/keys"
)

// DefaultMaxBody bounds the request body buffered for verification.
const DefaultMaxBody int64 = 1 << 20

type identityKey struct{}

// IdentityFromContext returns the identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (keys.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(keys.Identity)
	return id, ok
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id keys.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Rejection is the JSON payload written for a failed verification.
type Rejection struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// WriteRejection renders err with its suggested status code.
func WriteRejection(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	message := http.StatusText(status)

	var authErr *Error
	if errors.As(err, &authErr) {
		status = authErr.SuggestedResponseCode()
		message = authErr.Message
	}
	writeRejection(w, status, message)
}

func writeRejection(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Rejection{Status: status, Message: message})
}

// Middleware verifies every request before handing it to next. The body is
// buffered (up to maxBody bytes, DefaultMaxBody when <= 0) and replayed for
// next; the resolved identity is available via IdentityFromContext.
func (v *Verifier) Middleware(maxBody int64, next http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			v.logger.Error().Err(err).Msg("read request body failed")
			WriteRejection(w, encodingError(err))
			return
		}
		if int64(len(body)) > maxBody {
			writeRejection(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
			return
		}

		identity, err := v.VerifyRequest(r, body)
		if err != nil {
			WriteRejection(w, err)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
