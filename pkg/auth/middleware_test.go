// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	now := at("2024-01-31T23:58:00Z")
	v := newTestVerifier(t, WithClock(func() time.Time { return now }))

	var (
		gotBody     string
		gotIdentity string
		calls       int
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(b)
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		gotIdentity = id.AppID
		w.WriteHeader(http.StatusNoContent)
	})
	h := v.Middleware(0, next)

	tests := []struct {
		name       string
		appID      string
		sig        string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"valid", "test", sigRecommendation2024013123, recommendationBody, http.StatusNoContent, ""},
		{"unknown app", "ghost", sigRecommendation2024013123, recommendationBody, http.StatusNotFound, "Unrecognised AppId"},
		{"missing signature", "test", "", recommendationBody, http.StatusPaymentRequired, "Missing signature"},
		{"bad signature", "test", sigRecommendation2024013123, recommendationBody + " ", http.StatusForbidden, "Bad signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			req := httptest.NewRequest(http.MethodPost, "http://api.example.com/recommendation", strings.NewReader(tt.body))
			req.Header.Set(HeaderAppID, tt.appID)
			if tt.sig != "" {
				req.Header.Set(HeaderSignature, tt.sig)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg == "" {
				assert.Equal(t, 1, calls)
				assert.Equal(t, tt.body, gotBody)
				assert.Equal(t, tt.appID, gotIdentity)
				return
			}

			assert.Equal(t, 0, calls)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var rejection Rejection
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejection))
			assert.Equal(t, tt.wantStatus, rejection.Status)
			assert.Equal(t, tt.wantMsg, rejection.Message)
			assert.NotContains(t, rec.Body.String(), "test123test")
		})
	}
}

func TestMiddlewareRejectsOversizedBody(t *testing.T) {
	v := newTestVerifier(t)
	h := v.Middleware(8, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "http://api.example.com/recommendation", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var rejection Rejection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejection))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rejection.Status)
	assert.Equal(t, "Request Entity Too Large", rejection.Message)
}
