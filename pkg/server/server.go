// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package server exposes the recommendation API. Every route except /sign
// requires a valid x-colt-app-id / x-colt-app-sig pair; /sign is the signing
// delegation endpoint for clients that do not compute signatures locally.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/perfrec-auth/pkg/auth"
)

// Server wires the verifier in front of the API handlers.
type Server struct {
	verifier *auth.Verifier
	store    *RecommendationStore
	maxBody  int64
	now      func() time.Time
	logger   zerolog.Logger
	router   *mux.Router
}

// New builds the API. maxBody bounds request bodies (auth.DefaultMaxBody when
// <= 0).
func New(verifier *auth.Verifier, maxBody int64) *Server {
	if maxBody <= 0 {
		maxBody = auth.DefaultMaxBody
	}

	s := &Server{
		verifier: verifier,
		store:    NewRecommendationStore(),
		maxBody:  maxBody,
		now: func() time.Time {
			return time.Now().UTC()
		},
		logger: log.With().Str("component", "server").Logger(),
	}

	router := mux.NewRouter()
	router.Use(s.accessLog)
	router.HandleFunc("/sign", s.handleSign).Methods(http.MethodPost)

	signed := router.NewRoute().Subrouter()
	signed.Use(func(next http.Handler) http.Handler {
		return verifier.Middleware(maxBody, next)
	})
	signed.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	signed.HandleFunc("/recommendation", s.handlePostRecommendation).Methods(http.MethodPost)
	signed.HandleFunc("/recommendation/{id:[0-9]+}", s.handleGetRecommendation).Methods(http.MethodGet)

	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SignRequest is the body of POST /sign. Plaintext is either a JSON string,
// used verbatim, or any other JSON value, signed as its compact text.
type SignRequest struct {
	Plaintext json.RawMessage `json:"plaintext"`
	Key       string          `json:"key"`
	Path      string          `json:"path"`
}

// SignResponse is the body returned by POST /sign.
type SignResponse struct {
	Signature string `json:"signature"`
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, s.maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed sign request")
		return
	}
	if req.Key == "" || req.Path == "" {
		writeError(w, http.StatusBadRequest, "key and path are required")
		return
	}

	body, err := plaintextBody(req.Plaintext)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed plaintext")
		return
	}

	sig, err := auth.SignAt(body, req.Path, req.Key, s.now())
	if err != nil {
		auth.WriteRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SignResponse{Signature: sig})
}

// plaintextBody maps the delegated plaintext to the value the signer sees.
// Objects keep their key order; only insignificant whitespace is removed.
func plaintextBody(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, err
		}
		return text, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	return buf.String(), nil
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status       string `json:"status"`
	AppID        string `json:"app_id"`
	CustomerName string `json:"customer_name"`
	CustomerID   string `json:"custid"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:       "ok",
		AppID:        id.AppID,
		CustomerName: id.CustomerName,
		CustomerID:   id.CustomerID,
	})
}

// RecommendationRequest is the body of POST /recommendation.
type RecommendationRequest struct {
	ServiceID       string `json:"service_id"`
	BandwidthChange int    `json:"bandwidth_change"`
	Action          string `json:"action"`
}

func (s *Server) handlePostRecommendation(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed recommendation")
		return
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}
	if req.Action != ActionIncrease && req.Action != ActionDecrease {
		writeError(w, http.StatusBadRequest, "action must be "+ActionIncrease+" or "+ActionDecrease)
		return
	}

	rec := s.store.Add(Recommendation{
		ServiceID:       req.ServiceID,
		BandwidthChange: req.BandwidthChange,
		Action:          req.Action,
		AppID:           id.AppID,
		CustomerID:      id.CustomerID,
		CreatedAt:       s.now(),
	})

	s.logger.Info().
		Object("identity", id).
		Int64("recommendation_id", rec.ID).
		Str("action", rec.Action).
		Msg("recommendation accepted")

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	recID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recommendation id")
		return
	}

	rec, err := s.store.Get(id.CustomerID, recID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errRecommendationNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, auth.Rejection{Status: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
