// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package server

import (
	"errors"
	"sync"
	"time"
)

// Bandwidth actions accepted on a recommendation.
const (
	ActionIncrease = "INCREASE_BANDWIDTH"
	ActionDecrease = "DECREASE_BANDWIDTH"
)

var errRecommendationNotFound = errors.New("recommendation not found")

// Recommendation is a bandwidth change proposed by an authenticated app.
type Recommendation struct {
	ID              int64     `json:"id"`
	ServiceID       string    `json:"service_id"`
	BandwidthChange int       `json:"bandwidth_change"`
	Action          string    `json:"action"`
	AppID           string    `json:"app_id"`
	CustomerID      string    `json:"custid"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecommendationStore keeps recommendations in memory, scoped per customer.
type RecommendationStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Recommendation
}

// NewRecommendationStore returns an empty store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{items: make(map[int64]Recommendation)}
}

// Add assigns an id to rec and stores it.
func (s *RecommendationStore) Add(rec Recommendation) Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	s.items[rec.ID] = rec
	return rec
}

// Get returns the recommendation with id if it belongs to customerID.
func (s *RecommendationStore) Get(customerID string, id int64) (Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[id]
	if !ok || rec.CustomerID != customerID {
		return Recommendation{}, errRecommendationNotFound
	}
	return rec, nil
}
