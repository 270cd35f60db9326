// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package keys

import (
	"github.com/rs/zerolog"
)

// Identity is one known application. Only AppID and Key take part in
// authentication; the rest is business context passed through to handlers.
type Identity struct {
	CustomerName string  `json:"customer_name"`
	AppID        string  `json:"appid"`
	Key          string  `json:"key"`
	CustomerID   string  `json:"custid"`
	OCN          string  `json:"ocn"`
	Currency     string  `json:"currency"`
	PricingTier  string  `json:"pricing_tier"`
	Region       string  `json:"region"`
	Discount     float64 `json:"discount"`
}

// MarshalZerologObject logs the identity without its key.
func (i Identity) MarshalZerologObject(e *zerolog.Event) {
	e.Str("appid", i.AppID).
		Str("customer_name", i.CustomerName).
		Str("custid", i.CustomerID).
		Str("region", i.Region)
}

// String implements fmt.Stringer without exposing the key.
func (i Identity) String() string {
	return i.AppID + " (" + i.CustomerName + ")"
}

// Defaults returns the built-in identities used when no external source is
// present.
func Defaults() []Identity {
	return []Identity{
		{CustomerName: "Simon", AppID: "simon", Key: "simonrocks", CustomerID: "c_simon", OCN: "A1234", Currency: "GBP", Region: "EU"},
		{CustomerName: "Test", AppID: "test", Key: "test123test", CustomerID: "c_test", OCN: "A1235", Currency: "GBP", Region: "EU"},
	}
}
