// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package keys

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned by Resolve for an unknown application id.
var ErrNotFound = errors.New("app id not found")

// Directory is an immutable appid -> Identity lookup table. It is safe for
// concurrent use without locking.
type Directory struct {
	byID map[string]Identity
}

// NewDirectory validates ids and builds a directory. Every identity needs an
// app id and a key, and app ids must be unique.
func NewDirectory(ids []Identity) (*Directory, error) {
	byID := make(map[string]Identity, len(ids))
	for idx, id := range ids {
		if id.AppID == "" {
			return nil, fmt.Errorf("identity[%d]: appid is required", idx)
		}
		if id.Key == "" {
			return nil, fmt.Errorf("identity %q: key is required", id.AppID)
		}
		if _, dup := byID[id.AppID]; dup {
			return nil, fmt.Errorf("identity %q: duplicate appid", id.AppID)
		}
		byID[id.AppID] = id
	}
	return &Directory{byID: byID}, nil
}

// Resolve returns the identity registered under appID.
func (d *Directory) Resolve(appID string) (Identity, error) {
	id, ok := d.byID[appID]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return id, nil
}

// Len reports the number of identities.
func (d *Directory) Len() int {
	return len(d.byID)
}

// AppIDs lists the registered app ids in sorted order.
func (d *Directory) AppIDs() []string {
	out := make([]string, 0, len(d.byID))
	for id := range d.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
