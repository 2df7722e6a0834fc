package models

import (
	"fmt"
	"strings"
	"time"
)

// Resolution maps a normalized track key to the identifier it resolved to on a destination catalog.
type Resolution struct {
	id         string
	Key        string
	Service    string
	Identifier string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewResolution builds a [Resolution] with the given id and timestamps set to now.
func NewResolution(id, key, service, identifier string) *Resolution {
	now := time.Now().UTC()
	return &Resolution{id: id, Key: key, Service: service, Identifier: identifier, createdAt: now, updatedAt: now}
}

// RestoreResolution rebuilds a persisted [Resolution].
func RestoreResolution(id, key, service, identifier string, createdAt, updatedAt time.Time) *Resolution {
	return &Resolution{id: id, Key: key, Service: service, Identifier: identifier, createdAt: createdAt, updatedAt: updatedAt}
}

func (r *Resolution) ID() string           { return r.id }
func (r *Resolution) CreatedAt() time.Time { return r.createdAt }
func (r *Resolution) UpdatedAt() time.Time { return r.updatedAt }

// Touch bumps the update timestamp.
func (r *Resolution) Touch() { r.updatedAt = time.Now().UTC() }

func (r *Resolution) Validate() error {
	switch {
	case r.id == "":
		return fmt.Errorf("resolution id is required")
	case r.Key == "":
		return fmt.Errorf("resolution key is required")
	case strings.TrimSpace(r.Identifier) == "":
		return fmt.Errorf("resolution identifier is required")
	}
	if _, err := ParseService(r.Service); err != nil {
		return err
	}
	return nil
}
