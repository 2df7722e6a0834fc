package models

import (
	"fmt"
	"time"
)

// SyncRun records the outcome of one sync run.
type SyncRun struct {
	id             string
	SourceService  string
	SourcePlaylist string
	DestService    string
	DestPlaylist   string
	Missing        int
	Resolved       int
	Unresolved     int
	Pending        int
	Mode           string
	ExportPath     string
	createdAt      time.Time
}

// NewSyncRun builds a [SyncRun] stamped with the current time.
func NewSyncRun(id string) *SyncRun {
	return &SyncRun{id: id, createdAt: time.Now().UTC()}
}

// RestoreSyncRun rebuilds a persisted [SyncRun].
func RestoreSyncRun(id string, createdAt time.Time) *SyncRun {
	return &SyncRun{id: id, createdAt: createdAt}
}

func (r *SyncRun) ID() string           { return r.id }
func (r *SyncRun) CreatedAt() time.Time { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time { return r.createdAt }

func (r *SyncRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("run id is required")
	}
	if r.SourcePlaylist == "" || r.DestPlaylist == "" {
		return fmt.Errorf("run playlists are required")
	}
	if r.Mode == "" {
		return fmt.Errorf("run mode is required")
	}
	return nil
}
