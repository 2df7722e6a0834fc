package models

import "strings"

// Track is one playlist entry as exposed by a catalog.
type Track struct {
	Service    Service  `json:"service"`
	ExternalID string   `json:"id"`               // catalog track/video id
	URI        string   `json:"uri,omitempty"`    // catalog URI or link, may be empty
	Title      string   `json:"title"`            // raw title
	Artists    []string `json:"artists"`          // credited names in catalog order
	Handle     string   `json:"handle,omitempty"` // playlist membership id, needed to remove the entry (YouTube playlist item id)
}

// ArtistLine joins the credited names for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Playlist holds playlist metadata.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}

// Candidate is a link proposed by the web search for a track.
type Candidate struct {
	URL        string
	Title      string
	Collection bool // link points at a playlist or album rather than a single track
}
