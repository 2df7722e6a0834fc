package models

// PlaylistExport is a playlist together with its tracks.
type PlaylistExport struct {
	Service  Service  `json:"service"`
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// PlaylistDiff compares a source playlist against a destination after both were deduplicated.
//
// AlreadyMatched counts loose key matches only, so it can be smaller than
// len(Source.Tracks) - len(Missing) when some tracks matched on title alone.
type PlaylistDiff struct {
	Source         PlaylistExport `json:"source"`
	Destination    PlaylistExport `json:"destination"`
	Missing        []Track        `json:"missing"`
	Extra          []Track        `json:"extra"`
	AlreadyMatched int            `json:"already_matched"`
}
