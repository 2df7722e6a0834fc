// Package matching implements the text side of playlist sync: title and artist normalization,
// the keys derived from them, duplicate detection, reconciliation of two playlists and scoring of
// web search candidates.
//
// Everything here is pure and deterministic. Two tracks are treated as the same song when either
// their loose key (title plus artist signature) or their title key matches; that rule is shared
// by [Dedupe] and [Reconcile].
package matching
