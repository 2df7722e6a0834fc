// Package models defines the entities shared across synclify.
//
// Transfer objects describe what the catalog services return:
//   - [Track] : one entry of a playlist as exposed by a catalog
//   - [Playlist] : playlist metadata
//   - [Candidate] : a link proposed by the web search
//
// Persistent entities implement [Model] and are stored through a [Repository]:
//   - [Resolution] : a cached mapping from a normalized track key to a destination identifier
//   - [SyncRun] : the summary of one sync run
package models
