// Package tasks orchestrates playlist sync and management between catalogs with real-time progress reporting.
//
// # Resolution
//
// [ResolutionEngine] resolves tracks missing from a destination playlist one at a time, in source order.
// Each track goes through a fixed cascade that stops at the first success:
//
//  1. [ResolutionCache] lookup
//  2. catalog search, only while the run is in [ModeNormal]
//  3. web fallback: automatic pick, else up to five ranked candidates offered through [UserPrompt]
//  4. manual entry of a link or identifier; an empty answer skips the track
//
// Resolved identifiers are cached and flushed before any destination write. Depending on the mode they
// are then inserted right away, collected for a batched write, or queued for the planning export.
//
// # Modes
//
// A [RunState] is owned by one engine for one run. A quota failure during search moves the run from
// [ModeNormal] to [ModeSearchDisabled] and asks the user once how to continue: manual entry only,
// web auto, planning, or stop. [ModePlanning] never writes to the destination; the identifiers are
// exported to a file for later. Transitions never go back.
//
// # Operations
//
//   - [SyncEngine.Run] : read, dedupe, reconcile, resolve, write, export
//   - [SyncEngine.Diff] : read, dedupe and reconcile only
//   - [PlaylistManager] : choose or find a playlist, artist summary, interactive add,
//     removal by artist, near-duplicate removal, and concurrent backup to disk
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default so a slow reader never blocks a run.
package tasks
