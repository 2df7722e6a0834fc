// Package services talks to the catalogs a playlist can live on and to the web search used as a
// fallback when a catalog stops answering.
//
// # Catalogs
//
// [PlaylistCatalog] is the contract the sync and management tasks depend on. [SpotifyCatalog]
// wraps the zmb3/spotify client and [YouTubeCatalog] wraps the YouTube Data API. Both authenticate
// through an [oauth2] client built by [TokenStore].
//
// # Errors
//
// Adapters classify every failure into a [shared.RemoteError]:
//   - [shared.ErrTransient] : retried by [Retry] with exponential backoff
//   - [shared.ErrQuotaExceeded] : the daily YouTube quota is gone; the caller changes mode
//   - [shared.ErrRateLimited] : the web search wants a human; carries the challenge URL
//   - [shared.ErrMalformedInput] : a pasted link could not be parsed
//
// # Identifiers
//
// [ParseIdentifier] turns a pasted link or id into the canonical identifier a catalog accepts
// and [ExportURL] turns it back into a shareable link.
package services
