package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Remote failure taxonomy, matched by [RemoteError.Is]
	ErrTransient      = fmt.Errorf("transient remote failure")
	ErrQuotaExceeded  = fmt.Errorf("quota exceeded")
	ErrRateLimited    = fmt.Errorf("rate limited")
	ErrMalformedInput = fmt.Errorf("malformed input")
	ErrCacheIO        = fmt.Errorf("cache unavailable")

	// Run control
	ErrRunStopped  = fmt.Errorf("run stopped by user")
	ErrInterrupted = fmt.Errorf("interrupted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ErrorKind tags a [RemoteError].
type ErrorKind int

const (
	KindPermanent ErrorKind = iota
	KindTransient
	KindQuotaExceeded
	KindRateLimited
	KindMalformedInput
	KindCacheIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformedInput:
		return "malformed_input"
	case KindCacheIO:
		return "cache_io"
	default:
		return "permanent"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransient:
		return ErrTransient
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindRateLimited:
		return ErrRateLimited
	case KindMalformedInput:
		return ErrMalformedInput
	case KindCacheIO:
		return ErrCacheIO
	default:
		return ErrAPIRequest
	}
}

// RemoteError is the classified form of a failure coming back from a catalog, the web search or the cache.
//
// Adapters produce it; everything above them branches on the kind with [errors.Is] against the sentinels.
type RemoteError struct {
	Kind      ErrorKind
	Service   string
	Op        string
	Challenge string // verification URL for [KindRateLimited]
	Err       error
}

func (e *RemoteError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Service != "" {
		msg = e.Service + ": " + msg
	}
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *RemoteError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewRemoteError builds a [RemoteError] of the given kind.
func NewRemoteError(kind ErrorKind, service, op string, err error) *RemoteError {
	return &RemoteError{Kind: kind, Service: service, Op: op, Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ChallengeURL extracts the verification URL carried by a rate limited error.
func ChallengeURL(err error) (string, bool) {
	var re *RemoteError
	if errors.As(err, &re) && re.Kind == KindRateLimited {
		return re.Challenge, true
	}
	return "", false
}
