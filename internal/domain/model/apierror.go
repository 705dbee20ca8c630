package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an API failure into the categories the session layer
// acts on. Every error returned by the dispatcher carries exactly one kind.
type ErrorKind int

const (
	// KindTimeout means the request exceeded its bounded deadline.
	KindTimeout ErrorKind = iota
	// KindNetworkUnreachable means no response arrived at all. This is the
	// only kind that may activate the offline fallback for OTP flows.
	KindNetworkUnreachable
	// KindUnauthorized is a 401 from a reachable server. Handled internally
	// by the refresh path; surfaced only when refresh itself fails.
	KindUnauthorized
	// KindServerRejected is any other 4xx/5xx with a structured body.
	KindServerRejected
	// KindSessionExpired means the session cannot be recovered and the user
	// has been signed out locally.
	KindSessionExpired
)

// String returns a short stable name for logging.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindUnauthorized:
		return "unauthorized"
	case KindServerRejected:
		return "server_rejected"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// APIError is the typed failure returned by the dispatcher and the services
// built on it. Status is the HTTP status code, or 0 for transport failures.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("api: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("api: %s", e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorKind extracts the kind from err's chain; ok is false when the chain
// holds no APIError.
func errorKind(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsTimeout reports whether err is an APIError of kind KindTimeout.
func IsTimeout(err error) bool {
	k, ok := errorKind(err)
	return ok && k == KindTimeout
}

// IsNetworkUnreachable reports whether err is an APIError of kind
// KindNetworkUnreachable.
func IsNetworkUnreachable(err error) bool {
	k, ok := errorKind(err)
	return ok && k == KindNetworkUnreachable
}

// IsUnauthorized reports whether err is an APIError of kind KindUnauthorized.
func IsUnauthorized(err error) bool {
	k, ok := errorKind(err)
	return ok && k == KindUnauthorized
}

// IsServerRejected reports whether err is an APIError of kind KindServerRejected.
func IsServerRejected(err error) bool {
	k, ok := errorKind(err)
	return ok && k == KindServerRejected
}

// IsSessionExpired reports whether err is an APIError of kind KindSessionExpired.
func IsSessionExpired(err error) bool {
	k, ok := errorKind(err)
	return ok && k == KindSessionExpired
}
