package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationNotFound signals that a location query could not be geocoded.
	ErrLocationNotFound = errors.New("location not found")
	// ErrGeocoderUnavailable signals a geocoding transport failure.
	ErrGeocoderUnavailable = errors.New("geocoding provider unavailable")
	// ErrProviderStatus signals a non-success status field in a places response.
	ErrProviderStatus = errors.New("places provider error status")
	// ErrProviderTransport signals a places request that failed at the HTTP level.
	ErrProviderTransport = errors.New("places provider transport failure")
	// ErrPersist signals a favorites write failure.
	ErrPersist = errors.New("favorites persist failed")
	// ErrNotCached signals that no result set is cached for a query.
	ErrNotCached = errors.New("no cached results")
	// ErrSummaryDisabled signals that review summaries are not configured.
	ErrSummaryDisabled = errors.New("review summaries disabled")
	// ErrInvalidInput signals malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// ResolutionKind classifies a location resolution failure.
type ResolutionKind int

const (
	// ResolutionNotFound means the geocoder returned no match.
	ResolutionNotFound ResolutionKind = iota + 1
	// ResolutionProviderUnavailable means the geocoder could not be reached.
	ResolutionProviderUnavailable
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionNotFound:
		return "not_found"
	case ResolutionProviderUnavailable:
		return "provider_unavailable"
	default:
		return "unknown"
	}
}

// ResolutionError is returned by the location resolver.
type ResolutionError struct {
	Kind  ResolutionKind
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Query, e.sentinel(), e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Query, e.sentinel())
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.sentinel(), e.Err}
	}
	return []error{e.sentinel()}
}

func (e *ResolutionError) sentinel() error {
	if e.Kind == ResolutionProviderUnavailable {
		return ErrGeocoderUnavailable
	}
	return ErrLocationNotFound
}

// ProviderErrorKind classifies a places provider failure.
type ProviderErrorKind int

const (
	// ProviderStatus means the response body carried a non-success status.
	ProviderStatus ProviderErrorKind = iota + 1
	// ProviderTransport means the HTTP exchange itself failed.
	ProviderTransport
)

func (k ProviderErrorKind) String() string {
	switch k {
	case ProviderStatus:
		return "provider_status"
	case ProviderTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ProviderFailure is the shared shape of search and detail errors.
// Code is set for ProviderStatus, HTTPStatus for ProviderTransport
// (0 when the request never got a response).
type ProviderFailure struct {
	Kind       ProviderErrorKind
	Code       string
	HTTPStatus int
	Err        error
}

// StatusFailure builds a failure for a non-success status field.
func StatusFailure(code string) ProviderFailure {
	return ProviderFailure{Kind: ProviderStatus, Code: code}
}

// TransportFailure builds a failure for an HTTP-level error.
func TransportFailure(httpStatus int, err error) ProviderFailure {
	return ProviderFailure{Kind: ProviderTransport, HTTPStatus: httpStatus, Err: err}
}

func (f ProviderFailure) describe() string {
	switch f.Kind {
	case ProviderStatus:
		return fmt.Sprintf("%s: %s", ErrProviderStatus, f.Code)
	case ProviderTransport:
		if f.HTTPStatus != 0 {
			return fmt.Sprintf("%s: http %d", ErrProviderTransport, f.HTTPStatus)
		}
		if f.Err != nil {
			return fmt.Sprintf("%s: %v", ErrProviderTransport, f.Err)
		}
		return ErrProviderTransport.Error()
	default:
		return "provider failure"
	}
}

func (f ProviderFailure) unwrap() []error {
	var sentinel error = ErrProviderTransport
	if f.Kind == ProviderStatus {
		sentinel = ErrProviderStatus
	}
	if f.Err != nil {
		return []error{sentinel, f.Err}
	}
	return []error{sentinel}
}

// SearchError is returned by the search aggregator.
type SearchError struct {
	ProviderFailure
}

func (e *SearchError) Error() string { return "nearby search: " + e.describe() }

func (e *SearchError) Unwrap() []error { return e.unwrap() }

// DetailError is returned by the detail fetcher.
type DetailError struct {
	PlaceID string
	ProviderFailure
}

func (e *DetailError) Error() string {
	return fmt.Sprintf("place details %q: %s", e.PlaceID, e.describe())
}

func (e *DetailError) Unwrap() []error { return e.unwrap() }

// PersistOp names the favorites operation that failed.
type PersistOp string

// PersistWrite is the only surfaced persistence failure; reads fail soft.
const PersistWrite PersistOp = "write"

// PersistError is returned when favorites cannot be written.
type PersistError struct {
	Op   PersistOp
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrPersist, e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() []error { return []error{ErrPersist, e.Err} }

// HTTPStatusError reports a provider response with a non-200 status code.
type HTTPStatusError struct {
	Provider   string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned http %d", e.Provider, e.StatusCode)
}

// HTTPStatusOf returns the status code carried by err, 0 when there is none.
func HTTPStatusOf(err error) int {
	var he *HTTPStatusError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
