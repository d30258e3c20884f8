package harvest

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ResolveErrorKind classifies why a dashboard could not be resolved.
type ResolveErrorKind string

// Resolve failure kinds.
const (
	ResolveTimeout    ResolveErrorKind = "timeout"
	ResolveConnection ResolveErrorKind = "connection"
	ResolveHTTP       ResolveErrorKind = "http"
	ResolveOther      ResolveErrorKind = "other"
)

// ResolveError reports a dashboard fetch or parse failure. It propagates out
// of the resolver and is contained by the per-acta driver, which marks the
// acta as errored.
type ResolveError struct {
	URL        string
	Kind       ResolveErrorKind
	StatusCode int
	Err        error
}

func (e *ResolveError) Error() string {
	if e.Kind == ResolveHTTP {
		return fmt.Sprintf("resolve %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("resolve %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ClassifyResolveError wraps a transport error with its failure kind.
func ClassifyResolveError(url string, err error) *ResolveError {
	kind := ResolveOther
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ResolveTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ResolveTimeout
	case isConnectionError(err):
		kind = ResolveConnection
	}
	return &ResolveError{URL: url, Kind: kind, Err: err}
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
