package callmon

import (
	"fmt"
	"net/http"
)

// ErrorKind enumerates the classifiable shapes of an upstream failure.
type ErrorKind int

// Known upstream failure kinds. KindUnknown is the catch-all for failures
// that carry a status code outside the recognized set.
const (
	KindUnknown ErrorKind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindTooManyRequests
	KindInternalServerError
	KindBadGateway
	KindServiceUnavailable
	KindGatewayTimeout
	KindTimeout
	KindConnectionFailed
)

// String returns the simple name of the kind, used as the metric status
// label when the error carries no explicit code.
func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequestError"
	case KindUnauthorized:
		return "UnauthorizedError"
	case KindForbidden:
		return "ForbiddenError"
	case KindNotFound:
		return "NotFoundError"
	case KindTooManyRequests:
		return "TooManyRequestsError"
	case KindInternalServerError:
		return "InternalServerError"
	case KindBadGateway:
		return "BadGatewayError"
	case KindServiceUnavailable:
		return "ServiceUnavailableError"
	case KindGatewayTimeout:
		return "GatewayTimeoutError"
	case KindTimeout:
		return "TimeoutError"
	case KindConnectionFailed:
		return "ConnectionFailedError"
	default:
		return "UnknownError"
	}
}

// untimed reports whether latency for this kind is uninformative: the call
// may have failed before meaningful work started, or timed out at a
// boundary outside the target service's control.
func (k ErrorKind) untimed() bool {
	switch k {
	case KindBadGateway, KindGatewayTimeout, KindServiceUnavailable:
		return true
	default:
		return false
	}
}

// UpstreamError represents a failed call to a downstream HTTP-like
// dependency: a non-2xx response or a transport-level failure.
type UpstreamError struct {
	Kind ErrorKind

	// StatusCode is the raw response code from the upstream, 0 when no
	// response was received.
	StatusCode int

	// ReportAs is a status code explicitly assigned for metrics purposes,
	// distinct from the raw response code. 0 when unset.
	ReportAs int

	Msg string
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Msg != "":
		return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Msg)
	case e.StatusCode > 0:
		return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Kind)
	case e.Msg != "":
		return fmt.Sprintf("upstream %s: %s", e.Kind, e.Msg)
	default:
		return fmt.Sprintf("upstream %s", e.Kind)
	}
}

// Unwrap returns the wrapped cause, if any.
func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError creates an UpstreamError of the given kind.
func NewUpstreamError(kind ErrorKind, msg string) *UpstreamError {
	return &UpstreamError{Kind: kind, Msg: msg}
}

// UpstreamFromStatusCode creates an UpstreamError from a raw response code,
// deriving the kind from the recognized codes.
func UpstreamFromStatusCode(code int, msg string) *UpstreamError {
	return &UpstreamError{Kind: kindFromStatusCode(code), StatusCode: code, Msg: msg}
}

func kindFromStatusCode(code int) ErrorKind {
	switch code {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindTooManyRequests
	case http.StatusInternalServerError:
		return KindInternalServerError
	case http.StatusBadGateway:
		return KindBadGateway
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	case http.StatusGatewayTimeout:
		return KindGatewayTimeout
	default:
		return KindUnknown
	}
}
