package callmon

import (
	"context"
	"net/http"
)

// UndefinedUserAgent is the user agent label used when the request info
// carries no User-Agent header.
const UndefinedUserAgent = "undefined"

// RequestInfo bundles the per-request ambient state a Monitor reads: the
// outbound header map and the current request URI. The zero value is valid
// and means "no request context available".
type RequestInfo struct {
	Header http.Header
	URI    string
}

// UserAgent returns the first User-Agent header value, or
// UndefinedUserAgent when none is set.
func (ri RequestInfo) UserAgent() string {
	if ri.Header == nil {
		return UndefinedUserAgent
	}
	if ua := ri.Header.Get("User-Agent"); ua != "" {
		return ua
	}
	return UndefinedUserAgent
}

type requestInfoKey struct{}

// WithRequestInfo returns a context carrying the given request info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom extracts request info from the context. The second return
// is false when the context carries none.
func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// BaselineAuditTags derives the tags every audit event starts from: the
// target service name and, when known, the request URI.
func BaselineAuditTags(service, uri string) map[string]string {
	tags := map[string]string{"service": service}
	if uri != "" {
		tags["uri"] = uri
	}
	return tags
}
