package callmon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/xid"
)

// Transport is an http.RoundTripper that monitors every outbound request
// through a Monitor. Responses and errors pass through untouched; the
// transport only observes. Unlike Observe, a non-2xx response is not an
// error here, so the status label is derived from the response code
// directly.
type Transport struct {
	base    http.RoundTripper
	monitor *Monitor
}

// NewTransport wraps base with monitoring. A nil base uses
// http.DefaultTransport.
func NewTransport(m *Monitor, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, monitor: m}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	info := RequestInfo{Header: req.Header, URI: req.URL.RequestURI()}
	m := t.monitor

	start := m.clock.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := m.clock.Now().Sub(start)

	status, shouldTime := classifyRoundTrip(resp, err)
	m.emit(req.Context(), settlement{
		callID:     xid.New(),
		info:       info,
		status:     status,
		shouldTime: shouldTime,
		elapsed:    elapsed,
	})

	return resp, err
}

// classifyRoundTrip labels a round trip result. Transport errors go
// through the standard classifier; responses are labeled by status code,
// with anything below 400 counting as success. Gateway-shaped codes are
// not timed.
func classifyRoundTrip(resp *http.Response, err error) (string, bool) {
	if err != nil {
		return Classify(err)
	}
	code := resp.StatusCode
	if code < http.StatusBadRequest {
		return StatusSuccess, true
	}
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return strconv.Itoa(code), false
	default:
		return strconv.Itoa(code), true
	}
}

// NewClient returns an http.Client whose round trips are monitored. A zero
// timeout leaves the client without one.
func NewClient(m *Monitor, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewTransport(m, nil),
		Timeout:   timeout,
	}
}
