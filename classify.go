package callmon

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
)

// StatusSuccess is the metric status label for a successful call.
const StatusSuccess = "success"

// Classify derives the metric status label for a settled operation, and
// whether its latency should be recorded. On success the label is
// "success" and timing always applies. On failure the label is, in
// priority order: the upstream response code, the report-as code, or the
// simple name of the error's kind. Classification is total and pure; every
// error maps to some label, and the same error always maps to the same
// result.
func Classify(err error) (status string, shouldTime bool) {
	if err == nil {
		return StatusSuccess, true
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstreamStatus(upstream), !upstream.Kind.untimed()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "DeadlineExceeded", true
	case errors.Is(err, context.Canceled):
		return "Canceled", true
	}

	return errorKindName(err), true
}

func upstreamStatus(e *UpstreamError) string {
	switch {
	case e.StatusCode > 0:
		return strconv.Itoa(e.StatusCode)
	case e.ReportAs > 0:
		return strconv.Itoa(e.ReportAs)
	default:
		return e.Kind.String()
	}
}

// errorKindName falls back to the Go type name of the error, with pointer
// and package qualifiers stripped, keeping classification total for error
// types this package knows nothing about.
func errorKindName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "UnknownError"
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
