// Package correlation picks a request ID out of inbound tracing headers.
package correlation

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// Key represents a normalized correlation key.
type Key struct {
	Type  string
	Value string
}

const (
	TypeRequestID     = "request_id"
	TypeCorrelationID = "correlation_id"
	TypeTraceID       = "trace_id"
)

var (
	traceparentPattern = regexp.MustCompile(`(?i)^\s*([0-9a-f]{2})-([0-9a-f]{32})-([0-9a-f]{16})-([0-9a-f]{2})\s*$`)
	cloudTracePattern  = regexp.MustCompile(`(?i)^\s*([0-9a-f]{32})(?:/[0-9]+)?(?:;o=\d+)?\s*$`)
	b3SinglePattern    = regexp.MustCompile(`(?i)^\s*([0-9a-f]{16,32})-[0-9a-f]{16}(?:-[01d](?:-[0-9a-f]{16})?)?\s*$`)
	safeValuePattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9._:/\-]{0,127}$`)
)

// headerOrder is the order headers are consulted in, most specific first.
var headerOrder = []string{
	"X-Request-Id",
	"Request-Id",
	"X-Correlation-Id",
	"Correlation-Id",
	"Traceparent",
	"X-Cloud-Trace-Context",
	"B3",
	"X-B3-Traceid",
	"X-Trace-Id",
}

// FromHeader extracts normalized correlation keys from a header pair.
func FromHeader(name, value string) []Key {
	headerName := strings.ToLower(strings.TrimSpace(name))
	headerValue := normalizeValue(value)
	if headerName == "" || headerValue == "" {
		return nil
	}

	switch headerName {
	case "x-request-id", "request-id", "request_id":
		return safe(Key{Type: TypeRequestID, Value: headerValue})
	case "x-correlation-id", "correlation-id", "correlation_id", "x-correlationid":
		return safe(Key{Type: TypeCorrelationID, Value: headerValue})
	case "x-trace-id", "trace-id", "trace_id", "x-b3-traceid":
		return safe(Key{Type: TypeTraceID, Value: headerValue})
	case "traceparent":
		return safe(Key{Type: TypeTraceID, Value: submatch(traceparentPattern, headerValue, 2)})
	case "x-cloud-trace-context":
		return safe(Key{Type: TypeTraceID, Value: submatch(cloudTracePattern, headerValue, 1)})
	case "b3":
		return safe(Key{Type: TypeTraceID, Value: submatch(b3SinglePattern, headerValue, 1)})
	}
	return nil
}

// FromRequest collects the keys carried by h, in headerOrder, without
// duplicates.
func FromRequest(h http.Header) []Key {
	var keys []Key
	for _, name := range headerOrder {
		if v := h.Get(name); v != "" {
			keys = append(keys, FromHeader(name, v)...)
		}
	}
	return dedupe(keys)
}

// RequestID returns the first key FromRequest finds, or "".
func RequestID(h http.Header) string {
	keys := FromRequest(h)
	if len(keys) == 0 {
		return ""
	}
	return keys[0].Value
}

type requestIDKey struct{}

// WithRequestID stores id on ctx for downstream logging and tracing.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func submatch(re *regexp.Regexp, value string, idx int) string {
	matches := re.FindStringSubmatch(value)
	if len(matches) <= idx {
		return ""
	}
	return normalizeValue(matches[idx])
}

// safe drops values that would be awkward in logs and response headers.
func safe(key Key) []Key {
	if !safeValuePattern.MatchString(key.Value) {
		return nil
	}
	return []Key{key}
}

func normalizeValue(value string) string {
	normalized := strings.TrimSpace(strings.ToLower(value))
	normalized = strings.Trim(normalized, "\"'`")
	normalized = strings.TrimRight(normalized, ".,;:)]}")
	return normalized
}

func dedupe(keys []Key) []Key {
	if len(keys) <= 1 {
		return keys
	}

	seen := make(map[string]struct{}, len(keys))
	uniq := make([]Key, 0, len(keys))
	for _, key := range keys {
		token := key.Type + ":" + key.Value
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		uniq = append(uniq, key)
	}
	return uniq
}
