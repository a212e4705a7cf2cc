package correlation

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestFromHeader(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  []Key
	}{
		{
			name:  "request id",
			key:   "X-Request-Id",
			value: "REQ-12345",
			want:  []Key{{Type: TypeRequestID, Value: "req-12345"}},
		},
		{
			name:  "correlation id",
			key:   "x-correlation-id",
			value: "corr-abc-789",
			want:  []Key{{Type: TypeCorrelationID, Value: "corr-abc-789"}},
		},
		{
			name:  "traceparent",
			key:   "traceparent",
			value: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00",
			want:  []Key{{Type: TypeTraceID, Value: "4bf92f3577b34da6a3ce929d0e0e4736"}},
		},
		{
			name:  "cloud trace context",
			key:   "x-cloud-trace-context",
			value: "105445aa7843bc8bf206b12000100000/123;o=1",
			want:  []Key{{Type: TypeTraceID, Value: "105445aa7843bc8bf206b12000100000"}},
		},
		{
			name:  "b3 single",
			key:   "b3",
			value: "80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1-1",
			want:  []Key{{Type: TypeTraceID, Value: "80f198ee56343ba864fe8b2a57d3eff7"}},
		},
		{
			name:  "malformed traceparent",
			key:   "traceparent",
			value: "not-a-trace",
			want:  nil,
		},
		{
			name:  "unsafe request id",
			key:   "X-Request-Id",
			value: "<script>alert(1)</script>",
			want:  nil,
		},
		{
			name:  "unsupported header",
			key:   "content-type",
			value: "application/json",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromHeader(tt.key, tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d keys, got %d: %#v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("key[%d] mismatch: got %#v want %#v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFromRequestOrderAndDedupe(t *testing.T) {
	h := http.Header{}
	h.Set("Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.Set("X-Trace-Id", "4bf92f3577b34da6a3ce929d0e0e4736")
	h.Set("X-Correlation-Id", "corr-1")

	keys := FromRequest(h)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %#v", keys)
	}
	if keys[0].Type != TypeCorrelationID || keys[1].Type != TypeTraceID {
		t.Errorf("unexpected order: %#v", keys)
	}
}

func TestRequestID(t *testing.T) {
	h := http.Header{}
	if got := RequestID(h); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}

	h.Set("X-Correlation-Id", "corr-1")
	h.Set("X-Request-Id", "Req-42")
	if got := RequestID(h); got != "req-42" {
		t.Errorf("expected request id to win, got %q", got)
	}

	h = http.Header{}
	h.Set("X-Request-Id", strings.Repeat("a", 200))
	if got := RequestID(h); got != "" {
		t.Errorf("expected oversized id to be rejected, got %q", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty id on bare context, got %q", got)
	}
	ctx = WithRequestID(ctx, "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("expected req-1, got %q", got)
	}
}
