package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext carries the ids that tie log lines, audit rows and response
// headers of one request or job run together.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

func GetTrace(ctx context.Context) *TraceContext {
	trace, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return trace
}

// GetRequestID returns the request id, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	if trace := GetTrace(ctx); trace != nil {
		return trace.RequestID
	}
	return ""
}

// NewRunTrace returns ids for work that has no inbound request, such as a
// worker job run. RequestID is prefixed with the job name.
func NewRunTrace(job string) *TraceContext {
	traceID := uuid.Must(uuid.NewV7()).String()
	return &TraceContext{
		TraceID:   traceID,
		SpanID:    traceID[len(traceID)-16:],
		RequestID: job + "-" + traceID,
	}
}
