package internal

import (
	"context"
	"github.com/google/uuid"
	"net/http"
)

type contextKey string

const (
	requestIDKey    contextKey = "requestID"
	requestIDHeader            = "X-Request-Id"
)

// RequestContext tags the request context with the caller's X-Request-Id, or a new one.
func RequestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if _, ok := ctx.Value(requestIDKey).(string); ok {
		return ctx
	}
	id := r.Header.Get(requestIDHeader)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns an empty string when the context carries no request id.
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}
	return ""
}
