package reqctx

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type key int

const (
	metaKey key = iota
	claimsKey
	traceKey
)

// RequestMeta is set once per request by the RequestID middleware.
type RequestMeta struct {
	RequestID  string
	ClientIP   string
	UserAgent  string
	ReceivedAt time.Time
}

// AuthClaims is the slice of a verified token the services care about.
type AuthClaims interface {
	GetUserID() uuid.UUID
}

// TraceInfo mirrors the span context of the request's server span.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey, meta)
}

func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(metaKey).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		return meta.RequestID
	}
	return ""
}

func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns nil on unauthenticated routes.
func ClaimsFromContext(ctx context.Context) AuthClaims {
	claims, _ := ctx.Value(claimsKey).(AuthClaims)
	return claims
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	return claims.GetUserID(), true
}

func WithTrace(ctx context.Context, trace *TraceInfo) context.Context {
	return context.WithValue(ctx, traceKey, trace)
}

func TraceIDFromContext(ctx context.Context) string {
	if trace, ok := ctx.Value(traceKey).(*TraceInfo); ok && trace != nil {
		return trace.TraceID
	}
	return ""
}
