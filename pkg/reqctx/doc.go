// Package reqctx carries request-scoped values between the HTTP layer and the
// services: request metadata, authentication claims and trace identifiers.
//
// All keys are unexported. Middleware sets values; everything else reads
// them through the typed getters:
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: rid})
//	ctx = reqctx.WithClaims(ctx, claims)
//
//	userID, ok := reqctx.UserIDFromContext(ctx)
//
// RequestMeta is always present behind the RequestID middleware. Claims are
// present only on authenticated routes. LogHandler copies the ids onto every
// record logged with a request context.
package reqctx
