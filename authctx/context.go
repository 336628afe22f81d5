// Package authctx propagates the authenticated principal through the
// request context. The gate attaches a principal only after verification
// succeeds; downstream modules read it for per-user decisions.
package authctx

import (
	"context"
	"errors"
	"net/http"
)

// Method records how a principal authenticated.
type Method string

const (
	// MethodBasic means credentials arrived in an Authorization header.
	MethodBasic Method = "basic"

	// MethodSession means a valid session cookie was presented.
	MethodSession Method = "session"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	// Username is the verified subject.
	Username string

	// Method is how the identity was established.
	Method Method
}

// contextKey is an unexported type to prevent collisions with other packages.
type contextKey struct{}

var principalKey = contextKey{}

// ErrNoPrincipal is returned when no principal is attached to the context.
var ErrNoPrincipal = errors.New("authctx: no principal in context")

// With attaches a principal to the context.
func With(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// From retrieves the principal from the context.
func From(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// FromRequest retrieves the principal from a request's context.
func FromRequest(r *http.Request) (Principal, bool) {
	return From(r.Context())
}

// MustFrom retrieves the principal, panicking if absent. Use only in
// handlers mounted behind the gate, where attachment is guaranteed.
func MustFrom(ctx context.Context) Principal {
	p, ok := From(ctx)
	if !ok {
		panic(ErrNoPrincipal)
	}
	return p
}
