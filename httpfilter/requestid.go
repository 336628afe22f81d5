package httpfilter

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is the request id header, honored when the client or an
// upstream proxy already set it.
const HeaderRequestID = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns a filter that ensures every request carries an id,
// echoes it on the response, and stores it in the request context for
// request-scoped logging.
func RequestID() Filter {
	return FilterFunc(func(w http.ResponseWriter, r *http.Request) Outcome {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(HeaderRequestID, id)
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		return Continue(r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request id stored in the context, or "".
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
