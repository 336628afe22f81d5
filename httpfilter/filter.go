// Package httpfilter defines the handler-composition contract the auth
// gate plugs into: a filter either lets the request continue (possibly
// with an enriched context) or has already written a terminal response.
// A fixed, ordered chain of filters is evaluated until one responds.
package httpfilter

import "net/http"

// Outcome is the tagged result of a filter: Continue or Responded.
type Outcome struct {
	next *http.Request
	done bool
}

// Continue lets the request proceed. Pass the (possibly rewritten)
// request so context additions travel downstream; nil keeps the original.
func Continue(r *http.Request) Outcome {
	return Outcome{next: r}
}

// Responded marks the request as terminally handled: the filter has
// written the response and nothing downstream runs.
func Responded() Outcome {
	return Outcome{done: true}
}

// Done reports whether the filter wrote a terminal response.
func (o Outcome) Done() bool { return o.done }

// Request returns the request to hand downstream, or nil.
func (o Outcome) Request() *http.Request { return o.next }

// Filter is the per-request contract shared by all modules in the chain.
type Filter interface {
	Filter(w http.ResponseWriter, r *http.Request) Outcome
}

// FilterFunc adapts an ordinary function to a Filter.
type FilterFunc func(w http.ResponseWriter, r *http.Request) Outcome

// Filter implements Filter.
func (f FilterFunc) Filter(w http.ResponseWriter, r *http.Request) Outcome {
	return f(w, r)
}

// Chain evaluates filters in declaration order until one responds.
// A Chain is itself a Filter, so chains compose.
type Chain struct {
	filters []Filter
}

// NewChain creates a chain from the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Filter implements Filter.
func (c *Chain) Filter(w http.ResponseWriter, r *http.Request) Outcome {
	for _, f := range c.filters {
		out := f.Filter(w, r)
		if out.Done() {
			return out
		}
		if next := out.Request(); next != nil {
			r = next
		}
	}
	return Continue(r)
}

// Then terminates the chain with a final handler, producing a plain
// http.Handler for hosts that mount one.
func (c *Chain) Then(final http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := c.Filter(w, r)
		if out.Done() {
			return
		}
		if next := out.Request(); next != nil {
			r = next
		}
		final.ServeHTTP(w, r)
	})
}

// Middleware adapts a Filter to the standard middleware signature
// func(http.Handler) http.Handler.
func Middleware(f Filter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := f.Filter(w, r)
			if out.Done() {
				return
			}
			if nr := out.Request(); nr != nil {
				r = nr
			}
			next.ServeHTTP(w, r)
		})
	}
}
