// Package httpx holds the small HTTP helpers shared by the gate and the
// login flow: client address extraction and the terminal response shapes.
package httpx

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ClientIP extracts the client address: the first X-Forwarded-For hop if a
// proxy set one, else X-Real-Ip, else the connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WriteBasicChallenge sends the 401 challenge for missing or failed Basic
// credentials.
func WriteBasicChallenge(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
	http.Error(w, "authentication required", http.StatusUnauthorized)
}

// WriteRateLimited sends a 429, with Retry-After when the reset time is
// known.
func WriteRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", RetryAfterString(retryAfter))
	}
	http.Error(w, "too many failed attempts; try again later", http.StatusTooManyRequests)
}

// WriteForbidden sends a 403 for authenticated principals the matched rule
// does not admit.
func WriteForbidden(w http.ResponseWriter) {
	http.Error(w, "access denied", http.StatusForbidden)
}

// RetryAfterString formats a duration as whole seconds, rounding up so the
// client never retries inside the window.
func RetryAfterString(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
