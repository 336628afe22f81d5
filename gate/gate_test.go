package gate

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/authgate/authctx"
	"github.com/kbukum/authgate/bruteforce"
	"github.com/kbukum/authgate/credential"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/rules"
	"github.com/kbukum/authgate/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testGate(t *testing.T, cfg Config) *Gate {
	t.Helper()

	if cfg.Credentials.Users == nil {
		hash, err := credential.NewBcryptHasher(credential.WithCost(4)).Hash("open sesame")
		if err != nil {
			t.Fatal(err)
		}
		cfg.Credentials = credential.Config{
			Algorithm:  credential.AlgorithmBcrypt,
			BcryptCost: 4,
			Users: []credential.Entry{
				{Username: "alice", Hash: hash},
				{Username: "bob", Hash: hash},
			},
		}
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = testSecret
		cfg.Session.TTL = time.Hour
	}
	if cfg.Rules == nil {
		cfg.Rules = []rules.Rule{
			{Pattern: "/public", Mode: rules.ModeNone},
			{Pattern: "/api", Mode: rules.ModeBasic, AllowPrincipals: []string{"*"}},
			{Pattern: "/admin", Mode: rules.ModeBasic, AllowPrincipals: []string{"alice"}},
			{Pattern: "/app", Mode: rules.ModeFormSession, AllowPrincipals: []string{"*"}},
		}
	}

	g, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func get(g *Gate, path string, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, bool, *http.Request) {
	req := httptest.NewRequest("GET", path, nil)
	req.RemoteAddr = "203.0.113.9:40000"
	for _, m := range mutate {
		m(req)
	}
	rr := httptest.NewRecorder()
	out := g.Filter(rr, req)
	return rr, out.Done(), out.Request()
}

func withBasic(user, pass string) func(*http.Request) {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}

func TestGate_OpenPath(t *testing.T) {
	g := testGate(t, Config{})

	rr, done, _ := get(g, "/public/index.html")
	if done {
		t.Fatal("open path must continue, not respond")
	}
	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Error("open path must write nothing")
	}
}

func TestGate_BasicChallenge(t *testing.T) {
	g := testGate(t, Config{Realm: "Staging"})

	rr, done, _ := get(g, "/api/things")
	if !done {
		t.Fatal("missing credentials must terminate the request")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got != `Basic realm="Staging"` {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestGate_BasicSuccess(t *testing.T) {
	g := testGate(t, Config{})

	rr, done, req := get(g, "/api/things", withBasic("alice", "open sesame"))
	if done {
		t.Fatalf("valid credentials must continue (status %d)", rr.Code)
	}
	p, ok := authctx.From(req.Context())
	if !ok {
		t.Fatal("continued request must carry a principal")
	}
	if p.Username != "alice" || p.Method != authctx.MethodBasic {
		t.Errorf("principal = %+v", p)
	}
}

func TestGate_BasicWrongPassword(t *testing.T) {
	g := testGate(t, Config{})

	rr, done, _ := get(g, "/api/things", withBasic("alice", "wrong"))
	if !done || rr.Code != http.StatusUnauthorized {
		t.Fatalf("done = %v, status = %d, want 401", done, rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Error("failed basic auth must re-challenge")
	}
}

func TestGate_BasicForbiddenPrincipal(t *testing.T) {
	g := testGate(t, Config{})

	// bob authenticates fine but /admin admits only alice.
	rr, done, _ := get(g, "/admin/panel", withBasic("bob", "open sesame"))
	if !done || rr.Code != http.StatusForbidden {
		t.Fatalf("done = %v, status = %d, want 403", done, rr.Code)
	}
}

func TestGate_BruteForceLockout(t *testing.T) {
	g := testGate(t, Config{
		RateLimit: bruteforce.Config{MaxFailures: 5, Window: time.Minute},
	})

	for i := 0; i < 5; i++ {
		rr, _, _ := get(g, "/api/things", withBasic("alice", "wrong"))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i, rr.Code)
		}
	}

	// Correct password, same client and user, inside the window.
	rr, done, _ := get(g, "/api/things", withBasic("alice", "open sesame"))
	if !done || rr.Code != http.StatusTooManyRequests {
		t.Fatalf("done = %v, status = %d, want 429", done, rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("429 should carry Retry-After")
	}

	// A different client IP is a different key and passes.
	rr2, done2, _ := get(g, "/api/things", func(r *http.Request) {
		r.SetBasicAuth("alice", "open sesame")
		r.RemoteAddr = "198.51.100.4:40000"
	})
	if done2 {
		t.Fatalf("other client must not share the lockout (status %d)", rr2.Code)
	}
}

func TestGate_SessionRedirect(t *testing.T) {
	g := testGate(t, Config{})

	rr, done, _ := get(g, "/app/dashboard?tab=1")
	if !done || rr.Code != http.StatusSeeOther {
		t.Fatalf("done = %v, status = %d, want 303", done, rr.Code)
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Path != "/login" {
		t.Errorf("redirect path = %q, want /login", loc.Path)
	}
	if got := loc.Query().Get("to"); got != "/app/dashboard?tab=1" {
		t.Errorf("carried target = %q", got)
	}
}

func TestGate_SessionSuccess(t *testing.T) {
	g := testGate(t, Config{})

	token, err := g.Codec().Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	rr, done, req := get(g, "/app/dashboard", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "session", Value: token})
	})
	if done {
		t.Fatalf("valid session must continue (status %d)", rr.Code)
	}
	p, ok := authctx.From(req.Context())
	if !ok || p.Username != "alice" || p.Method != authctx.MethodSession {
		t.Errorf("principal = %+v, ok = %v", p, ok)
	}
}

func TestGate_SessionExpired(t *testing.T) {
	g := testGate(t, Config{})

	token, err := g.Codec().IssueTTL("alice", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	rr, done, _ := get(g, "/app/dashboard", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "session", Value: token})
	})
	if !done || rr.Code != http.StatusSeeOther {
		t.Fatalf("done = %v, status = %d, want redirect to login", done, rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Location"), "/login") {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
}

func TestGate_SessionTampered(t *testing.T) {
	g := testGate(t, Config{})

	token, err := g.Codec().Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	bad := token[:len(token)-2] + "xx"
	rr, done, _ := get(g, "/app/dashboard", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "session", Value: bad})
	})
	if !done || rr.Code != http.StatusSeeOther {
		t.Fatalf("done = %v, status = %d, want redirect to login", done, rr.Code)
	}
}

func TestGate_DefaultDeny(t *testing.T) {
	g := testGate(t, Config{})

	// No rule matches /nowhere: fallback is form_session admitting nobody.
	rr, done, _ := get(g, "/nowhere")
	if !done || rr.Code != http.StatusSeeOther {
		t.Fatalf("done = %v, status = %d, want redirect", done, rr.Code)
	}

	// Even with a valid session the empty principal set denies.
	token, err := g.Codec().Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	rr2, done2, _ := get(g, "/nowhere", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "session", Value: token})
	})
	if !done2 || rr2.Code != http.StatusForbidden {
		t.Fatalf("done = %v, status = %d, want 403", done2, rr2.Code)
	}
}

func TestGate_LoginEndpoints(t *testing.T) {
	g := testGate(t, Config{})

	rr, done, _ := get(g, "/login")
	if !done || rr.Code != http.StatusOK {
		t.Fatalf("GET /login: done = %v, status = %d, want 200", done, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `name="password"`) {
		t.Error("GET /login must render the form")
	}

	req := httptest.NewRequest("DELETE", "/login", nil)
	rr2 := httptest.NewRecorder()
	if out := g.Filter(rr2, req); !out.Done() {
		t.Fatal("login endpoint must always terminate")
	}
	if rr2.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /login: status = %d, want 405", rr2.Code)
	}

	rr3, done3, _ := get(g, "/logout")
	if !done3 || rr3.Code != http.StatusSeeOther {
		t.Fatalf("GET /logout: done = %v, status = %d, want 303", done3, rr3.Code)
	}
}

func TestGate_LoginEndpointsTrailingSlash(t *testing.T) {
	g := testGate(t, Config{})

	rr, done, _ := get(g, "/login/")
	if !done || rr.Code != http.StatusOK {
		t.Fatalf("GET /login/: done = %v, status = %d, want 200", done, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `name="password"`) {
		t.Error("GET /login/ must render the form")
	}

	rr2, done2, _ := get(g, "/logout/")
	if !done2 || rr2.Code != http.StatusSeeOther {
		t.Fatalf("GET /logout/: done = %v, status = %d, want 303", done2, rr2.Code)
	}
}

func TestGate_LoginSubmitThroughFilter(t *testing.T) {
	g := testGate(t, Config{})

	form := url.Values{"username": {"alice"}, "password": {"open sesame"}, "to": {"/app/dashboard"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "203.0.113.9:40000"
	rr := httptest.NewRecorder()

	if out := g.Filter(rr, req); !out.Done() {
		t.Fatal("login submission must terminate in the gate")
	}
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/app/dashboard" {
		t.Errorf("Location = %q", got)
	}
	if len(rr.Result().Cookies()) != 1 {
		t.Error("successful login must set the session cookie")
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no rules", func(c *Config) { c.Rules = []rules.Rule{} }},
		{"relative pattern", func(c *Config) {
			c.Rules = []rules.Rule{{Pattern: "admin", Mode: rules.ModeBasic}}
		}},
		{"unknown mode", func(c *Config) {
			c.Rules = []rules.Rule{{Pattern: "/x", Mode: "digest"}}
		}},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := credential.NewBcryptHasher(credential.WithCost(4)).Hash("pw")
			if err != nil {
				t.Fatal(err)
			}
			cfg := Config{
				Rules: []rules.Rule{{Pattern: "/x", Mode: rules.ModeBasic}},
				Credentials: credential.Config{
					BcryptCost: 4,
					Users:      []credential.Entry{{Username: "u", Hash: hash}},
				},
				Session: session.Config{Secret: testSecret},
			}
			tc.mutate(&cfg)
			if _, err := New(cfg, logger.Nop()); err == nil {
				t.Error("New() should reject the configuration")
			}
		})
	}
}
