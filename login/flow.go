// Package login implements the form-based authentication flow: rendering
// the credential form, processing submissions, issuing the session cookie,
// and advisory logout. All state between steps lives in the carried-forward
// target path and the client's retry; the server keeps nothing.
package login

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/kbukum/authgate/apperr"
	"github.com/kbukum/authgate/bruteforce"
	"github.com/kbukum/authgate/credential"
	"github.com/kbukum/authgate/internal/httpx"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/session"
)

const formTemplate = `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="{{.Action}}">
<input type="hidden" name="{{.RedirectParam}}" value="{{.Target}}">
<label>Username <input type="text" name="username" autocomplete="username"></label>
<label>Password <input type="password" name="password" autocomplete="current-password"></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`

// genericError is shown for every failed submission. It never says whether
// the username or the password was wrong.
const genericError = "Invalid username or password."

// Flow handles the login and logout endpoints.
type Flow struct {
	cfg   Config
	store *credential.Store
	pool  *credential.Pool
	guard *bruteforce.Guard
	codec *session.Codec
	log   *logger.Logger
	tmpl  *template.Template
}

// NewFlow creates a Flow.
func NewFlow(cfg Config, store *credential.Store, pool *credential.Pool, guard *bruteforce.Guard, codec *session.Codec, log *logger.Logger) (*Flow, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperr.Config("%v", err)
	}
	tmpl, err := template.New("login").Parse(formTemplate)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Flow{
		cfg:   cfg,
		store: store,
		pool:  pool,
		guard: guard,
		codec: codec,
		log:   log.WithComponent("login"),
		tmpl:  tmpl,
	}, nil
}

// Path returns the login endpoint path.
func (f *Flow) Path() string { return f.cfg.Path }

// LogoutPath returns the logout endpoint path.
func (f *Flow) LogoutPath() string { return f.cfg.LogoutPath }

// CookieName returns the session cookie name.
func (f *Flow) CookieName() string { return f.cfg.CookieName }

// RedirectToLogin sends the client into the login flow, carrying the
// originally requested path so success can resume it.
func (f *Flow) RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := r.URL.RequestURI()
	http.Redirect(w, r, f.cfg.Path+"?"+f.cfg.RedirectParam+"="+template.URLQueryEscaper(target), http.StatusSeeOther)
}

// ServeForm renders the credential-entry form.
func (f *Flow) ServeForm(w http.ResponseWriter, r *http.Request) {
	f.render(w, r.URL.Query().Get(f.cfg.RedirectParam), "", http.StatusOK)
}

// HandleSubmit processes a POSTed username/password pair. The brute-force
// guard is consulted before any credential work; a blocked key gets a 429
// without spending hashing cost, even if the credentials are correct.
func (f *Flow) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form submission", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	target := r.PostFormValue(f.cfg.RedirectParam)

	key := f.guard.Key(httpx.ClientIP(r), username)
	if blocked, retryAfter := f.guard.Check(key); blocked {
		f.log.Warn("login attempt while blocked", logger.Fields(logger.FieldClient, httpx.ClientIP(r)))
		httpx.WriteRateLimited(w, retryAfter)
		return
	}

	err := f.pool.Verify(r.Context(), f.store, username, password)
	switch {
	case err == nil:
		token, issueErr := f.codec.Issue(username)
		if issueErr != nil {
			f.log.WithError(issueErr).Error("session issuance failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		f.SetCookie(w, token)
		f.log.Info("login succeeded", logger.Fields(logger.FieldUser, username))
		http.Redirect(w, r, sanitizeTarget(target), http.StatusSeeOther)

	case errors.Is(err, credential.ErrPoolSaturated):
		// Fail closed: no slot means no verification, not a free pass.
		f.log.Warn("verification pool saturated")
		httpx.WriteRateLimited(w, 0)

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client gone; nothing useful to write and no failure to record.
		return

	default:
		f.guard.RecordFailure(key)
		f.log.Info("login failed", logger.Fields(logger.FieldClient, httpx.ClientIP(r)))
		f.render(w, target, genericError, http.StatusUnauthorized)
	}
}

// HandleLogout clears the session cookie and returns to the login form.
// Logout is advisory: issued tokens stay valid until expiry, the server
// holds no revocation list.
func (f *Flow) HandleLogout(w http.ResponseWriter, r *http.Request) {
	f.ClearCookie(w)
	http.Redirect(w, r, f.cfg.Path, http.StatusSeeOther)
}

// SetCookie attaches the session token as an HttpOnly, SameSite=Lax cookie
// whose lifetime matches the token TTL.
func (f *Flow) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     f.cfg.CookieName,
		Value:    token,
		Path:     f.cfg.CookiePath,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(f.codec.TTL().Seconds()),
	})
}

// ClearCookie overwrites the session cookie with an immediately expiring
// one.
func (f *Flow) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     f.cfg.CookieName,
		Value:    "",
		Path:     f.cfg.CookiePath,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (f *Flow) render(w http.ResponseWriter, target, errMsg string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := f.tmpl.Execute(w, map[string]string{
		"Action":        f.cfg.Path,
		"RedirectParam": f.cfg.RedirectParam,
		"Target":        sanitizeTarget(target),
		"Error":         errMsg,
	})
	if err != nil {
		f.log.WithError(err).Error("form render failed")
	}
}

// sanitizeTarget confines post-login redirects to local absolute paths, so
// the carried-forward parameter cannot become an open redirect.
func sanitizeTarget(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
