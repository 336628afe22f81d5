// Package gate is the composition root of the access-control module. Per
// request it resolves the matching access rule, verifies the caller by the
// rule's mode, applies brute-force throttling, checks authorization, and
// either passes the request on with a principal attached or writes a
// terminal response. It implements the httpfilter contract shared by all
// modules in the host's chain.
package gate

import (
	"context"
	"errors"
	"net/http"

	"github.com/kbukum/authgate/apperr"
	"github.com/kbukum/authgate/authctx"
	"github.com/kbukum/authgate/bruteforce"
	"github.com/kbukum/authgate/credential"
	"github.com/kbukum/authgate/httpfilter"
	"github.com/kbukum/authgate/internal/httpx"
	"github.com/kbukum/authgate/login"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/rules"
	"github.com/kbukum/authgate/session"
)

// Gate decides ALLOW/DENY/CHALLENGE for every request.
type Gate struct {
	realm   string
	log     *logger.Logger
	matcher *rules.Matcher
	store   *credential.Store
	codec   *session.Codec
	guard   *bruteforce.Guard
	pool    *credential.Pool
	flow    *login.Flow
	metrics *gateMetrics
}

// New builds a Gate from configuration. All credential and key material is
// loaded here, before serving begins; any configuration problem is fatal
// now rather than surfacing at request time.
func New(cfg Config, log *logger.Logger) (*Gate, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		if apperr.CodeOf(err) == apperr.CodeConfigInvalid || apperr.CodeOf(err) == apperr.CodeStoreIO {
			return nil, err
		}
		return nil, apperr.Config("%v", err)
	}

	matcher, err := rules.NewMatcher(cfg.Rules, cfg.DefaultRule)
	if err != nil {
		return nil, err
	}
	store, err := credential.FromConfig(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	codec, err := session.NewCodec(cfg.Session)
	if err != nil {
		return nil, err
	}
	guard, err := bruteforce.New(cfg.RateLimit)
	if err != nil {
		return nil, apperr.Config("%v", err)
	}
	pool := credential.NewPool(cfg.VerifyPool)
	flow, err := login.NewFlow(cfg.Login, store, pool, guard, codec, log)
	if err != nil {
		return nil, err
	}

	return &Gate{
		realm:   cfg.Realm,
		log:     log.WithComponent("gate"),
		matcher: matcher,
		store:   store,
		codec:   codec,
		guard:   guard,
		pool:    pool,
		flow:    flow,
		metrics: newGateMetrics(),
	}, nil
}

// Store exposes the credential store so the host can swap in a reloaded
// snapshot.
func (g *Gate) Store() *credential.Store { return g.store }

// Codec exposes the session codec for signing-key rotation.
func (g *Gate) Codec() *session.Codec { return g.codec }

// StartSweeper launches the guard's background memory-hygiene sweep; it
// stops when the context is cancelled.
func (g *Gate) StartSweeper(ctx context.Context) { g.guard.StartSweeper(ctx) }

// Filter implements httpfilter.Filter.
func (g *Gate) Filter(w http.ResponseWriter, r *http.Request) httpfilter.Outcome {
	log := g.log.WithRequestID(httpfilter.RequestIDFrom(r.Context()))

	// Login endpoints are owned by the gate itself. Normalized so
	// "/login/" reaches the flow the same way "/login" does.
	switch rules.NormalizePath(r.URL.Path) {
	case g.flow.Path():
		g.serveLogin(w, r)
		return httpfilter.Responded()
	case g.flow.LogoutPath():
		g.flow.HandleLogout(w, r)
		return httpfilter.Responded()
	}

	rule := g.matcher.Resolve(r.URL.Path)
	switch rule.Mode {
	case rules.ModeNone:
		g.metrics.record(r.Context(), outcomeOpen, rule.Mode)
		return httpfilter.Continue(r)
	case rules.ModeBasic:
		return g.filterBasic(w, r, rule, log)
	default:
		return g.filterSession(w, r, rule, log)
	}
}

func (g *Gate) serveLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		g.flow.ServeForm(w, r)
	case http.MethodPost:
		g.flow.HandleSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// filterBasic handles rules demanding an Authorization header on every
// request. The guard runs before credential verification so a blocked
// client never costs a hash computation.
func (g *Gate) filterBasic(w http.ResponseWriter, r *http.Request, rule rules.Rule, log *logger.Logger) httpfilter.Outcome {
	username, password, ok := r.BasicAuth()
	if !ok {
		g.metrics.record(r.Context(), outcomeUnauthorized, rule.Mode)
		httpx.WriteBasicChallenge(w, g.realm)
		return httpfilter.Responded()
	}

	key := g.guard.Key(httpx.ClientIP(r), username)
	if blocked, retryAfter := g.guard.Check(key); blocked {
		g.metrics.record(r.Context(), outcomeRateLimited, rule.Mode)
		log.Warn("blocked client on basic rule", logger.Fields(
			logger.FieldClient, httpx.ClientIP(r),
			logger.FieldPath, r.URL.Path,
		))
		httpx.WriteRateLimited(w, retryAfter)
		return httpfilter.Responded()
	}

	err := g.pool.Verify(r.Context(), g.store, username, password)
	switch {
	case err == nil:
		return g.admit(w, r, rule, authctx.Principal{Username: username, Method: authctx.MethodBasic}, log)

	case errors.Is(err, credential.ErrPoolSaturated):
		g.metrics.record(r.Context(), outcomeRateLimited, rule.Mode)
		log.Warn("verification pool saturated", logger.Fields(logger.FieldPath, r.URL.Path))
		httpx.WriteRateLimited(w, 0)
		return httpfilter.Responded()

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Aborted mid-verification: no response to write, no failure to
		// count — the increment happens entirely or not at all.
		return httpfilter.Responded()

	default:
		g.guard.RecordFailure(key)
		g.metrics.record(r.Context(), outcomeUnauthorized, rule.Mode)
		log.Info("basic auth failed", logger.Fields(
			logger.FieldClient, httpx.ClientIP(r),
			logger.FieldPath, r.URL.Path,
		))
		httpx.WriteBasicChallenge(w, g.realm)
		return httpfilter.Responded()
	}
}

// filterSession handles rules demanding a session cookie, redirecting into
// the login flow when the cookie is absent, expired, or damaged.
func (g *Gate) filterSession(w http.ResponseWriter, r *http.Request, rule rules.Rule, log *logger.Logger) httpfilter.Outcome {
	cookie, err := r.Cookie(g.flow.CookieName())
	if err != nil {
		return g.toLogin(w, r, rule)
	}

	subject, err := g.codec.Verify(cookie.Value)
	if err != nil {
		// Expired sessions are routine; anything else failed the MAC and
		// is worth a distinct diagnostic.
		if apperr.CodeOf(err) == apperr.CodeTokenExpired {
			log.Debug("session expired", logger.Fields(logger.FieldPath, r.URL.Path))
		} else {
			log.Warn("session token rejected", logger.Fields(
				logger.FieldClient, httpx.ClientIP(r),
				logger.FieldPath, r.URL.Path,
				logger.FieldError, err.Error(),
			))
		}
		return g.toLogin(w, r, rule)
	}

	return g.admit(w, r, rule, authctx.Principal{Username: subject, Method: authctx.MethodSession}, log)
}

// admit applies the authorization step after successful authentication:
// the matched rule's principal set must additionally admit the caller.
func (g *Gate) admit(w http.ResponseWriter, r *http.Request, rule rules.Rule, p authctx.Principal, log *logger.Logger) httpfilter.Outcome {
	if !rule.Allows(p.Username) {
		g.metrics.record(r.Context(), outcomeForbidden, rule.Mode)
		log.Info("principal not admitted", logger.Fields(
			logger.FieldUser, p.Username,
			logger.FieldRule, rule.Pattern,
			logger.FieldMode, string(rule.Mode),
			logger.FieldPath, r.URL.Path,
		))
		httpx.WriteForbidden(w)
		return httpfilter.Responded()
	}

	g.metrics.record(r.Context(), outcomeAllowed, rule.Mode)
	return httpfilter.Continue(r.WithContext(authctx.With(r.Context(), p)))
}

func (g *Gate) toLogin(w http.ResponseWriter, r *http.Request, rule rules.Rule) httpfilter.Outcome {
	g.metrics.record(r.Context(), outcomeRedirect, rule.Mode)
	g.flow.RedirectToLogin(w, r)
	return httpfilter.Responded()
}
