// Package rules maps request paths to access rules: the auth mode required
// and the principals permitted. Matching is longest-prefix-wins over
// configured path patterns, segment-aware so "/admin" never captures
// "/administrator".
package rules

import (
	"fmt"
	"strings"

	"github.com/kbukum/authgate/apperr"
)

// Mode is the authentication mode a rule demands.
type Mode string

const (
	// ModeNone passes requests through with no principal.
	ModeNone Mode = "none"

	// ModeBasic requires an Authorization: Basic header on every request.
	ModeBasic Mode = "basic"

	// ModeFormSession requires a valid session cookie, redirecting to the
	// login form otherwise.
	ModeFormSession Mode = "form_session"
)

// ParseMode parses a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeNone:
		return ModeNone, nil
	case ModeBasic:
		return ModeBasic, nil
	case ModeFormSession:
		return ModeFormSession, nil
	default:
		return "", fmt.Errorf("unknown auth mode %q (use none, basic, or form_session)", s)
	}
}

// Rule binds a path pattern to a required auth mode and an allowed
// principal set. Loadable from YAML/env via mapstructure tags.
type Rule struct {
	// Pattern is an absolute path prefix, e.g. "/admin". "/" matches
	// everything.
	Pattern string `yaml:"pattern" mapstructure:"pattern"`

	// Mode is the required auth mode.
	Mode Mode `yaml:"mode" mapstructure:"mode"`

	// AllowPrincipals lists the principals this rule admits after
	// successful authentication. "*" admits any authenticated principal.
	// Ignored for ModeNone.
	AllowPrincipals []string `yaml:"allow_principals" mapstructure:"allow_principals"`
}

// Allows reports whether the rule's principal set admits the principal.
func (r Rule) Allows(principal string) bool {
	for _, p := range r.AllowPrincipals {
		if p == "*" || p == principal {
			return true
		}
	}
	return false
}

// Matcher resolves request paths to rules.
type Matcher struct {
	// rules hold compiled patterns in declaration order; ties at equal
	// pattern length go to the first declared.
	rules []compiledRule

	// fallback applies when no pattern matches.
	fallback Rule
}

type compiledRule struct {
	rule    Rule
	pattern string // normalized, no trailing slash (except root)
}

// DefaultFallback is the rule used for unmatched paths when no explicit
// default is configured: deny-by-default via the most restrictive
// interactive mode, admitting nobody.
var DefaultFallback = Rule{
	Pattern: "",
	Mode:    ModeFormSession,
}

// NewMatcher compiles a rule set. Patterns must be absolute; duplicates
// are a configuration error. A zero fallback selects DefaultFallback.
func NewMatcher(ruleList []Rule, fallback Rule) (*Matcher, error) {
	if fallback.Mode == "" {
		fallback = DefaultFallback
	}
	if _, err := ParseMode(string(fallback.Mode)); err != nil {
		return nil, apperr.Config("default rule: %v", err)
	}

	m := &Matcher{fallback: fallback}
	seen := make(map[string]bool, len(ruleList))
	for _, r := range ruleList {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, apperr.Config("rule pattern %q must start with /", r.Pattern)
		}
		if _, err := ParseMode(string(r.Mode)); err != nil {
			return nil, apperr.Config("rule %q: %v", r.Pattern, err)
		}
		pattern := NormalizePath(r.Pattern)
		if seen[pattern] {
			return nil, apperr.Config("duplicate rule pattern %q", r.Pattern)
		}
		seen[pattern] = true
		m.rules = append(m.rules, compiledRule{rule: r, pattern: pattern})
	}
	return m, nil
}

// Resolve maps a request path to exactly one rule: the longest matching
// prefix wins, an exact match beats a prefix match of equal length, and
// remaining ties go to the first-declared rule. Unmatched paths get the
// fallback rule.
func (m *Matcher) Resolve(path string) Rule {
	path = NormalizePath(path)

	best := -1
	bestLen := -1
	bestExact := false
	for i, cr := range m.rules {
		exact := cr.pattern == path
		if !exact && !prefixMatch(cr.pattern, path) {
			continue
		}
		l := len(cr.pattern)
		if l > bestLen || (l == bestLen && exact && !bestExact) {
			best, bestLen, bestExact = i, l, exact
		}
	}
	if best < 0 {
		return m.fallback
	}
	return m.rules[best].rule
}

// NormalizePath strips the trailing slash so "/admin/" and "/admin"
// compare equal; the root path stays "/".
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p != "/" && strings.HasSuffix(p, "/") {
		return strings.TrimRight(p, "/")
	}
	return p
}

// prefixMatch reports whether pattern is a segment-aligned prefix of path.
func prefixMatch(pattern, path string) bool {
	if pattern == "/" {
		return true
	}
	return strings.HasPrefix(path, pattern+"/")
}
