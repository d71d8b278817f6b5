// Package navigation restricts which hosts a plan may navigate to.
package navigation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// ErrBlocked is matched by every *BlockedError.
var ErrBlocked = errors.New("navigation blocked")

// BlockedError reports a URL rejected by the guard.
type BlockedError struct {
	URL    string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("navigation to %q blocked: %s", e.URL, e.Reason)
}

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }

// Guard checks navigation targets against host patterns.
//
// Patterns are globs over dot-separated host labels: "*.example.com" matches
// exactly one subdomain level and "**.example.com" matches any depth. Denied
// patterns take precedence over allowed ones. A guard with no allowed patterns
// allows every host that is not denied.
type Guard struct {
	allowed []glob.Glob
	denied  []glob.Glob
	raw     []string
}

// NewGuard compiles the allowed and denied host patterns.
func NewGuard(allowed, denied []string) (*Guard, error) {
	g := &Guard{raw: append([]string(nil), allowed...)}

	for _, pattern := range allowed {
		c, err := compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", pattern, err)
		}
		g.allowed = append(g.allowed, c)
	}

	for _, pattern := range denied {
		c, err := compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", pattern, err)
		}
		g.denied = append(g.denied, c)
	}

	return g, nil
}

func compile(pattern string) (glob.Glob, error) {
	return glob.Compile(strings.ToLower(strings.TrimSpace(pattern)), '.')
}

// Allow returns nil if rawURL may be loaded, or a *BlockedError.
func (g *Guard) Allow(rawURL string) error {
	if g == nil || (len(g.allowed) == 0 && len(g.denied) == 0) {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return &BlockedError{URL: rawURL, Reason: "unparseable URL"}
	}

	switch u.Scheme {
	case "http", "https":
	case "about":
		// about:blank and friends never leave the browser.
		return nil
	default:
		return &BlockedError{URL: rawURL, Reason: fmt.Sprintf("scheme %q not allowed", u.Scheme)}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return &BlockedError{URL: rawURL, Reason: "missing host"}
	}

	for _, p := range g.denied {
		if p.Match(host) {
			return &BlockedError{URL: rawURL, Reason: fmt.Sprintf("host %s is denied", host)}
		}
	}

	if len(g.allowed) == 0 {
		return nil
	}
	for _, p := range g.allowed {
		if p.Match(host) {
			return nil
		}
	}
	return &BlockedError{URL: rawURL, Reason: fmt.Sprintf("host %s is not in the allowlist (%s)", host, strings.Join(g.raw, ", "))}
}

// Enabled reports whether the guard restricts anything.
func (g *Guard) Enabled() bool {
	return g != nil && (len(g.allowed) > 0 || len(g.denied) > 0)
}
