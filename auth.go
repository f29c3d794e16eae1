// Package authcore is an embeddable authentication core. It orchestrates
// OAuth2 sign-in flows against a pluggable provider set and persistence
// adapter, and exposes its HTTP surface through a transport-neutral
// request/response envelope so embedders can mount it on any framework.
package authcore

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pilab-dev/authcore/cookies"
	"github.com/pilab-dev/authcore/domain"
	"github.com/pilab-dev/authcore/providers"
	"github.com/pilab-dev/authcore/session"
)

// DecisionKind tells the flow how a SignIn hook ruled.
type DecisionKind int

const (
	// DecisionAllow lets the flow proceed.
	DecisionAllow DecisionKind = iota
	// DecisionRedirect aborts the flow with a redirect to Decision.URL.
	DecisionRedirect
	// DecisionDeny aborts the flow with a 403 carrying Decision.Message.
	DecisionDeny
)

// Decision is the verdict of a SignIn hook.
type Decision struct {
	Kind    DecisionKind
	URL     string
	Message string
}

// Allow permits the sign-in to continue.
func Allow() Decision { return Decision{Kind: DecisionAllow} }

// RedirectTo aborts the sign-in and sends the browser elsewhere.
func RedirectTo(url string) Decision { return Decision{Kind: DecisionRedirect, URL: url} }

// Deny rejects the sign-in with a message shown in the error body.
func Deny(message string) Decision { return Decision{Kind: DecisionDeny, Message: message} }

// SignInContext carries everything a SignIn hook may inspect. Account is
// nil when the provider identity has not been seen before.
type SignInContext struct {
	User    *domain.User
	Account *domain.Account
	Profile domain.Profile
}

// Callbacks are the optional embedder hooks.
type Callbacks struct {
	// SignIn runs after profile resolution and before any write. A nil
	// hook allows everything.
	SignIn func(SignInContext) Decision
	// Redirect validates or rewrites a post-sign-in redirect target. The
	// default allows same-origin targets only.
	Redirect func(target string, base *url.URL) string
}

// SessionOptions select and tune the session strategy.
type SessionOptions struct {
	// Strategy is "database" (default) or "jwt".
	Strategy string
	// MaxAge is the session lifetime, 30 days when zero.
	MaxAge time.Duration
	// UpdateAge is the sliding refresh threshold for database sessions.
	UpdateAge time.Duration
	// Secret signs jwt-strategy session tokens.
	Secret []byte
	// GenerateToken overrides the opaque token generator.
	GenerateToken func() string
}

// CookieOptions are the attribute defaults applied to every cookie the
// flow sets.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite cookies.SameSite
}

// Options configure an Auth instance.
type Options struct {
	// BaseURL is the externally visible origin the flow runs under,
	// e.g. "https://auth.example.com". Callback URLs and redirect
	// validation derive from it. Required.
	BaseURL string
	// DefaultRedirectURL is where sign-ins land when the request names
	// no target. Defaults to BaseURL.
	DefaultRedirectURL string
	// Providers is the ordered provider set. At least one is required.
	Providers []providers.Provider
	// Adapter is the persistence backend. Required unless the jwt
	// session strategy is used and no registration should persist.
	Adapter domain.Adapter
	// Callbacks are the optional embedder hooks.
	Callbacks Callbacks
	// Session selects the session strategy.
	Session SessionOptions
	// Cookie sets attribute defaults for flow cookies.
	Cookie CookieOptions
}

// Auth is a configured authentication core. Construct it once with New
// and share it; it is safe for concurrent use.
type Auth struct {
	registry  *providers.Registry
	adapter   domain.Adapter
	sessions  *session.Manager
	callbacks Callbacks
	baseURL   *url.URL

	defaultRedirectURL string
	cookie             CookieOptions
}

// New validates the options and builds an Auth.
func New(opts Options) (*Auth, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("authcore: BaseURL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("authcore: BaseURL %q is not an absolute URL", opts.BaseURL)
	}
	if len(opts.Providers) == 0 {
		return nil, errors.New("authcore: at least one provider is required")
	}

	registry := providers.NewRegistry(opts.Providers...)

	sessions, err := session.NewManager(session.Config{
		Strategy:      opts.Session.Strategy,
		MaxAge:        opts.Session.MaxAge,
		UpdateAge:     opts.Session.UpdateAge,
		Secret:        opts.Session.Secret,
		GenerateToken: opts.Session.GenerateToken,
	}, opts.Adapter)
	if err != nil {
		return nil, fmt.Errorf("authcore: %w", err)
	}

	cookie := opts.Cookie
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if cookie.SameSite == "" {
		cookie.SameSite = cookies.SameSiteLax
	}
	if base.Scheme == "https" {
		cookie.Secure = true
	}

	redirectURL := opts.DefaultRedirectURL
	if redirectURL == "" {
		redirectURL = base.String()
	}

	return &Auth{
		registry:           registry,
		adapter:            opts.Adapter,
		sessions:           sessions,
		callbacks:          opts.Callbacks,
		baseURL:            base,
		defaultRedirectURL: redirectURL,
		cookie:             cookie,
	}, nil
}

// Providers returns the provider registry.
func (a *Auth) Providers() *providers.Registry { return a.registry }

// Adapter returns the persistence adapter, nil when none is configured.
func (a *Auth) Adapter() domain.Adapter { return a.adapter }

// Sessions returns the session manager.
func (a *Auth) Sessions() *session.Manager { return a.sessions }

// Hooks returns the configured callbacks.
func (a *Auth) Hooks() Callbacks { return a.callbacks }

// BaseURL returns the configured origin.
func (a *Auth) BaseURL() *url.URL { return a.baseURL }

// DefaultRedirectURL returns the fallback post-sign-in target.
func (a *Auth) DefaultRedirectURL() string { return a.defaultRedirectURL }

// CallbackURL returns the absolute callback endpoint for a provider.
func (a *Auth) CallbackURL(providerID string) string {
	return a.baseURL.JoinPath("callback", providerID).String()
}

// NewCookie returns a cookie carrying the configured attribute defaults.
func (a *Auth) NewCookie(name, value string, maxAge time.Duration) cookies.Cookie {
	c := cookies.Cookie{
		Name:     name,
		Value:    value,
		Path:     a.cookie.Path,
		Domain:   a.cookie.Domain,
		Secure:   a.cookie.Secure,
		HttpOnly: true,
		SameSite: a.cookie.SameSite,
	}
	if maxAge > 0 {
		c.MaxAge = int64(maxAge.Seconds())
	} else if maxAge < 0 {
		c.MaxAge = -1
	}
	return c
}

// ValidateRedirect applies the Redirect hook, or the same-origin default,
// to a requested post-sign-in target. It always returns a usable URL.
func (a *Auth) ValidateRedirect(target string) string {
	if a.callbacks.Redirect != nil {
		if out := a.callbacks.Redirect(target, a.baseURL); out != "" {
			return out
		}
		return a.defaultRedirectURL
	}
	if target == "" {
		return a.defaultRedirectURL
	}
	u, err := url.Parse(target)
	if err != nil {
		return a.defaultRedirectURL
	}
	// Relative targets stay on our origin.
	if u.Scheme == "" && u.Host == "" {
		return target
	}
	if u.Scheme == a.baseURL.Scheme && u.Host == a.baseURL.Host {
		return target
	}
	return a.defaultRedirectURL
}
