// Package flow orchestrates the sign-in endpoints: authorize, callback,
// CSRF issuance and provider listing. Handlers consume the transport
// envelope and return one; failures surface as status-bearing errors the
// binding serializes.
package flow

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/pilab-dev/authcore"
	"github.com/pilab-dev/authcore/domain"
	"github.com/pilab-dev/authcore/errors"
	"github.com/pilab-dev/authcore/providers"
)

// Cookie names used by the flow.
const (
	StateCookie       = "state"
	CSRFCookie        = "csrf"
	SessionCookie     = "session_token"
	CallbackURLCookie = "callback-url"
)

// stateTTL bounds how long an authorize redirect stays redeemable.
const stateTTL = 10 * time.Minute

// maxProfileBody caps how much of a userinfo response is read.
const maxProfileBody = 1 << 20

// resolveOAuth2 guards the per-provider handlers: the request must carry
// an auth context and the named provider must be an OAuth-typed provider
// with the OAuth2 capability. Dispatch is keyed on the declared type, so
// an OIDC/Email/Credentials provider is rejected as unsupported even if
// it happens to implement the OAuth2 interface.
func resolveOAuth2(req authcore.Request, providerID string) (*authcore.Auth, providers.OAuth2Provider, error) {
	auth := req.Auth()
	if auth == nil {
		return nil, nil, errors.NewUnauthorized("missing auth context")
	}
	provider, ok := auth.Providers().Get(providerID)
	if !ok {
		return nil, nil, errors.NewNotFound(fmt.Sprintf("unknown provider: %s", providerID))
	}
	if provider.Type() != domain.ProviderTypeOAuth {
		return nil, nil, errors.NewUnsupportedProviderType(string(provider.Type()))
	}
	oauthProvider, ok := providers.AsOAuth2(provider)
	if !ok {
		return nil, nil, errors.NewInternal(fmt.Sprintf("provider %s lacks the OAuth2 capability", providerID))
	}
	return auth, oauthProvider, nil
}

// requireAuth guards the provider-independent handlers.
func requireAuth(req authcore.Request) (*authcore.Auth, error) {
	if auth := req.Auth(); auth != nil {
		return auth, nil
	}
	return nil, errors.NewUnauthorized("missing auth context")
}

// Authorize starts a sign-in against the named provider. For OAuth
// providers it answers a 302 to the provider's authorization endpoint and
// plants the state and CSRF cookies the callback will verify.
func Authorize(ctx context.Context, req authcore.Request, providerID string) (authcore.Response, error) {
	auth, oauthProvider, err := resolveOAuth2(req, providerID)
	if err != nil {
		return authcore.Response{}, err
	}

	conf := oauthConfig(auth, oauthProvider)
	state := uuid.NewString()

	var opts []oauth2.AuthCodeOption
	for key, values := range oauthProvider.AuthEndpoint().Params {
		if key == "scope" || len(values) == 0 {
			continue
		}
		opts = append(opts, oauth2.SetAuthURLParam(key, values[0]))
	}

	log.Debug().
		Str("provider", providerID).
		Msg("starting authorization flow")

	resp := authcore.Redirect(conf.AuthCodeURL(state, opts...))
	resp.SetCookie(auth.NewCookie(StateCookie, state, stateTTL))
	resp.SetCookie(auth.NewCookie(CSRFCookie, uuid.NewString(), stateTTL))
	if target := req.Query("callback_url"); target != "" {
		resp.SetCookie(auth.NewCookie(CallbackURLCookie, auth.ValidateRedirect(target), stateTTL))
	}
	return resp, nil
}

// Callback finishes a sign-in: it verifies the state round-trip, exchanges
// the authorization code, fetches and maps the profile, resolves or
// registers the user, issues a session and redirects.
func Callback(ctx context.Context, req authcore.Request, providerID string) (authcore.Response, error) {
	auth, oauthProvider, err := resolveOAuth2(req, providerID)
	if err != nil {
		return authcore.Response{}, err
	}
	if auth.Adapter() == nil {
		return authcore.Response{}, errors.NewInternal("no adapter configured")
	}

	if providerErr := req.Query("error"); providerErr != "" {
		log.Warn().
			Str("provider", providerID).
			Str("error", providerErr).
			Msg("provider rejected authorization")
		return authcore.Response{}, errors.NewProviderRejected(providerErr)
	}
	code := req.Query("code")
	if code == "" {
		return authcore.Response{}, errors.NewInvalidRequest("missing authorization code")
	}
	state := req.Query("state")
	if state == "" || state != req.Cookie(StateCookie) {
		return authcore.Response{}, errors.NewInvalidRequest("state mismatch")
	}

	conf := oauthConfig(auth, oauthProvider)
	exchanged, err := conf.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("provider", providerID).Msg("code exchange failed")
		return authcore.Response{}, errors.NewExchangeFailed("authorization code exchange failed")
	}
	token := tokenFromOAuth2(exchanged)

	profile, err := fetchProfile(ctx, conf, exchanged, oauthProvider)
	if err != nil {
		return authcore.Response{}, err
	}

	user := oauthProvider.MapProfile(profile)
	if user == nil {
		return authcore.Response{}, errors.NewProfileFetchFailed("provider returned no usable profile")
	}
	// The raw profile email is authoritative over whatever the mapping set.
	if profile.Email != "" {
		user.Email = profile.Email
	}

	accountID := domain.ProviderAccountID{
		ProviderID:        providerID,
		ProviderAccountID: profile.Subject(),
	}
	existing, err := auth.Adapter().GetUserByAccount(ctx, accountID)
	if err != nil {
		return authcore.Response{}, errors.NewInternal("resolving account")
	}
	existingAccount, err := auth.Adapter().GetAccount(ctx, accountID)
	if err != nil {
		return authcore.Response{}, errors.NewInternal("resolving account")
	}

	hookUser := user
	if existing != nil {
		hookUser = existing
	}
	if hook := auth.Hooks().SignIn; hook != nil {
		decision := hook(authcore.SignInContext{User: hookUser, Account: existingAccount, Profile: profile})
		switch decision.Kind {
		case authcore.DecisionDeny:
			msg := decision.Message
			if msg == "" {
				msg = "sign-in denied"
			}
			return authcore.Response{}, errors.NewForbidden(msg)
		case authcore.DecisionRedirect:
			return authcore.Redirect(auth.ValidateRedirect(decision.URL)), nil
		}
	}

	if existing != nil {
		return signIn(ctx, req, existing.ID)
	}
	return register(ctx, req, user, accountID, oauthProvider.Type(), &token)
}

// signIn issues a session for a known user and redirects.
func signIn(ctx context.Context, req authcore.Request, userID string) (authcore.Response, error) {
	auth := req.Auth()
	sess, err := auth.Sessions().Issue(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("issuing session")
		return authcore.Response{}, errors.NewInternal("creating session")
	}

	log.Info().Str("user_id", userID).Msg("user signed in")

	resp := authcore.Redirect(auth.ValidateRedirect(req.Cookie(CallbackURLCookie)))
	attachSessionCookies(&resp, req, sess)
	return resp, nil
}

// register creates the user, links the provider account, then signs in.
// The email-uniqueness check runs before any write.
func register(ctx context.Context, req authcore.Request, user *domain.User, accountID domain.ProviderAccountID, providerType domain.ProviderType, token *domain.Token) (authcore.Response, error) {
	auth := req.Auth()

	if user.Email != "" {
		owner, err := auth.Adapter().GetUserByEmail(ctx, user.Email)
		if err != nil {
			return authcore.Response{}, errors.NewInternal("checking email uniqueness")
		}
		if owner != nil {
			return authcore.Response{}, errors.NewForbidden("email is already registered")
		}
	}

	created, err := auth.Adapter().CreateUser(ctx, *user)
	if err != nil {
		if stderrors.Is(err, domain.ErrDuplicate) {
			return authcore.Response{}, errors.NewForbidden("email is already registered")
		}
		log.Error().Err(err).Msg("creating user")
		return authcore.Response{}, errors.NewInternal("creating user")
	}

	if _, err := auth.Adapter().LinkAccount(ctx, domain.Account{
		UserID:            created.ID,
		ProviderID:        accountID.ProviderID,
		ProviderType:      providerType,
		ProviderAccountID: accountID.ProviderAccountID,
		Token:             token,
	}); err != nil {
		log.Error().Err(err).Str("user_id", created.ID).Msg("linking account")
		return authcore.Response{}, errors.NewInternal("linking account")
	}

	log.Info().
		Str("user_id", created.ID).
		Str("provider", accountID.ProviderID).
		Msg("registered new user")

	return signIn(ctx, req, created.ID)
}

// CSRF issues a fresh CSRF token as both a cookie and a JSON body.
func CSRF(_ context.Context, req authcore.Request) (authcore.Response, error) {
	auth, err := requireAuth(req)
	if err != nil {
		return authcore.Response{}, err
	}
	token := uuid.NewString()

	resp := authcore.JSON(http.StatusOK, map[string]string{"csrf_token": token})
	resp.SetCookie(auth.NewCookie(CSRFCookie, token, stateTTL))
	return resp, nil
}

// Providers lists the configured providers as {id, name, type} descriptors.
func Providers(_ context.Context, req authcore.Request) (authcore.Response, error) {
	auth, err := requireAuth(req)
	if err != nil {
		return authcore.Response{}, err
	}
	return authcore.JSON(http.StatusOK, auth.Providers().Descriptors()), nil
}

// SignOut destroys the current session, if any, and clears its cookie.
func SignOut(ctx context.Context, req authcore.Request) (authcore.Response, error) {
	auth, err := requireAuth(req)
	if err != nil {
		return authcore.Response{}, err
	}
	if token := req.Cookie(SessionCookie); token != "" {
		if err := auth.Sessions().Destroy(ctx, token); err != nil {
			log.Warn().Err(err).Msg("destroying session")
		}
	}
	resp := authcore.Redirect(auth.DefaultRedirectURL())
	resp.SetCookie(auth.NewCookie(SessionCookie, "", -1))
	return resp, nil
}

// oauthConfig builds the x/oauth2 configuration for one provider.
func oauthConfig(auth *authcore.Auth, p providers.OAuth2Provider) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID(),
		ClientSecret: p.ClientSecret(),
		RedirectURL:  auth.CallbackURL(p.ID()),
		Scopes:       strings.Fields(p.AuthEndpoint().Params.Get("scope")),
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthEndpoint().URL,
			TokenURL: p.TokenEndpoint().URL,
		},
	}
}

// tokenFromOAuth2 converts an exchanged token into the domain shape,
// keeping the absolute expiry.
func tokenFromOAuth2(tok *oauth2.Token) domain.Token {
	token := domain.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		token.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}
	return token
}

// fetchProfile retrieves and decodes the provider's userinfo document
// using the freshly exchanged token.
func fetchProfile(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token, p providers.OAuth2Provider) (domain.Profile, error) {
	client := conf.Client(ctx, tok)

	resp, err := client.Get(p.ProfileEndpoint().String())
	if err != nil {
		log.Warn().Err(err).Str("provider", p.ID()).Msg("profile fetch failed")
		return domain.Profile{}, errors.NewProfileFetchFailed("fetching profile failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Profile{}, errors.NewProfileFetchFailed(fmt.Sprintf("profile endpoint returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return domain.Profile{}, errors.NewProfileFetchFailed("reading profile response")
	}
	var profile domain.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return domain.Profile{}, errors.NewProfileFetchFailed("decoding profile response")
	}
	return profile, nil
}

// attachSessionCookies sets the session cookie and clears the one-shot
// flow cookies.
func attachSessionCookies(resp *authcore.Response, req authcore.Request, sess domain.Session) {
	auth := req.Auth()
	resp.SetCookie(auth.NewCookie(SessionCookie, sess.Token, time.Until(sess.ExpiresAt)))
	resp.SetCookie(auth.NewCookie(StateCookie, "", -1))
	if req.Cookie(CallbackURLCookie) != "" {
		resp.SetCookie(auth.NewCookie(CallbackURLCookie, "", -1))
	}
}
