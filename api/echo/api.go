// Package echo mounts the authentication flow on an Echo router. It is a
// thin binding: it translates between Echo's request/response types and
// the transport-neutral envelope, nothing more.
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/pilab-dev/authcore"
	"github.com/pilab-dev/authcore/cookies"
	"github.com/pilab-dev/authcore/domain"
	"github.com/pilab-dev/authcore/flow"
)

// API binds a configured authentication core to Echo routes.
type API struct {
	auth *authcore.Auth
}

// NewAPI wraps the core for route registration.
func NewAPI(auth *authcore.Auth) *API {
	return &API{auth: auth}
}

// RegisterRoutes mounts the flow endpoints under the given prefix
// ("/auth" when empty).
func (a *API) RegisterRoutes(e *echo.Echo, prefix string) {
	if prefix == "" {
		prefix = "/auth"
	}
	g := e.Group(prefix)

	g.GET("/login/:provider", a.loginHandler)
	g.POST("/login/:provider", a.loginHandler)
	g.GET("/callback/:provider", a.callbackHandler)
	g.GET("/csrf", a.csrfHandler)
	g.GET("/providers", a.providersHandler)
	g.GET("/signout", a.signOutHandler)
	g.POST("/signout", a.signOutHandler)
}

func (a *API) loginHandler(c echo.Context) error {
	resp, err := flow.Authorize(c.Request().Context(), a.request(c), c.Param("provider"))
	return a.write(c, resp, err)
}

func (a *API) callbackHandler(c echo.Context) error {
	resp, err := flow.Callback(c.Request().Context(), a.request(c), c.Param("provider"))
	return a.write(c, resp, err)
}

func (a *API) csrfHandler(c echo.Context) error {
	resp, err := flow.CSRF(c.Request().Context(), a.request(c))
	return a.write(c, resp, err)
}

func (a *API) providersHandler(c echo.Context) error {
	resp, err := flow.Providers(c.Request().Context(), a.request(c))
	return a.write(c, resp, err)
}

func (a *API) signOutHandler(c echo.Context) error {
	resp, err := flow.SignOut(c.Request().Context(), a.request(c))
	return a.write(c, resp, err)
}

// request translates the Echo request into the envelope.
func (a *API) request(c echo.Context) authcore.Request {
	req := authcore.NewRequest(
		c.Request().Method,
		c.Request().URL.String(),
		c.Request().Header.Get("Cookie"),
	).WithAuth(a.auth)
	for key := range c.Request().Header {
		req.Header[key] = c.Request().Header.Get(key)
	}
	return req
}

// write translates the envelope back onto the wire.
func (a *API) write(c echo.Context, resp authcore.Response, err error) error {
	if err != nil {
		resp = authcore.ErrorResponse(err)
	}
	header := c.Response().Header()
	for key, value := range resp.Header {
		header.Set(key, value)
	}
	for _, setCookie := range resp.Cookies.SetCookieHeaders() {
		header.Add("Set-Cookie", setCookie)
	}
	if len(resp.Body) == 0 {
		return c.NoContent(resp.Status)
	}
	return c.Blob(resp.Status, header.Get("Content-Type"), resp.Body)
}

// contextUserKey stores the resolved session user on the Echo context.
const contextUserKey = "authcore.session_user"

// RequireSession is middleware that rejects requests without a valid
// session cookie and stashes the resolved user on the context.
func (a *API) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		parsed := cookies.Parse(c.Request().Header.Get("Cookie"))
		token := parsed.Value(flow.SessionCookie)
		su, err := a.auth.Sessions().Resolve(c.Request().Context(), token)
		if err != nil {
			log.Debug().Err(err).Msg("session resolution failed")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
		}
		c.Set(contextUserKey, su)
		return next(c)
	}
}

// SessionUser returns the user stashed by RequireSession, nil when the
// middleware did not run.
func SessionUser(c echo.Context) *domain.SessionUser {
	if su, ok := c.Get(contextUserKey).(*domain.SessionUser); ok {
		return su
	}
	return nil
}
