package authcore

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pilab-dev/authcore/cookies"
	"github.com/pilab-dev/authcore/errors"
)

// Request is the transport-neutral inbound envelope. Transport bindings
// fill it from their native request type; the core never reads transport
// bytes directly.
type Request struct {
	Method  string
	Path    string
	URL     *url.URL
	Header  map[string]string
	Cookies cookies.Cookies
	Body    []byte

	auth *Auth
}

// NewRequest builds a Request from the common wire pieces. The cookie
// header is parsed with the defensive codec; rawURL keeps its query.
func NewRequest(method, rawURL, cookieHeader string) Request {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = &url.URL{Path: rawURL}
	}
	return Request{
		Method:  method,
		Path:    u.Path,
		URL:     u,
		Header:  make(map[string]string),
		Cookies: cookies.Parse(cookieHeader),
	}
}

// WithAuth attaches the configured core to the request.
func (r Request) WithAuth(a *Auth) Request {
	r.auth = a
	return r
}

// Auth returns the attached core, nil when none was set.
func (r Request) Auth() *Auth { return r.auth }

// Query returns the named query parameter, "" when absent.
func (r Request) Query(key string) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Query().Get(key)
}

// Cookie returns the named request cookie's value, "" when absent.
func (r Request) Cookie(name string) string {
	return r.Cookies.Value(name)
}

// Response is the transport-neutral outbound envelope. Cookies are kept
// separately from headers so bindings can emit one Set-Cookie line each.
type Response struct {
	Status  int
	Header  map[string]string
	Cookies cookies.Cookies
	Body    []byte
}

func newResponse(status int) Response {
	return Response{
		Status:  status,
		Header:  make(map[string]string),
		Cookies: cookies.New(),
	}
}

// Redirect builds a 302 response to the given location.
func Redirect(location string) Response {
	resp := newResponse(http.StatusFound)
	resp.Header["Location"] = location
	return resp
}

// JSON builds a response with a JSON-encoded body.
func JSON(status int, body any) Response {
	resp := newResponse(status)
	resp.Header["Content-Type"] = "application/json"
	data, err := json.Marshal(body)
	if err != nil {
		return ErrorResponse(errors.NewInternal("encoding response body"))
	}
	resp.Body = data
	return resp
}

// ErrorResponse serializes an error into the envelope. Known *errors.Error
// values keep their status and wire shape; anything else becomes an opaque
// 500 so internal details never leak to the client.
func ErrorResponse(err error) Response {
	e := errors.From(err)
	resp := newResponse(e.Status)
	resp.Header["Content-Type"] = "application/json"
	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		data = []byte(`{"error":"server_error"}`)
	}
	resp.Body = data
	return resp
}

// SetCookie adds a cookie to the response.
func (r *Response) SetCookie(c cookies.Cookie) {
	r.Cookies.SetCookie(c)
}
