// Package cookies implements a defensive codec for Cookie and Set-Cookie
// header values. Parsing is best-effort and never fails: malformed input
// must not take down request handling.
package cookies

import (
	"sort"
	"strconv"
	"strings"
)

// MaxCookieSize is the conventional upper bound for a single serialized
// cookie. Cookies above this size are not chunked across multiple
// Set-Cookie headers; oversized values are passed through as-is. This is a
// known limitation.
const MaxCookieSize = 4096

// Reserved name prefixes. A prefixed cookie has the implied flag applied
// and the prefix stripped from the stored name.
const (
	SecurePrefix = "__Secure-"
	HostPrefix   = "__Host-"
)

// SameSite is the SameSite cookie attribute. The empty value means the
// attribute is unset and is omitted on serialization.
type SameSite string

const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
	SameSiteNone   SameSite = "None"
)

// ParseSameSite maps an attribute value onto a SameSite constant. Unknown
// values fall back to Strict, the safe default.
func ParseSameSite(s string) SameSite {
	switch s {
	case "Strict":
		return SameSiteStrict
	case "Lax":
		return SameSiteLax
	case "None":
		return SameSiteNone
	default:
		return SameSiteStrict
	}
}

// Cookie is a single cookie with its attributes. Zero-valued attributes are
// treated as unset and omitted on serialization.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Secure   bool
	HttpOnly bool
	SameSite SameSite
	// Expires is a Unix timestamp in seconds. Zero means unset.
	Expires int64
	// MaxAge is the cookie lifetime in seconds. Zero means unset.
	MaxAge int64
}

// String serializes the cookie as a Set-Cookie header value: name=value
// followed by the attributes in a fixed order, each only if set.
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.SameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(string(c.SameSite))
	}
	if c.Expires != 0 {
		b.WriteString("; Expires=")
		b.WriteString(strconv.FormatInt(c.Expires, 10))
	}
	if c.MaxAge != 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.FormatInt(c.MaxAge, 10))
	}
	return b.String()
}

// Cookies maps cookie names to cookies. Duplicate names within one header
// value are last-write-wins.
type Cookies map[string]Cookie

// New returns an empty cookie set.
func New() Cookies {
	return make(Cookies)
}

// Set stores a plain name=value cookie, replacing the value of an existing
// cookie with the same name but keeping its attributes.
func (cs Cookies) Set(name, value string) {
	c, ok := cs[name]
	if !ok {
		cs[name] = Cookie{Name: name, Value: value}
		return
	}
	c.Value = value
	cs[name] = c
}

// SetCookie stores a fully specified cookie, replacing any existing cookie
// with the same name.
func (cs Cookies) SetCookie(c Cookie) {
	cs[c.Name] = c
}

// Get returns the cookie with the given name.
func (cs Cookies) Get(name string) (Cookie, bool) {
	c, ok := cs[name]
	return c, ok
}

// Value returns the value of the named cookie, or the empty string.
func (cs Cookies) Value(name string) string {
	return cs[name].Value
}

// Delete removes the named cookie from the set.
func (cs Cookies) Delete(name string) {
	delete(cs, name)
}

// Merge copies every cookie from other into the set, overwriting on name
// collision.
func (cs Cookies) Merge(other Cookies) {
	for name, c := range other {
		cs[name] = c
	}
}

// names returns the cookie names in lexical order so serialization is
// deterministic.
func (cs Cookies) names() []string {
	names := make([]string, 0, len(cs))
	for name := range cs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String serializes the set as a single request-style Cookie header value.
func (cs Cookies) String() string {
	parts := make([]string, 0, len(cs))
	for _, name := range cs.names() {
		parts = append(parts, cs[name].String())
	}
	return strings.Join(parts, "; ")
}

// SetCookieHeaders serializes the set as independent Set-Cookie header
// values, one per cookie.
func (cs Cookies) SetCookieHeaders() []string {
	headers := make([]string, 0, len(cs))
	for _, name := range cs.names() {
		headers = append(headers, cs[name].String())
	}
	return headers
}

// attribute keys are matched case-sensitively: "Path" modifies the open
// cookie, "path" opens a new cookie named "path".
func isAttribute(key string) bool {
	switch key {
	case "Path", "Domain", "Secure", "HttpOnly", "SameSite", "Expires", "Max-Age":
		return true
	}
	return false
}

// Parse decodes a Cookie or Set-Cookie header value into a cookie set. It
// splits on ';', trims whitespace and treats the known attribute keys as
// modifiers of the currently open cookie; any other key opens a new cookie.
// Parsing never fails: empty keys and empty values are skipped, unknown
// attribute values fall back to safe defaults.
func Parse(header string) Cookies {
	cs := New()
	var cur *Cookie

	flush := func() {
		if cur != nil && cur.Name != "" {
			cs[cur.Name] = *cur
		}
		cur = nil
	}

	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		if isAttribute(key) {
			if cur == nil {
				continue
			}
			switch key {
			case "Path":
				cur.Path = value
			case "Domain":
				cur.Domain = value
			case "Secure":
				cur.Secure = true
			case "HttpOnly":
				cur.HttpOnly = true
			case "SameSite":
				cur.SameSite = ParseSameSite(value)
			case "Expires":
				cur.Expires = parseInt(value)
			case "Max-Age":
				cur.MaxAge = parseInt(value)
			}
			continue
		}

		// Anything else opens a new cookie. A name without a value is
		// dropped rather than producing an empty cookie.
		if value == "" {
			continue
		}
		flush()
		c := Cookie{Value: value}
		switch {
		case hasPrefixFold(key, SecurePrefix):
			c.Name = key[len(SecurePrefix):]
			c.Secure = true
		case hasPrefixFold(key, HostPrefix):
			c.Name = key[len(HostPrefix):]
			c.Secure = true
		default:
			c.Name = key
		}
		if c.Name == "" {
			continue
		}
		cur = &c
	}
	flush()

	return cs
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// parseInt parses a numeric attribute value, falling back to 0 on garbage.
func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
