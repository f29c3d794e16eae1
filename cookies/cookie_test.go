package cookies_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilab-dev/authcore/cookies"
)

func TestParseSingleCookie(t *testing.T) {
	cs := cookies.Parse("session_token=abc123; Path=/; Secure; HttpOnly; SameSite=Lax; Max-Age=3600")

	c, ok := cs.Get("session_token")
	require.True(t, ok)
	assert.Equal(t, "abc123", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, cookies.SameSiteLax, c.SameSite)
	assert.EqualValues(t, 3600, c.MaxAge)
}

func TestParseMultipleCookies(t *testing.T) {
	cs := cookies.Parse("state=xyz; csrf=tok; Path=/auth")

	require.Len(t, cs, 2)
	assert.Equal(t, "xyz", cs.Value("state"))

	// Path modifies the cookie that was open when it appeared.
	c, ok := cs.Get("csrf")
	require.True(t, ok)
	assert.Equal(t, "/auth", c.Path)

	s, ok := cs.Get("state")
	require.True(t, ok)
	assert.Empty(t, s.Path)
}

func TestParseAttributeKeysAreCaseSensitive(t *testing.T) {
	// Lowercase "path" is not an attribute; it opens a new cookie.
	cs := cookies.Parse("a=1; path=/x")

	assert.Equal(t, "1", cs.Value("a"))
	assert.Equal(t, "/x", cs.Value("path"))
	c, _ := cs.Get("a")
	assert.Empty(t, c.Path)
}

func TestParseSecureAndHostPrefixes(t *testing.T) {
	cs := cookies.Parse("__Secure-id=a; __Host-sid=b")

	c, ok := cs.Get("id")
	require.True(t, ok)
	assert.True(t, c.Secure)

	c, ok = cs.Get("sid")
	require.True(t, ok)
	assert.True(t, c.Secure)
}

func TestParseFallbacks(t *testing.T) {
	cs := cookies.Parse("a=1; SameSite=bogus; Expires=notanumber; Max-Age=xyz")

	c, ok := cs.Get("a")
	require.True(t, ok)
	assert.Equal(t, cookies.SameSiteStrict, c.SameSite)
	assert.EqualValues(t, 0, c.Expires)
	assert.EqualValues(t, 0, c.MaxAge)
}

func TestParseDuplicateNamesLastWriteWins(t *testing.T) {
	cs := cookies.Parse("a=1; a=2")
	require.Len(t, cs, 1)
	assert.Equal(t, "2", cs.Value("a"))
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		";",
		";;;",
		"=",
		"=value",
		"name=",
		"   ",
		"; Path=/; Secure",
		"Secure; HttpOnly; SameSite=None",
		"a=1; =2; ; b=3",
		"__Secure-=x",
		"a=b=c",
		"Max-Age=10",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { cookies.Parse(in) }, "input %q", in)
	}
}

func TestParseOrphanAttributesAreIgnored(t *testing.T) {
	// Attributes with no open cookie are dropped rather than erroring.
	cs := cookies.Parse("Path=/; Secure; a=1")
	require.Len(t, cs, 1)
	assert.Equal(t, "1", cs.Value("a"))
}

func TestRoundTrip(t *testing.T) {
	originals := []cookies.Cookie{
		{Name: "plain", Value: "v"},
		{Name: "full", Value: "v", Path: "/", Domain: "example.com", Secure: true, HttpOnly: true, SameSite: cookies.SameSiteNone, Expires: 1700000000, MaxAge: 86400},
		{Name: "lax", Value: "x", SameSite: cookies.SameSiteLax},
		{Name: "aged", Value: "y", MaxAge: 60},
	}
	for _, c := range originals {
		cs := cookies.Parse(c.String())
		got, ok := cs.Get(c.Name)
		require.True(t, ok, "cookie %q survived round trip", c.Name)
		assert.Equal(t, c, got)
	}
}

func TestSerializationIsDeterministic(t *testing.T) {
	cs := cookies.New()
	cs.Set("b", "2")
	cs.Set("a", "1")
	cs.Set("c", "3")

	assert.Equal(t, "a=1; b=2; c=3", cs.String())
	assert.Equal(t, []string{"a=1", "b=2", "c=3"}, cs.SetCookieHeaders())
}

func TestSetKeepsAttributes(t *testing.T) {
	cs := cookies.New()
	cs.SetCookie(cookies.Cookie{Name: "s", Value: "old", HttpOnly: true, Path: "/"})
	cs.Set("s", "new")

	c, _ := cs.Get("s")
	assert.Equal(t, "new", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
}

func TestMerge(t *testing.T) {
	a := cookies.Parse("x=1; y=2")
	b := cookies.Parse("y=3; z=4")
	a.Merge(b)

	assert.Equal(t, "3", a.Value("y"))
	assert.Equal(t, "4", a.Value("z"))
	assert.Equal(t, "1", a.Value("x"))
}
