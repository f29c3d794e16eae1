package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilab-dev/authcore/domain"
)

func TestTokenExpiresInClampsAtZero(t *testing.T) {
	expired := domain.Token{ExpiresAt: time.Now().Add(-time.Hour)}
	assert.EqualValues(t, 0, expired.ExpiresIn())

	live := domain.Token{ExpiresAt: time.Now().Add(time.Hour)}
	got := live.ExpiresIn()
	assert.Greater(t, got, int64(3590))
	assert.LessOrEqual(t, got, int64(3600))

	var unset domain.Token
	assert.EqualValues(t, 0, unset.ExpiresIn())
}

func TestTokenWithExpiresIn(t *testing.T) {
	tok := domain.Token{AccessToken: "a"}.WithExpiresIn(120)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), tok.ExpiresAt, 2*time.Second)

	unchanged := domain.Token{}.WithExpiresIn(0)
	assert.True(t, unchanged.ExpiresAt.IsZero())
}

func TestSessionExpiresInClampsAtZero(t *testing.T) {
	s := domain.Session{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.EqualValues(t, 0, s.ExpiresIn())
}

func TestProfileUnmarshalCollectsExtras(t *testing.T) {
	body := `{
		"sub": "prov-123",
		"name": "Ada",
		"email": "ada@example.com",
		"email_verified": true,
		"picture": "https://cdn.example.com/a.png",
		"hd": "example.com",
		"iat": 1700000000
	}`

	var p domain.Profile
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, "prov-123", p.Sub)
	assert.Equal(t, "prov-123", p.Subject())
	assert.Equal(t, "ada@example.com", p.Email)
	assert.True(t, p.EmailVerified)
	assert.Equal(t, "example.com", p.ExtraString("hd"))
	assert.Contains(t, p.Extra, "iat")
	assert.NotContains(t, p.Extra, "email")
}

func TestProfileUnmarshalNumericID(t *testing.T) {
	var p domain.Profile
	require.NoError(t, json.Unmarshal([]byte(`{"id": 583231, "login": "octocat"}`), &p))

	assert.Equal(t, "583231", p.ID)
	assert.Equal(t, "583231", p.Subject())
	assert.Equal(t, "octocat", p.ExtraString("login"))
}

func TestProfileMarshalInlinesExtras(t *testing.T) {
	p := domain.Profile{
		Sub:   "s1",
		Email: "x@example.com",
		Extra: map[string]any{"hd": "example.com"},
	}
	out, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.Equal(t, "example.com", raw["hd"])
	assert.Equal(t, "s1", raw["sub"])
}
