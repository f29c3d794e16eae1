package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilab-dev/authcore/domain"
	"github.com/pilab-dev/authcore/memadapter"
)

func TestGenerateToken(t *testing.T) {
	a := GenerateToken()
	b := GenerateToken()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43) // 32 bytes, base64url without padding
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Config{Strategy: StrategyDatabase}, nil)
	assert.ErrorIs(t, err, ErrNoAdapter)

	_, err = NewManager(Config{Strategy: StrategyJWT}, nil)
	assert.Error(t, err)

	_, err = NewManager(Config{Strategy: "cookie"}, memadapter.New())
	assert.Error(t, err)
}

func TestDatabaseIssueAndResolve(t *testing.T) {
	ctx := context.Background()
	adapter := memadapter.New()
	m, err := NewManager(Config{Strategy: StrategyDatabase, MaxAge: time.Hour}, adapter)
	require.NoError(t, err)

	user, err := adapter.CreateUser(ctx, domain.User{Email: "ann@example.com", Username: "ann"})
	require.NoError(t, err)

	sess, err := m.Issue(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	su, err := m.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, su.User.ID)
	assert.Equal(t, "ann@example.com", su.User.Email)

	require.NoError(t, m.Destroy(ctx, sess.Token))
	_, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDatabaseSlidingRefresh(t *testing.T) {
	ctx := context.Background()
	adapter := memadapter.New()
	m, err := NewManager(Config{
		Strategy:  StrategyDatabase,
		MaxAge:    time.Hour,
		UpdateAge: time.Nanosecond, // any age past issue triggers refresh
	}, adapter)
	require.NoError(t, err)

	user, err := adapter.CreateUser(ctx, domain.User{Email: "ann@example.com"})
	require.NoError(t, err)

	// Plant a session that is halfway through its lifetime.
	sess, err := adapter.CreateSession(ctx, domain.CreateSessionOptions{
		Token: "tok", UserID: user.ID, ExpiresIn: 1800,
	})
	require.NoError(t, err)

	su, err := m.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), su.Session.ExpiresAt, 5*time.Second)
}

func TestDatabaseResolveUnknownToken(t *testing.T) {
	m, err := NewManager(Config{}, memadapter.New())
	require.NoError(t, err)

	_, err = m.Resolve(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssueAndResolve(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(Config{Strategy: StrategyJWT, Secret: []byte("s3cret"), MaxAge: time.Hour}, nil)
	require.NoError(t, err)

	sess, err := m.Issue(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	su, err := m.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", su.User.ID)
	assert.Equal(t, "user-1", su.Session.UserID)
}

func TestJWTResolveRejectsTampering(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(Config{Strategy: StrategyJWT, Secret: []byte("s3cret")}, nil)
	require.NoError(t, err)
	other, err := NewManager(Config{Strategy: StrategyJWT, Secret: []byte("different")}, nil)
	require.NoError(t, err)

	sess, err := m.Issue(ctx, "user-1")
	require.NoError(t, err)

	_, err = other.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Resolve(ctx, sess.Token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTDestroyIsNoop(t *testing.T) {
	m, err := NewManager(Config{Strategy: StrategyJWT, Secret: []byte("s3cret")}, nil)
	require.NoError(t, err)
	assert.NoError(t, m.Destroy(context.Background(), "whatever"))
}
