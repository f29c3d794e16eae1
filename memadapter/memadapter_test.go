package memadapter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilab-dev/authcore/domain"
)

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	a := New()
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	created, err := a.CreateUser(ctx, domain.User{Email: "ann@example.com", Username: "ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	byID, err := a.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ann", byID.Username)

	byEmail, err := a.GetUserByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	missing, err := a.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created.Username = "ann2"
	updated, err := a.UpdateUser(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "ann2", updated.Username)

	require.NoError(t, a.DeleteUser(ctx, created.ID))
	gone, err := a.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Deleting again is a no-op.
	require.NoError(t, a.DeleteUser(ctx, created.ID))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	_, err := a.CreateUser(ctx, domain.User{Email: "ann@example.com"})
	require.NoError(t, err)

	_, err = a.CreateUser(ctx, domain.User{Email: "Ann@Example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestUpdateUserErrors(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	_, err := a.UpdateUser(ctx, domain.User{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := a.CreateUser(ctx, domain.User{Email: "a@example.com"})
	require.NoError(t, err)
	second, err := a.CreateUser(ctx, domain.User{Email: "b@example.com"})
	require.NoError(t, err)

	second.Email = "a@example.com"
	_, err = a.UpdateUser(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	// The original owner keeps the email.
	owner, err := a.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, first.ID, owner.ID)
}

func TestAccountLinking(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	user, err := a.CreateUser(ctx, domain.User{Email: "ann@example.com"})
	require.NoError(t, err)

	account := domain.Account{
		UserID:            user.ID,
		ProviderID:        "github",
		ProviderType:      domain.ProviderTypeOAuth,
		ProviderAccountID: "12345",
	}
	linked, err := a.LinkAccount(ctx, account)
	require.NoError(t, err)
	assert.NotEmpty(t, linked.ID)

	key := domain.ProviderAccountID{ProviderID: "github", ProviderAccountID: "12345"}

	_, err = a.LinkAccount(ctx, account)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	got, err := a.GetAccount(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.UserID)

	byAccount, err := a.GetUserByAccount(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, byAccount)
	assert.Equal(t, user.ID, byAccount.ID)

	require.NoError(t, a.UnlinkAccount(ctx, key))
	gone, err := a.GetAccount(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDeleteUserRemovesAccounts(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	user, err := a.CreateUser(ctx, domain.User{Email: "ann@example.com"})
	require.NoError(t, err)
	_, err = a.LinkAccount(ctx, domain.Account{
		UserID: user.ID, ProviderID: "google", ProviderAccountID: "sub-1",
	})
	require.NoError(t, err)

	require.NoError(t, a.DeleteUser(ctx, user.ID))

	got, err := a.GetUserByAccount(ctx, domain.ProviderAccountID{ProviderID: "google", ProviderAccountID: "sub-1"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	user, err := a.CreateUser(ctx, domain.User{Email: "ann@example.com"})
	require.NoError(t, err)

	sess, err := a.CreateSession(ctx, domain.CreateSessionOptions{
		Token: "tok-1", UserID: user.ID, ExpiresIn: 3600,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	su, err := a.GetSessionAndUser(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, su)
	assert.Equal(t, user.ID, su.User.ID)

	_, err = a.CreateSession(ctx, domain.CreateSessionOptions{
		Token: "tok-1", UserID: user.ID, ExpiresIn: 3600,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	later := time.Now().Add(2 * time.Hour)
	updated, err := a.UpdateSession(ctx, domain.Session{Token: "tok-1", ExpiresAt: later})
	require.NoError(t, err)
	assert.WithinDuration(t, later, updated.ExpiresAt, time.Second)

	_, err = a.UpdateSession(ctx, domain.Session{Token: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, a.DeleteSession(ctx, "tok-1"))
	su, err = a.GetSessionAndUser(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, su)
}

func TestCreateSessionRejectsBadLifetime(t *testing.T) {
	a := newAdapter(t)
	_, err := a.CreateSession(context.Background(), domain.CreateSessionOptions{Token: "t", UserID: "u"})
	assert.Error(t, err)
}

func TestVerificationTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	vt := domain.VerificationToken{
		Email:     "ann@example.com",
		Token:     "verify-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	_, err := a.CreateVerificationToken(ctx, vt)
	require.NoError(t, err)

	_, err = a.CreateVerificationToken(ctx, vt)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	used, err := a.UseVerificationToken(ctx, domain.UseVerificationTokenOptions{
		Email: "ann@example.com", Token: "verify-1",
	})
	require.NoError(t, err)
	require.NotNil(t, used)
	assert.Equal(t, "verify-1", used.Token)

	again, err := a.UseVerificationToken(ctx, domain.UseVerificationTokenOptions{
		Email: "ann@example.com", Token: "verify-1",
	})
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestVerificationTokenConcurrentUse(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	_, err := a.CreateVerificationToken(ctx, domain.VerificationToken{
		Email: "ann@example.com", Token: "race", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.UseVerificationToken(ctx, domain.UseVerificationTokenOptions{
				Email: "ann@example.com", Token: "race",
			})
			if err != nil {
				errs <- err
				return
			}
			if got != nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one caller may consume the token")
}
