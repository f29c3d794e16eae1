// Package session issues and resolves the bearer credential set after a
// successful sign-in. Two strategies exist: "database" stores an opaque
// token through the persistence adapter, "jwt" signs a stateless token and
// writes nothing.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pilab-dev/authcore/domain"
)

const (
	StrategyDatabase = "database"
	StrategyJWT      = "jwt"

	// DefaultMaxAge is the session lifetime when the embedder sets none.
	DefaultMaxAge = 30 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrNoAdapter    = errors.New("database session strategy requires an adapter")
)

// GenerateToken returns a fresh opaque session token: 32 bytes of
// cryptographic randomness, URL-safe encoded.
func GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// rand.Read failing means the platform RNG is broken; there is
		// no sane recovery.
		panic(fmt.Sprintf("session: reading random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Manager issues and resolves sessions under one configured strategy.
type Manager struct {
	strategy  string
	maxAge    time.Duration
	updateAge time.Duration
	secret    []byte
	generate  func() string
	adapter   domain.Adapter
}

// Config configures a Manager.
type Config struct {
	// Strategy selects "database" (default) or "jwt".
	Strategy string
	// MaxAge is the session lifetime; DefaultMaxAge when zero.
	MaxAge time.Duration
	// UpdateAge enables sliding refresh for database sessions: once a
	// session has aged past it, resolution extends the expiry back to
	// MaxAge. Zero disables refresh.
	UpdateAge time.Duration
	// Secret signs JWT sessions. Required for the jwt strategy.
	Secret []byte
	// GenerateToken overrides the opaque token generator.
	GenerateToken func() string
}

// NewManager builds a Manager. The adapter may be nil for the jwt strategy.
func NewManager(cfg Config, adapter domain.Adapter) (*Manager, error) {
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyDatabase
	}
	switch strategy {
	case StrategyDatabase:
		if adapter == nil {
			return nil, ErrNoAdapter
		}
	case StrategyJWT:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("jwt session strategy requires a secret")
		}
	default:
		return nil, fmt.Errorf("unknown session strategy %q", strategy)
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	generate := cfg.GenerateToken
	if generate == nil {
		generate = GenerateToken
	}
	return &Manager{
		strategy:  strategy,
		maxAge:    maxAge,
		updateAge: cfg.UpdateAge,
		secret:    cfg.Secret,
		generate:  generate,
		adapter:   adapter,
	}, nil
}

// MaxAge returns the configured session lifetime.
func (m *Manager) MaxAge() time.Duration { return m.maxAge }

// Issue creates a session for the given user and returns the bearer token
// to place in the session cookie.
func (m *Manager) Issue(ctx context.Context, userID string) (domain.Session, error) {
	expiresAt := time.Now().Add(m.maxAge)

	if m.strategy == StrategyJWT {
		claims := jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
		if err != nil {
			return domain.Session{}, fmt.Errorf("signing session token: %w", err)
		}
		return domain.Session{Token: signed, UserID: userID, ExpiresAt: expiresAt}, nil
	}

	sess, err := m.adapter.CreateSession(ctx, domain.CreateSessionOptions{
		Token:     m.generate(),
		UserID:    userID,
		ExpiresIn: int64(m.maxAge.Seconds()),
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// Resolve maps a bearer token back to its session and user. An unknown,
// expired or tampered token returns ErrInvalidToken.
func (m *Manager) Resolve(ctx context.Context, token string) (*domain.SessionUser, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	if m.strategy == StrategyJWT {
		parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !parsed.Valid {
			return nil, ErrInvalidToken
		}
		claims := parsed.Claims.(*jwt.RegisteredClaims)
		su := &domain.SessionUser{
			Session: domain.Session{Token: token, UserID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time},
			User:    domain.User{ID: claims.Subject},
		}
		// Enrich from storage when an adapter is wired; the token alone
		// carries only the user id.
		if m.adapter != nil {
			user, err := m.adapter.GetUser(ctx, claims.Subject)
			if err == nil && user != nil {
				su.User = *user
			}
		}
		return su, nil
	}

	su, err := m.adapter.GetSessionAndUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if su == nil || time.Now().After(su.Session.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	// Sliding refresh: extend sessions that have aged past updateAge.
	if m.updateAge > 0 && time.Until(su.Session.ExpiresAt) < m.maxAge-m.updateAge {
		refreshed, err := m.adapter.UpdateSession(ctx, domain.Session{
			Token:     token,
			ExpiresAt: time.Now().Add(m.maxAge),
		})
		if err == nil {
			su.Session = refreshed
		}
	}
	return su, nil
}

// Destroy invalidates a session token. JWT sessions cannot be revoked
// server-side; only the database strategy deletes state.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if m.strategy == StrategyJWT || token == "" {
		return nil
	}
	return m.adapter.DeleteSession(ctx, token)
}
