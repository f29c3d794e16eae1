package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilab-dev/authcore/domain"
)

func TestSessionUpdateDoc(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	doc := sessionUpdateDoc(domain.Session{Token: "t-1", UserID: "u-1", ExpiresAt: expires})
	assert.Equal(t, "u-1", doc["user_id"])
	assert.Equal(t, expires, doc["expires_at"])

	doc = sessionUpdateDoc(domain.Session{Token: "t-1", ExpiresAt: expires})
	assert.NotContains(t, doc, "user_id")
	assert.Equal(t, expires, doc["expires_at"])

	// A session with only its token set must not produce an update
	// document; an empty $set is rejected server-side.
	doc = sessionUpdateDoc(domain.Session{Token: "t-1"})
	assert.Empty(t, doc)
}
