package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionTTL is the fixed session lifetime. The cookie max age matches it.
	SessionTTL = 24 * time.Hour

	// SessionCookie is the name of the session cookie.
	SessionCookie = "session_id"

	sessionPrefix = "session:"
)

// SessionStore maps opaque session tokens to account ids in Redis.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Create issues a new opaque token bound to accountID, expiring after
// SessionTTL.
func (s *SessionStore) Create(ctx context.Context, accountID string) (string, error) {
	sid := uuid.New().String()
	err := s.rdb.Set(ctx, sessionPrefix+sid, accountID, SessionTTL).Err()
	return sid, err
}

// Get returns the account id bound to the token, or "" if the token is
// unknown or expired.
func (s *SessionStore) Get(ctx context.Context, sid string) (string, error) {
	val, err := s.rdb.Get(ctx, sessionPrefix+sid).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Delete invalidates the token. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, sessionPrefix+sid).Err()
}

// NewSessionCookie builds the cookie carrying a freshly created token.
func NewSessionCookie(sid string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	}
}

// ExpiredSessionCookie builds the cookie that clears the session on the
// client.
func ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
}
