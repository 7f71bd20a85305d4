// Package session implements server-side sessions backed by Redis.
// The cookie carries only a signed opaque session id; the identity lives in
// Redis under session:<id> with a TTL, so logout revokes access immediately.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"helpdesk/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CookieName is the session cookie set on login.
const CookieName = "helpdesk.sid"

const keyPrefix = "session:"

// ErrNotFound is returned for missing, expired, or tampered sessions.
var ErrNotFound = errors.New("session not found")

// Identity is the caller resolved from a session. Services trust these
// fields for office scoping and role checks.
type Identity struct {
	UserID uuid.UUID  `json:"user_id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	Office string     `json:"office"`
}

// Store creates, resolves, and destroys sessions.
type Store interface {
	Create(ctx context.Context, identity Identity) (cookieValue string, err error)
	Get(ctx context.Context, cookieValue string) (*Identity, error)
	Destroy(ctx context.Context, cookieValue string) error
}

type redisStore struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewRedisStore builds a Store over go-redis. The secret signs cookie values
// so a guessed session id is not enough to hijack a session.
func NewRedisStore(rdb *redis.Client, secret string, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, secret: []byte(secret), ttl: ttl}
}

func (s *redisStore) Create(ctx context.Context, identity Identity) (string, error) {
	sid := uuid.NewString()
	data, err := json.Marshal(identity)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, keyPrefix+sid, data, s.ttl).Err(); err != nil {
		return "", err
	}
	return sid + "." + s.sign(sid), nil
}

func (s *redisStore) Get(ctx context.Context, cookieValue string) (*Identity, error) {
	sid, ok := s.verify(cookieValue)
	if !ok {
		return nil, ErrNotFound
	}
	data, err := s.rdb.Get(ctx, keyPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, ErrNotFound
	}
	return &identity, nil
}

func (s *redisStore) Destroy(ctx context.Context, cookieValue string) error {
	sid, ok := s.verify(cookieValue)
	if !ok {
		return ErrNotFound
	}
	return s.rdb.Del(ctx, keyPrefix+sid).Err()
}

func (s *redisStore) sign(sid string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(sid))
	return hex.EncodeToString(mac.Sum(nil))
}

// verify splits a cookie value into sid and signature and checks the HMAC.
func (s *redisStore) verify(cookieValue string) (string, bool) {
	sid, sig, found := strings.Cut(cookieValue, ".")
	if !found || sid == "" {
		return "", false
	}
	expected := s.sign(sid)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}
	return sid, true
}
