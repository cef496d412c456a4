package slingshot

import (
	"sync"
	"time"

	"github.com/goliatone/go-router"
)

// DefaultTokenKey matches the cookie the product's browser client writes.
const DefaultTokenKey = "auth_token"

// DefaultCookieDuration caps the credential's lifetime at the product's
// intended session length.
const DefaultCookieDuration = 24 * time.Hour

// MemoryTokenStore keeps the credential in process memory. Used by tests
// and by non-browser embeddings that manage their own persistence.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

func (s *MemoryTokenStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return "", false
	}
	return s.token, true
}

func (s *MemoryTokenStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}

// CookieTokenStore binds the credential to one request's cookie. The cookie
// is same-site-strict, transport-secure, and expires with the session
// length, mirroring the browser client's `auth_token` cookie.
type CookieTokenStore struct {
	ctx      router.Context
	key      string
	duration time.Duration
}

var _ TokenStore = (*CookieTokenStore)(nil)

// NewCookieTokenStore wraps the given request context. A zero duration
// falls back to DefaultCookieDuration, an empty key to DefaultTokenKey.
func NewCookieTokenStore(ctx router.Context, key string, duration time.Duration) *CookieTokenStore {
	if key == "" {
		key = DefaultTokenKey
	}
	if duration <= 0 {
		duration = DefaultCookieDuration
	}
	return &CookieTokenStore{
		ctx:      ctx,
		key:      key,
		duration: duration,
	}
}

func (s *CookieTokenStore) Set(token string) error {
	s.ctx.Cookie(&router.Cookie{
		Name:     s.key,
		Value:    token,
		Expires:  time.Now().Add(s.duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
	return nil
}

func (s *CookieTokenStore) Get() (string, bool) {
	token := s.ctx.Cookies(s.key)
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *CookieTokenStore) Remove() error {
	s.ctx.Cookie(&router.Cookie{
		Name:     s.key,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
	return nil
}
