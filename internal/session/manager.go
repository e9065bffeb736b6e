// Package session keeps each visitor's generator settings between requests.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sashakarcz/passify/internal/generator"
)

// Config holds session manager settings
type Config struct {
	CookieName   string
	TTL          time.Duration
	MaxSessions  int
	SecureCookie bool
	Defaults     generator.Settings
}

// Manager binds sessions to requests through a cookie
type Manager struct {
	cfg   Config
	cache *Cache
	now   func() time.Time
}

// NewManager creates a session manager
func NewManager(cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "passify_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	return &Manager{
		cfg:   cfg,
		cache: NewCache(cfg.MaxSessions),
		now:   time.Now,
	}
}

// Cache exposes the underlying session cache
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Defaults returns the settings new sessions start with
func (m *Manager) Defaults() generator.Settings {
	return m.cfg.Defaults
}

// Load returns the request's session, starting a new one with default
// settings when the cookie is missing, unknown or expired.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) Session {
	now := m.now()

	if cookie, err := r.Cookie(m.cfg.CookieName); err == nil {
		if s, ok := m.touch(cookie.Value, now); ok {
			return s
		}
	}

	s := Session{
		ID:        uuid.New().String(),
		Settings:  m.cfg.Defaults,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	m.cache.Put(s)

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	return s
}

// SaveSettings replaces the settings stored for a session
func (m *Manager) SaveSettings(id string, settings generator.Settings) {
	s, ok := m.cache.Get(id)
	if !ok {
		now := m.now()
		s = Session{ID: id, CreatedAt: now, ExpiresAt: now.Add(m.cfg.TTL)}
	}
	s.Settings = settings
	m.cache.Put(s)
}

// Touch extends a session's expiry. It reports false for unknown or
// expired sessions; expired ones are dropped.
func (m *Manager) Touch(id string) bool {
	_, ok := m.touch(id, m.now())
	return ok
}

func (m *Manager) touch(id string, now time.Time) (Session, bool) {
	s, ok := m.cache.Get(id)
	if !ok {
		return Session{}, false
	}
	if s.Expired(now) {
		m.cache.Remove(id)
		return Session{}, false
	}
	s.ExpiresAt = now.Add(m.cfg.TTL)
	m.cache.Put(s)
	return s, true
}
