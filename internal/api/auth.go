package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sashakarcz/passify/internal/api/templates"
	"github.com/sashakarcz/passify/internal/config"
	"github.com/sashakarcz/passify/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// tokenCookieName carries the web UI session token
const tokenCookieName = "passify_token"

// tokenTTL bounds the lifetime of login tokens
const tokenTTL = 24 * time.Hour

type contextKey string

const userContextKey contextKey = "user"

// AuthManager handles authentication
type AuthManager struct {
	config *config.WebAuth
	tokens map[string]*TokenInfo
	now    func() time.Time
	mu     sync.RWMutex
}

// TokenInfo holds token metadata
type TokenInfo struct {
	Username  string
	ExpiresAt time.Time
}

// NewAuthManager creates a new auth manager. A nil config disables auth.
func NewAuthManager(cfg *config.WebAuth) *AuthManager {
	if cfg == nil {
		cfg = &config.WebAuth{}
	}
	return &AuthManager{
		config: cfg,
		tokens: make(map[string]*TokenInfo),
		now:    time.Now,
	}
}

// Enabled reports whether requests must authenticate
func (am *AuthManager) Enabled() bool {
	return am.config.Enabled
}

// ValidateCredentials checks username and password against the bcrypt hash
func (am *AuthManager) ValidateCredentials(username, password string) bool {
	if am.config.PasswordHash == "" {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(am.config.Username)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(am.config.PasswordHash), []byte(password))
	return userOK && err == nil
}

// GenerateToken generates a new authentication token
func (am *AuthManager) GenerateToken(username string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(tokenBytes)

	am.mu.Lock()
	am.tokens[token] = &TokenInfo{
		Username:  username,
		ExpiresAt: am.now().Add(tokenTTL),
	}
	am.mu.Unlock()

	go am.cleanupExpiredTokens()

	return token, nil
}

// ValidateToken returns the user a token belongs to
func (am *AuthManager) ValidateToken(token string) (string, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()

	info, exists := am.tokens[token]
	if !exists || am.now().After(info.ExpiresAt) {
		return "", false
	}

	return info.Username, true
}

// RevokeToken forgets a token
func (am *AuthManager) RevokeToken(token string) {
	am.mu.Lock()
	delete(am.tokens, token)
	am.mu.Unlock()
}

// cleanupExpiredTokens removes expired tokens
func (am *AuthManager) cleanupExpiredTokens() {
	am.mu.Lock()
	defer am.mu.Unlock()

	now := am.now()
	for token, info := range am.tokens {
		if now.After(info.ExpiresAt) {
			delete(am.tokens, token)
		}
	}
}

// tokenFromRequest reads the token from the Authorization header, the token
// query parameter (for EventSource) or the login cookie, in that order
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if cookie, err := r.Cookie(tokenCookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// authenticate resolves the request's user
func (s *Server) authenticate(r *http.Request) (string, bool) {
	token := tokenFromRequest(r)
	if token == "" {
		return "", false
	}
	return s.authManager.ValidateToken(token)
}

// currentUser returns the authenticated user stored by the middlewares
func currentUser(r *http.Request) string {
	user, _ := r.Context().Value(userContextKey).(string)
	return user
}

func withUser(r *http.Request, user string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, user))
}

// AuthMiddleware rejects unauthenticated API requests with 401
func (s *Server) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authManager.Enabled() {
			next(w, r)
			return
		}

		user, ok := s.authenticate(r)
		if !ok {
			WriteJSONError(w, http.StatusUnauthorized, "Unauthorized", "missing, invalid or expired token")
			return
		}

		next(w, withUser(r, user))
	}
}

// PageAuthMiddleware redirects unauthenticated browsers to the login page
func (s *Server) PageAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authManager.Enabled() {
			next(w, r)
			return
		}

		user, ok := s.authenticate(r)
		if !ok {
			target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		next(w, withUser(r, user))
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleLogin handles JSON login requests
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if !s.authManager.Enabled() {
		writeJSON(w, http.StatusOK, LoginResponse{
			Success: true,
			Token:   "no-auth-required",
			Message: "Authentication disabled",
		})
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, LoginResponse{
			Success: false,
			Message: "Invalid request",
		})
		return
	}

	if !s.authManager.ValidateCredentials(req.Username, req.Password) {
		logger.Warn().
			Str("username", req.Username).
			Str("ip", r.RemoteAddr).
			Msg("Failed login attempt")

		writeJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Message: "Invalid username or password",
		})
		return
	}

	token, err := s.authManager.GenerateToken(req.Username)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate token")
		writeJSON(w, http.StatusInternalServerError, LoginResponse{
			Success: false,
			Message: "Internal server error",
		})
		return
	}

	logger.Info().
		Str("username", req.Username).
		Str("ip", r.RemoteAddr).
		Msg("Successful login")

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		Message: "Login successful",
	})
}

// handleLoginPage serves and processes the HTML login form
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if !s.authManager.Enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		next := safeRedirect(r.URL.Query().Get("next"))
		if _, ok := s.authenticate(r); ok {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
		s.renderPage(w, http.StatusOK)(templates.RenderLogin(templates.LoginData{
			Nav:  s.nav(r),
			Next: next,
		}))

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		username := r.PostForm.Get("username")
		next := safeRedirect(r.PostForm.Get("next"))

		if !s.authManager.ValidateCredentials(username, r.PostForm.Get("password")) {
			logger.Warn().
				Str("username", username).
				Str("ip", r.RemoteAddr).
				Msg("Failed login attempt")

			s.renderPage(w, http.StatusUnauthorized)(templates.RenderLogin(templates.LoginData{
				Nav:       s.nav(r),
				LoginName: username,
				Next:      next,
				Error:     "Invalid username or password",
			}))
			return
		}

		token, err := s.authManager.GenerateToken(username)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to generate token")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		logger.Info().
			Str("username", username).
			Str("ip", r.RemoteAddr).
			Msg("Successful login")

		http.SetCookie(w, &http.Cookie{
			Name:     tokenCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(tokenTTL.Seconds()),
			HttpOnly: true,
			Secure:   s.cfg.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, next, http.StatusSeeOther)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleLogout revokes the login cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if token := tokenFromRequest(r); token != "" {
		s.authManager.RevokeToken(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	target := "/"
	if s.authManager.Enabled() {
		target = "/login"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeRedirect keeps post-login redirects on this site
func safeRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
