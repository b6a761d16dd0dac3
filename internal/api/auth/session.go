package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/api/authz"
	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/metrics"
)

const (
	sessionCookieName = "oreo_session"
	sessionTokenBytes = 32
)

var errSessionResult = errors.New("login result is missing a token")

// Session is one signed-in owner. It is the only place the backend token
// lives; the browser holds just the opaque ID.
type Session struct {
	ID        string
	Token     string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// User converts the session into the request-scoped identity.
func (s *Session) User() *authz.AuthUser {
	return &authz.AuthUser{
		SessionID: s.ID,
		Username:  s.Username,
		Role:      s.Role,
		Token:     s.Token,
	}
}

// Store holds sessions in memory. Login and Logout are the only transitions.
type Store struct {
	ttl     time.Duration
	secure  bool
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	onEnd    []func(sessionID string)
}

// NewStore creates a store whose sessions last at most ttl. secure marks the
// cookie Secure and should be off only in development.
func NewStore(ttl time.Duration, secure bool, m *metrics.Metrics) *Store {
	return &Store{
		ttl:      ttl,
		secure:   secure,
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// OnEnd registers fn to run after a session is logged out or expires.
func (s *Store) OnEnd(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

// Login records a session for a successful backend login and sets the cookie.
func (s *Store) Login(w http.ResponseWriter, result *backend.LoginResult) (*Session, error) {
	if result == nil || result.Token == "" {
		return nil, errSessionResult
	}

	id, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &Session{
		ID:        id,
		Token:     result.Token,
		Username:  result.Username,
		Role:      strings.ToUpper(strings.TrimSpace(result.Role)),
		ExpiresAt: tokenExpiry(result.Token, now, s.ttl),
	}

	s.mu.Lock()
	s.sessions[id] = session
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(count)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(now).Seconds()),
	})
	return session, nil
}

// Logout ends the request's session, if any, and clears the cookie.
func (s *Store) Logout(w http.ResponseWriter, r *http.Request) {
	if r != nil {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			s.End(cookie.Value)
		}
	}
	s.clearCookie(w)
}

// End removes a session by ID and runs the OnEnd hooks.
func (s *Store) End(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	hooks := append([]func(string){}, s.onEnd...)
	s.mu.Unlock()

	if !ok {
		return
	}
	s.metrics.SetActiveSessions(count)
	for _, hook := range hooks {
		hook(id)
	}
}

// FromRequest resolves the session cookie. Unknown or expired sessions clear
// the cookie and report false.
func (s *Store) FromRequest(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	s.mu.RLock()
	session, ok := s.sessions[cookie.Value]
	s.mu.RUnlock()

	if !ok {
		s.clearCookie(w)
		return nil, false
	}
	if !session.ExpiresAt.After(s.now()) {
		s.End(session.ID)
		s.clearCookie(w)
		return nil, false
	}
	return session, true
}

// Active reports whether id names a live, unexpired session.
func (s *Store) Active(id string) bool {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	return ok && session.ExpiresAt.After(s.now())
}

// Prune ends every expired session and returns how many it ended.
func (s *Store) Prune() int {
	now := s.now()
	s.mu.RLock()
	var expired []string
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.End(id)
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("Pruned expired owner sessions")
	}
	return len(expired)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) clearCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// tokenExpiry returns the earlier of the token's exp claim and now+ttl. The
// signature is not checked; the backend verifies its own tokens.
func tokenExpiry(token string, now time.Time, ttl time.Duration) time.Time {
	fallback := now.Add(ttl)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	if exp.Time.Before(fallback) {
		return exp.Time
	}
	return fallback
}

func newSessionToken() (string, error) {
	token := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(token), nil
}
