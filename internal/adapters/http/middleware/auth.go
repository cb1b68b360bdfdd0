package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

type sessionKey struct{}

// RoleAdmin is the only authenticated role. Students are identified by participant ID.
const RoleAdmin = "admin"

// SessionTTL is how long an admin login stays valid.
const SessionTTL = 12 * time.Hour

// SessionCookieName is the admin session cookie.
const SessionCookieName = "firesim_session"

// SecureCookies marks cookies Secure. Enabled in production.
var SecureCookies = false

// Session is one facilitator login.
type Session struct {
	Role      string
	IP        string
	CreatedAt time.Time
}

func (s Session) expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionTTL
}

// SessionStore keeps admin logins in memory. A restart logs every facilitator out.
// INVARIANT: only SHA-256 digests of tokens are held, never the tokens themselves
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]Session), now: time.Now}
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create starts a session and returns its bearer token. Expired sessions are
// swept on the way.
// POST: token is 64 hex characters
func (ss *SessionStore) Create(role, ip string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	for k, s := range ss.sessions {
		if s.expired(now) {
			delete(ss.sessions, k)
		}
	}
	ss.sessions[digest(token)] = Session{Role: role, IP: ip, CreatedAt: now}
	return token, nil
}

// Get returns the live session for token.
// POST: an expired session is removed and reported as missing
func (ss *SessionStore) Get(token string) (Session, bool) {
	key := digest(token)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[key]
	if !ok {
		return Session{}, false
	}
	if s.expired(ss.now()) {
		delete(ss.sessions, key)
		return Session{}, false
	}
	return s, true
}

// Delete ends the session for token.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	delete(ss.sessions, digest(token))
	ss.mu.Unlock()
}

// Auth attaches the admin session named by the cookie, if any, to the request
// context. It never rejects; RequireAdmin does that.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
				if s, ok := sessions.Get(c.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin blocks requests without an admin session.
// Pages redirect to loginPath; /api/ requests get a 401 JSON body.
func RequireAdmin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsAdmin(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"not authenticated"}`))
				return
			}
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
		})
	}
}

// ContextWithSession returns ctx carrying sess.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// GetSessionFromContext returns the session attached by Auth.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// IsAdmin reports whether ctx carries an admin session.
func IsAdmin(ctx context.Context) bool {
	s, ok := GetSessionFromContext(ctx)
	return ok && s.Role == RoleAdmin
}

func sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSessionCookie hands the admin token to the browser.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, sessionCookie(token, int(SessionTTL/time.Second)))
}

// ClearSessionCookie expires the admin cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie("", -1))
}
