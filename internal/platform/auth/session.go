package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultCookieName = "fotomart_admin"
	defaultMaxAge     = 12 * 60 * 60

	sessionKeyIsAdmin = "is_admin"
)

var (
	// ErrInvalidCredentials signals a failed admin login attempt.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// SessionManager owns the admin cookie session: minting it on login,
// clearing it on logout and answering whether a request carries it.
type SessionManager struct {
	store      *sessions.CookieStore
	cookieName string
	username   string
	password   string
}

// SessionConfig configures the SessionManager.
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     int
	Secure     bool
	Username   string
	Password   string
}

// NewSessionManager constructs a SessionManager backed by an encrypted cookie store.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: session secret is required")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("auth: admin password is required")
	}

	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = defaultCookieName
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "admin"
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{
		store:      store,
		cookieName: cookieName,
		username:   username,
		password:   cfg.Password,
	}, nil
}

// Login validates the supplied credentials and, on success, writes the admin
// session cookie to the response. Credential mismatches return
// ErrInvalidCredentials without touching the session.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, username, password string) error {
	if m == nil {
		return errors.New("auth: session manager is nil")
	}
	if !m.credentialsMatch(username, password) {
		return ErrInvalidCredentials
	}

	session, err := m.store.Get(r, m.cookieName)
	if err != nil {
		// A tampered or stale cookie decodes into a fresh session; only a
		// save failure is fatal.
		session, _ = m.store.New(r, m.cookieName)
	}
	session.Values[sessionKeyIsAdmin] = true
	if err := session.Save(r, w); err != nil {
		return err
	}
	return nil
}

// Logout clears the admin session cookie. Logging out an already
// unauthenticated request is a no-op, not an error.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	if m == nil {
		return errors.New("auth: session manager is nil")
	}
	session, err := m.store.Get(r, m.cookieName)
	if err != nil {
		session, _ = m.store.New(r, m.cookieName)
	}
	delete(session.Values, sessionKeyIsAdmin)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// IsAdmin reports whether the request carries a valid admin session. Unknown,
// missing or undecodable cookies all report false.
func (m *SessionManager) IsAdmin(r *http.Request) bool {
	if m == nil {
		return false
	}
	session, err := m.store.Get(r, m.cookieName)
	if err != nil {
		return false
	}
	isAdmin, ok := session.Values[sessionKeyIsAdmin].(bool)
	return ok && isAdmin
}

func (m *SessionManager) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(m.username)) == 1

	var passOK bool
	if isBcryptHash(m.password) {
		passOK = bcrypt.CompareHashAndPassword([]byte(m.password), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	}

	return userOK && passOK
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") ||
		strings.HasPrefix(value, "$2b$") ||
		strings.HasPrefix(value, "$2y$")
}
