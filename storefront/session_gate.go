package storefront

import (
	"context"
	"errors"
	"sync"
)

// SessionState is the gate's view of the current visitor.
type SessionState string

const (
	// SessionUnknown means the gate has not yet asked the API. Unknown is
	// treated exactly like Guest: nothing admin-only renders until the API
	// has confirmed the session.
	SessionUnknown SessionState = "unknown"
	// SessionGuest means the visitor has no admin session.
	SessionGuest SessionState = "guest"
	// SessionAdmin means the API confirmed an admin session.
	SessionAdmin SessionState = "admin"
)

// ErrInvalidCredentials is returned when the admin login is rejected.
var ErrInvalidCredentials = errors.New("storefront: invalid credentials")

// SessionGate tracks whether the current visitor is an admin. It fails
// closed: any doubt (unchecked, network failure, rejected cookie) reads as
// not-admin.
type SessionGate struct {
	client *Client

	mu    sync.Mutex
	state SessionState
}

// NewSessionGate constructs a gate in the Unknown state.
func NewSessionGate(client *Client) *SessionGate {
	return &SessionGate{
		client: client,
		state:  SessionUnknown,
	}
}

// State returns the last known session state without touching the network.
func (g *SessionGate) State() SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsAdmin reports whether admin-only surfaces may render. Unknown and Guest
// both answer false.
func (g *SessionGate) IsAdmin() bool {
	return g.State() == SessionAdmin
}

// Refresh asks the API whether the session cookie is an admin session. A
// transport failure leaves the visitor a guest and returns the error so the
// caller can surface it.
func (g *SessionGate) Refresh(ctx context.Context) (SessionState, error) {
	var status struct {
		IsAdmin bool `json:"is_admin"`
	}
	if err := g.client.getJSON(ctx, "/admin/status", &status); err != nil {
		g.setState(SessionGuest)
		return SessionGuest, err
	}
	state := SessionGuest
	if status.IsAdmin {
		state = SessionAdmin
	}
	g.setState(state)
	return state, nil
}

// Login establishes an admin session and returns the API's welcome message.
// The cookie lands in the client's jar, so subsequent admin calls carry it
// automatically.
func (g *SessionGate) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}
	var result struct {
		Message string `json:"message"`
		IsAdmin bool   `json:"is_admin"`
	}
	err := g.client.postJSON(ctx, "/admin/login", payload, &result)
	if err != nil {
		g.setState(SessionGuest)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "invalid_credentials" {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	state := SessionGuest
	if result.IsAdmin {
		state = SessionAdmin
	}
	g.setState(state)
	return result.Message, nil
}

// Logout clears the admin session. The gate drops to Guest even when the
// API call fails; a stale cookie the server no longer honours is still gone
// from the UI's point of view.
func (g *SessionGate) Logout(ctx context.Context) error {
	err := g.client.postJSON(ctx, "/admin/logout", nil, nil)
	g.setState(SessionGuest)
	return err
}

func (g *SessionGate) setState(state SessionState) {
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()
}
