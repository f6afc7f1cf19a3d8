package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/godeps/schoolsdk-go/pkg/apierror"
)

// Manager is the session state machine. States: Anonymous, Authenticated.
// "Inconsistent" (exactly one token persisted) is a transient condition
// detected during Initialize and immediately collapsed to Anonymous.
type Manager struct {
	mu        sync.RWMutex
	store     Store
	state     State
	tokens    Tokens
	listeners []func(State)
}

// NewManager wraps store. Call Initialize before first use.
func NewManager(store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{store: store}
}

// Initialize loads the persisted pair and normalizes it. A half-present pair
// is cleared from storage and the session starts Anonymous.
func (m *Manager) Initialize() error {
	tokens, err := m.store.Load()
	if err != nil {
		return err
	}
	m.mu.Lock()
	switch {
	case tokens.Complete():
		m.tokens = tokens
		m.state = Authenticated
	case tokens.Empty():
		m.tokens = Tokens{}
		m.state = Anonymous
	default:
		// Inconsistent half-pair: collapse to absent.
		m.tokens = Tokens{}
		m.state = Anonymous
		m.mu.Unlock()
		return m.store.Clear()
	}
	m.mu.Unlock()
	return nil
}

// Login persists both tokens atomically and transitions to Authenticated.
// On persistence failure nothing is retained and the state is unchanged;
// the caller must surface the failure and let the user retry.
func (m *Manager) Login(access, refresh string) error {
	pair := Tokens{Access: access, Refresh: refresh}
	if !pair.Complete() {
		return ErrIncompleteTokenPair
	}
	if err := m.store.Save(pair); err != nil {
		return &apierror.Error{
			Kind: apierror.KindPersistence,
			Op:   "session login",
			Err:  fmt.Errorf("persist token pair: %w", err),
		}
	}
	m.mu.Lock()
	m.tokens = pair
	changed := m.state != Authenticated
	m.state = Authenticated
	m.mu.Unlock()
	if changed {
		m.notify(Authenticated)
	}
	return nil
}

// Logout clears all session-related persisted keys and transitions to
// Anonymous.
func (m *Manager) Logout() error {
	err := m.store.Clear()
	m.mu.Lock()
	m.tokens = Tokens{}
	changed := m.state != Anonymous
	m.state = Anonymous
	m.mu.Unlock()
	if changed {
		m.notify(Anonymous)
	}
	return err
}

// Invalidate drops the session after the backend rejected its credentials.
// Equivalent to Logout, but named for the forced transition.
func (m *Manager) Invalidate() {
	_ = m.Logout()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// AuthHeader returns the bearer header value for the current session, or ""
// when Anonymous. The raw token is never exposed through any other path.
func (m *Manager) AuthHeader() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != Authenticated {
		return ""
	}
	return "Bearer " + m.tokens.Access
}

// AccessExpiry reports the exp claim of the access token when it parses as a
// JWT. The token is not verified here; expiry is informational only and the
// backend remains the authority.
func (m *Manager) AccessExpiry() (time.Time, bool) {
	m.mu.RLock()
	access := m.tokens.Access
	state := m.state
	m.mu.RUnlock()
	if state != Authenticated {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// OnChange registers fn to run after every state transition. Callbacks run
// synchronously on the mutating goroutine and must not call back into the
// manager's mutating methods.
func (m *Manager) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) notify(state State) {
	m.mu.RLock()
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(state)
	}
}
