// Package session owns the authentication session: the persisted
// access/refresh token pair and the Anonymous/Authenticated state machine.
// The persisted token store is mutated by this package only; every other
// component sees the session exclusively through AuthHeader and state-change
// notifications.
package session

import (
	"errors"
	"strings"
)

var (
	// ErrNotAuthenticated indicates an operation that needs a live session.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrIncompleteTokenPair indicates a login attempt with only one token.
	ErrIncompleteTokenPair = errors.New("session: access and refresh tokens are coupled")
)

// State is the session lifecycle state.
type State int

const (
	// Anonymous means no usable token pair is held.
	Anonymous State = iota
	// Authenticated means both tokens are present.
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Tokens is the persisted token pair. A pair is coherent only when both
// values are present or both are absent; one-sided pairs are an invalid
// state that must collapse to absent on detection.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether neither token is present.
func (t Tokens) Empty() bool {
	return strings.TrimSpace(t.Access) == "" && strings.TrimSpace(t.Refresh) == ""
}

// Complete reports whether both tokens are present.
func (t Tokens) Complete() bool {
	return strings.TrimSpace(t.Access) != "" && strings.TrimSpace(t.Refresh) != ""
}

// Store persists the token pair. Save must be all-or-nothing: after a failed
// Save the previously persisted pair must still be intact.
type Store interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}
