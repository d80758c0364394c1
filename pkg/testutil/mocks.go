// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
)

// StubVerifier is a test implementation of auth.TokenVerifier. The token is
// the actor id; tokens registered with Grant carry a role, and tokens listed
// in Reject fail verification.
type StubVerifier struct {
	mu        sync.RWMutex
	roles     map[string]string
	usernames map[string]string
	reject    map[string]bool
}

// NewStubVerifier creates a verifier that accepts every non-empty token.
func NewStubVerifier() *StubVerifier {
	return &StubVerifier{
		roles:     make(map[string]string),
		usernames: make(map[string]string),
		reject:    make(map[string]bool),
	}
}

// Name gives the actor behind token a username.
func (v *StubVerifier) Name(token, username string) *StubVerifier {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.usernames[token] = username
	return v
}

// Grant gives the actor behind token a role.
func (v *StubVerifier) Grant(token, role string) *StubVerifier {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.roles[token] = role
	return v
}

// Reject makes token fail verification.
func (v *StubVerifier) Reject(token string) *StubVerifier {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reject[token] = true
	return v
}

// Verify implements auth.TokenVerifier.
func (v *StubVerifier) Verify(_ context.Context, token string) (auth.Actor, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.reject[token] || strings.TrimSpace(token) == "" {
		return auth.Actor{}, apperrors.InvalidToken(errors.New("rejected by stub"))
	}
	return auth.Actor{ID: token, Role: v.roles[token], Username: v.usernames[token]}, nil
}

// RecordingInvalidator captures counter invalidations.
type RecordingInvalidator struct {
	mu   sync.Mutex
	keys []counter.Key
	err  error
}

// Invalidate records keys and returns the configured failure, if any.
func (r *RecordingInvalidator) Invalidate(_ context.Context, keys ...counter.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
	return r.err
}

// Keys returns a copy of everything recorded so far.
func (r *RecordingInvalidator) Keys() []counter.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]counter.Key(nil), r.keys...)
}

// Reset forgets recorded keys.
func (r *RecordingInvalidator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = nil
}

// Fail makes subsequent calls return err.
func (r *RecordingInvalidator) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
