package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shortsadmin/internal/api"
	"shortsadmin/internal/logging"
)

// ErrNotLoggedIn is returned by protected operations when no token is held.
var ErrNotLoggedIn = errors.New("not logged in: run 'shortsadmin login'")

// Store holds at most one credential and one resolved profile. Every token
// change is persisted before memory is updated, so a failed write leaves the
// previous token in place on both sides.
type Store struct {
	mu      sync.RWMutex
	token   string
	user    *api.Profile
	persist Persister
	logger  *slog.Logger
	now     func() time.Time
}

// New loads any persisted credential from p.
func New(p Persister, logger *slog.Logger) (*Store, error) {
	if p == nil {
		p = NewMemoryStore("")
	}
	state, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Store{
		token:   strings.TrimSpace(state.Token),
		persist: p,
		logger:  logging.NewComponentLogger(logger, "session"),
		now:     time.Now,
	}, nil
}

// SetToken replaces the credential. An empty token erases the persisted copy.
func (s *Store) SetToken(token string) error {
	token = strings.TrimSpace(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		if err := s.persist.Clear(); err != nil {
			return fmt.Errorf("clear token: %w", err)
		}
		s.token = ""
		s.logger.Debug("token cleared")
		return nil
	}
	if err := s.persist.Save(State{Token: token, SavedAt: s.now().UTC()}); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.token = token
	s.logger.Debug("token stored")
	return nil
}

// SetUser replaces the cached profile without touching the token.
func (s *Store) SetUser(user *api.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.user = nil
		return
	}
	cp := *user
	s.user = &cp
}

// Logout clears token and profile and erases persisted state. It is safe to
// call when already logged out.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.token = ""
	s.user = nil
	s.logger.Debug("logged out")
	return nil
}

// Token returns the current credential, empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached profile, nil when unresolved.
func (s *Store) User() *api.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	cp := *s.user
	return &cp
}

// Authenticated reports whether a credential is held.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Require fails with ErrNotLoggedIn when no credential is held.
func (s *Store) Require() error {
	if !s.Authenticated() {
		return ErrNotLoggedIn
	}
	return nil
}

// Actor names the operator for audit records: the resolved profile when
// available, else the token subject, else "unknown".
func (s *Store) Actor() string {
	if user := s.User(); user != nil {
		if user.Email != "" {
			return user.Email
		}
		if subject := user.Subject(); subject != "" {
			return subject
		}
	}
	if claims, err := DecodeClaims(s.Token()); err == nil && claims.Subject != "" {
		return claims.Subject
	}
	return "unknown"
}
