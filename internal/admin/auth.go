package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortsadmin/internal/api"
	"shortsadmin/internal/gateway"
	"shortsadmin/internal/session"
)

// Credentials is the part of session.Store that login and whoami drive.
type Credentials interface {
	SetToken(token string) error
	SetUser(user *api.Profile)
	Logout() error
}

// Login checks token shape and expiry locally, stores it, and resolves the
// profile. A token the backend rejects is erased again.
func (s *Service) Login(ctx context.Context, creds Credentials, token string, now time.Time) (api.Profile, session.Claims, error) {
	claims, err := session.ValidateToken(token, now)
	if err != nil {
		return api.Profile{}, session.Claims{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := creds.SetToken(token); err != nil {
		return api.Profile{}, claims, err
	}
	profile, err := s.Whoami(ctx, creds)
	if err != nil {
		return api.Profile{}, claims, err
	}
	return profile, claims, nil
}

// Whoami resolves the current profile. When the backend refuses the token
// the session is cleared, matching a fresh start with a dead credential.
func (s *Service) Whoami(ctx context.Context, creds Credentials) (api.Profile, error) {
	profile, err := s.Me(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			if logoutErr := creds.Logout(); logoutErr != nil {
				return api.Profile{}, errors.Join(err, logoutErr)
			}
		}
		return api.Profile{}, err
	}
	creds.SetUser(&profile)
	return profile, nil
}
