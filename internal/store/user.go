package store

import (
	"context"
	"slices"
	"sync"

	"reviewdesk/internal/logging"
	"reviewdesk/internal/session"
	"reviewdesk/internal/types"
)

// AuthAPI is the part of the backend the user store talks to.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*types.LoginResponse, error)
	LoginWithCode(ctx context.Context, email, code string) (*types.LoginResponse, error)
	Profile(ctx context.Context) (*types.ProfileResponse, error)
}

// SessionStore persists the session. *session.Store satisfies it.
type SessionStore interface {
	Save(session.Session) error
	Load() (session.Session, error)
	Clear() error
}

// UserStore holds identity, token and permissions. They change together.
type UserStore struct {
	mu          sync.RWMutex
	user        *types.User
	token       string
	permissions []string

	api      AuthAPI
	sessions SessionStore
}

// NewUserStore creates a user store primed from the persisted session.
func NewUserStore(api AuthAPI, sessions SessionStore) *UserStore {
	s := &UserStore{api: api, sessions: sessions}
	if sessions != nil {
		sess, err := sessions.Load()
		if err != nil {
			logging.SessionError("Failed to restore session: %v", err)
		} else {
			s.user, s.token, s.permissions = sess.User, sess.Token, sess.Permissions
		}
	}
	return s
}

// Login signs in with username and password.
func (s *UserStore) Login(ctx context.Context, username, password string) (*types.LoginResponse, error) {
	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.replace(res.Token, &res.User, nil); err != nil {
		return nil, err
	}
	logging.Session("Signed in as %s", res.User.Username)
	return res, nil
}

// LoginWithCode signs in with an emailed verification code.
func (s *UserStore) LoginWithCode(ctx context.Context, email, code string) (*types.LoginResponse, error) {
	res, err := s.api.LoginWithCode(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if err := s.replace(res.Token, &res.User, nil); err != nil {
		return nil, err
	}
	logging.Session("Signed in as %s with email code", res.User.Username)
	return res, nil
}

// LoadProfile refreshes identity and permissions. Any failure signs the
// user out before the error is returned.
func (s *UserStore) LoadProfile(ctx context.Context) (*types.ProfileResponse, error) {
	res, err := s.api.Profile(ctx)
	if err != nil {
		logging.SessionError("Failed to load profile: %v", err)
		s.Logout()
		return nil, err
	}
	if err := s.replace(s.Token(), &res.User, res.Permissions); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *UserStore) replace(token string, user *types.User, perms []string) error {
	u := *user
	s.mu.Lock()
	s.token, s.user, s.permissions = token, &u, append([]string(nil), perms...)
	s.mu.Unlock()

	if s.sessions == nil {
		return nil
	}
	return s.sessions.Save(session.Session{Token: token, User: &u, Permissions: perms})
}

// Logout forgets the session in memory and on disk.
func (s *UserStore) Logout() {
	s.Forget()
	if s.sessions != nil {
		if err := s.sessions.Clear(); err != nil {
			logging.SessionError("Failed to clear stored session: %v", err)
		}
	}
}

// Forget clears the in-memory session only, for when the stored one was
// already cleared elsewhere.
func (s *UserStore) Forget() {
	s.mu.Lock()
	s.user, s.token, s.permissions = nil, "", nil
	s.mu.Unlock()
}

// User returns the signed-in user, or nil.
func (s *UserStore) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the bearer token, or "".
func (s *UserStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Permissions returns the granted permission keys.
func (s *UserStore) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.permissions...)
}

// HasPermission reports whether key was granted.
func (s *UserStore) HasPermission(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.permissions, key)
}

// IsAdmin reports whether the user has the admin role.
func (s *UserStore) IsAdmin() bool { return s.hasRole(types.RoleAdmin) }

// IsReviewer reports whether the user has the reviewer role.
func (s *UserStore) IsReviewer() bool { return s.hasRole(types.RoleReviewer) }

func (s *UserStore) hasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == role
}
