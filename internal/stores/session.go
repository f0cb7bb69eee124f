package stores

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
)

// SessionStore owns the bearer token and the profile of the user it belongs to.
type SessionStore struct {
	status

	api    AuthAPI
	tokens TokenPersister
	logger *log.Logger

	token string
	user  *models.User
}

// NewSessionStore creates a SessionStore seeded from the persisted token, if any.
//
// tokens may be nil, in which case the token lives only in memory.
func NewSessionStore(api AuthAPI, tokens TokenPersister, logger *log.Logger) *SessionStore {
	s := &SessionStore{api: api, tokens: tokens, logger: storeLogger(logger, "session")}

	if tokens != nil {
		token, err := tokens.Load()
		if err != nil {
			s.logger.Warn("could not read persisted token", "error", err)
		}
		s.token = token
	}
	return s
}

// Token returns the current bearer token, or "" when logged out.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current profile, or nil when it is unknown.
func (s *SessionStore) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a token is held. The token may still be rejected by the server.
func (s *SessionStore) IsAuthenticated() bool {
	return s.Token() != ""
}

// ExpiresAt returns the expiry encoded in the token when it is a JWT carrying an exp claim.
func (s *SessionStore) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims, err := shared.InspectToken(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}

// Login exchanges creds for a token, persists it and loads the profile.
//
// Returns false only when the login call itself fails; a failed profile fetch afterwards still returns true.
func (s *SessionStore) Login(ctx context.Context, creds models.Credentials) bool {
	return s.authenticate(ctx, "login", MsgLoginFailed, func(ctx context.Context) (string, error) {
		return s.api.Login(ctx, creds)
	})
}

// Register creates an account and signs in with the returned token. Same contract as [SessionStore.Login].
func (s *SessionStore) Register(ctx context.Context, reg models.Registration) bool {
	return s.authenticate(ctx, "register", MsgRegisterFailed, func(ctx context.Context) (string, error) {
		return s.api.Register(ctx, reg)
	})
}

func (s *SessionStore) authenticate(ctx context.Context, op, fallback string, call func(context.Context) (string, error)) bool {
	s.start()

	token, err := call(ctx)
	if err != nil {
		s.fail(detailOr(err, fallback))
		s.logger.Error(op+" failed", "error", err)
		return false
	}

	s.mu.Lock()
	if token != s.token {
		s.user = nil
	}
	s.token = token
	s.mu.Unlock()
	s.persist(token)

	s.FetchUserProfile(ctx)
	s.finish()
	return true
}

// FetchUserProfile loads the profile of the token's owner. It does nothing without a token.
//
// A 401 means the token is no longer valid and logs the session out, unless a login replaced the token while the
// request was in flight. Any other failure records an error and keeps the token.
func (s *SessionStore) FetchUserProfile(ctx context.Context) {
	token := s.Token()
	if token == "" {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	user, err := s.api.CurrentUser(ctx, token)
	if errors.Is(err, shared.ErrUnauthorized) {
		if !s.dropToken(token) {
			s.logger.Debug("ignoring 401 for a replaced token", "error", err)
			return
		}
		s.fail(MsgProfileFailed)
		s.logger.Warn("token rejected, logging out", "error", err)
		s.clearPersisted()
		return
	}
	if err != nil {
		s.fail(MsgProfileFailed)
		s.logger.Error("profile fetch failed", "error", err)
		return
	}

	s.mu.Lock()
	// A login or logout that finished while the request was in flight owns the state now.
	if s.token == token {
		s.user = user
	}
	s.loading = false
	s.mu.Unlock()
	s.logger.Debug("profile loaded", "user", user.Username)
}

// Logout clears the token, the profile and the persisted token. Safe to call when already logged out.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	s.clearPersisted()
}

// dropToken clears the session only while token is still the current one.
func (s *SessionStore) dropToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		s.loading = false
		return false
	}
	s.token = ""
	s.user = nil
	return true
}

func (s *SessionStore) clearPersisted() {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn("could not clear persisted token", "error", err)
	}
}

func (s *SessionStore) persist(token string) {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.Save(token); err != nil {
		s.logger.Warn("could not persist token", "error", err)
	}
}
