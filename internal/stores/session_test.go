package stores

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/services"
	tu "github.com/desertthunder/flowmaster/internal/testing"
	"github.com/golang-jwt/jwt/v5"
)

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("NewSessionStore", func(t *testing.T) {
		t.Run("Seeds Persisted Token", func(t *testing.T) {
			h := signedIn(t)

			if !h.session.IsAuthenticated() {
				t.Fatal("expected session to be authenticated from the persisted token")
			}
			if h.session.User() != nil {
				t.Error("expected profile to be unknown until fetched")
			}
			if h.fake.Count("GET /auth/me") != 0 {
				t.Error("expected no request during construction")
			}
		})

		t.Run("Empty Slot", func(t *testing.T) {
			h := newHarness(t)

			if h.session.IsAuthenticated() {
				t.Error("expected empty session")
			}
		})

		t.Run("Unreadable Slot", func(t *testing.T) {
			tokens := tu.NewMemoryTokens("stale")
			tokens.LoadErr = errors.New("disk on fire")

			s := NewSessionStore(nil, tokens, quietLogger())
			if s.Token() != "" {
				t.Errorf("expected no token, got %q", s.Token())
			}
			if s.LastError() != "" {
				t.Errorf("persistence failures should not surface as store errors, got %q", s.LastError())
			}
		})

		t.Run("Nil Persister", func(t *testing.T) {
			s := NewSessionStore(nil, nil, nil)
			s.Logout()

			if s.IsAuthenticated() {
				t.Error("expected empty session")
			}
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("Valid Credentials", func(t *testing.T) {
			h := newHarness(t)
			h.fake.AddUser("ada", "lovelace")

			if !h.session.Login(ctx, models.Credentials{Username: "ada", Password: "lovelace"}) {
				t.Fatalf("expected login to succeed, error %q", h.session.LastError())
			}

			if !h.session.IsAuthenticated() {
				t.Error("expected session to be authenticated")
			}
			user := h.session.User()
			if user == nil || user.Username != "ada" {
				t.Fatalf("expected profile for ada, got %+v", user)
			}
			if h.fake.Count("GET /auth/me") != 1 {
				t.Errorf("expected profile fetch to be chained once, got %d", h.fake.Count("GET /auth/me"))
			}
			if h.tokens.Stored() != h.session.Token() {
				t.Error("expected token to be persisted")
			}
			if h.session.Loading() {
				t.Error("expected loading to be cleared")
			}
			if h.session.LastError() != "" {
				t.Errorf("expected no error, got %q", h.session.LastError())
			}
		})

		t.Run("Server Detail Surfaced", func(t *testing.T) {
			h := newHarness(t)
			h.fake.AddUser("ada", "lovelace")

			if h.session.Login(ctx, models.Credentials{Username: "ada", Password: "nope"}) {
				t.Fatal("expected login to fail")
			}
			if h.session.LastError() != "incorrect username or password" {
				t.Errorf("expected server detail, got %q", h.session.LastError())
			}
			if h.session.IsAuthenticated() {
				t.Error("expected no token after failed login")
			}
			if h.tokens.Saves != 0 {
				t.Error("expected nothing to be persisted")
			}
		})

		t.Run("Fallback Without Detail", func(t *testing.T) {
			h := newHarness(t)
			h.fake.Fail("POST /auth/login", http.StatusInternalServerError, "")

			if h.session.Login(ctx, models.Credentials{Username: "ada", Password: "x"}) {
				t.Fatal("expected login to fail")
			}
			if h.session.LastError() != MsgLoginFailed {
				t.Errorf("expected fallback message, got %q", h.session.LastError())
			}
		})

		t.Run("Profile Failure Still Succeeds", func(t *testing.T) {
			h := newHarness(t)
			h.fake.AddUser("ada", "lovelace")
			h.fake.Fail("GET /auth/me", http.StatusInternalServerError, "")

			if !h.session.Login(ctx, models.Credentials{Username: "ada", Password: "lovelace"}) {
				t.Fatal("expected login to report success when only the profile fetch failed")
			}
			if !h.session.IsAuthenticated() {
				t.Error("expected token to be kept")
			}
			if h.session.User() != nil {
				t.Error("expected profile to be unknown")
			}
			if h.session.LastError() != MsgProfileFailed {
				t.Errorf("expected profile error, got %q", h.session.LastError())
			}
		})

		t.Run("Persistence Failure Is Not Fatal", func(t *testing.T) {
			h := newHarness(t)
			h.fake.AddUser("ada", "lovelace")
			h.tokens.SaveErr = errors.New("read-only")

			if !h.session.Login(ctx, models.Credentials{Username: "ada", Password: "lovelace"}) {
				t.Fatal("expected login to succeed")
			}
			if h.session.User() == nil {
				t.Error("expected profile to be loaded")
			}
		})

		t.Run("Overwrites Previous Session", func(t *testing.T) {
			h := signedIn(t)
			h.session.FetchUserProfile(ctx)
			h.fake.AddUser("grace", "hopper")

			if !h.session.Login(ctx, models.Credentials{Username: "grace", Password: "hopper"}) {
				t.Fatal("expected login to succeed")
			}
			if u := h.session.User(); u == nil || u.Username != "grace" {
				t.Errorf("expected profile for grace, got %+v", u)
			}
		})
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("Signs In", func(t *testing.T) {
			h := newHarness(t)

			ok := h.session.Register(ctx, models.Registration{Email: "g@example.com", Username: "grace", Password: "hopper"})
			if !ok {
				t.Fatalf("expected registration to succeed, error %q", h.session.LastError())
			}
			if u := h.session.User(); u == nil || u.Email != "g@example.com" {
				t.Errorf("expected profile to be loaded, got %+v", u)
			}
			if h.tokens.Stored() == "" {
				t.Error("expected token to be persisted")
			}
		})

		t.Run("Server Detail Surfaced", func(t *testing.T) {
			h := newHarness(t)
			h.fake.AddUser("grace", "hopper")

			if h.session.Register(ctx, models.Registration{Username: "grace", Password: "x"}) {
				t.Fatal("expected registration to fail")
			}
			if h.session.LastError() != "username already taken" {
				t.Errorf("expected server detail, got %q", h.session.LastError())
			}
		})

		t.Run("Fallback Without Detail", func(t *testing.T) {
			h := newHarness(t)
			h.fake.Fail("POST /auth/register", http.StatusBadGateway, "")

			if h.session.Register(ctx, models.Registration{Username: "grace", Password: "x"}) {
				t.Fatal("expected registration to fail")
			}
			if h.session.LastError() != MsgRegisterFailed {
				t.Errorf("expected fallback message, got %q", h.session.LastError())
			}
		})
	})

	t.Run("FetchUserProfile", func(t *testing.T) {
		t.Run("No Token Is A No-op", func(t *testing.T) {
			h := newHarness(t)
			h.session.FetchUserProfile(ctx)

			if len(h.fake.Requests()) != 0 {
				t.Error("expected no request without a token")
			}
			if h.session.LastError() != "" {
				t.Errorf("expected no error, got %q", h.session.LastError())
			}
		})

		t.Run("Loads Profile", func(t *testing.T) {
			h := signedIn(t)
			h.session.FetchUserProfile(ctx)

			req, _ := h.fake.LastRequest("GET /auth/me")
			if req.Authorization != "Bearer "+h.session.Token() {
				t.Errorf("expected bearer credential, got %q", req.Authorization)
			}
			if u := h.session.User(); u == nil || u.Username != "ada" {
				t.Errorf("expected profile for ada, got %+v", u)
			}
		})

		t.Run("Unauthorized Logs Out", func(t *testing.T) {
			h := signedIn(t)
			h.session.FetchUserProfile(ctx)
			h.fake.RevokeToken(h.session.Token())

			h.session.FetchUserProfile(ctx)

			if h.session.Token() != "" {
				t.Error("expected token to be cleared")
			}
			if h.session.User() != nil {
				t.Error("expected user to be cleared")
			}
			if h.tokens.Stored() != "" || h.tokens.Clears != 1 {
				t.Errorf("expected persisted token to be removed, stored %q clears %d", h.tokens.Stored(), h.tokens.Clears)
			}
			if h.session.LastError() != MsgProfileFailed {
				t.Errorf("expected profile error, got %q", h.session.LastError())
			}
		})

		t.Run("Other Failures Keep Token", func(t *testing.T) {
			statuses := []int{
				http.StatusForbidden,
				http.StatusNotFound,
				http.StatusInternalServerError,
				http.StatusServiceUnavailable,
			}

			for _, status := range statuses {
				t.Run(http.StatusText(status), func(t *testing.T) {
					h := signedIn(t)
					token := h.session.Token()
					h.fake.Fail("GET /auth/me", status, "")

					h.session.FetchUserProfile(ctx)

					if h.session.Token() != token {
						t.Errorf("expected token to survive a %d", status)
					}
					if h.tokens.Clears != 0 {
						t.Error("expected persisted token to be kept")
					}
					if h.session.LastError() != MsgProfileFailed {
						t.Errorf("expected profile error, got %q", h.session.LastError())
					}
				})
			}
		})

		t.Run("Network Failure Keeps Token", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection reset"))}
			api := services.NewFlowService(services.NewAPIService("http://example.com", client))
			s := NewSessionStore(api, tu.NewMemoryTokens("tok"), quietLogger())

			s.FetchUserProfile(ctx)

			if s.Token() != "tok" {
				t.Error("expected token to survive a network failure")
			}
			if s.Loading() {
				t.Error("expected loading to be cleared")
			}
		})

		t.Run("Stale Unauthorized Keeps Newer Session", func(t *testing.T) {
			api := newSlowAuth()
			tokens := tu.NewMemoryTokens("old-token")
			s := NewSessionStore(api, tokens, quietLogger())

			done := make(chan struct{})
			go func() {
				defer close(done)
				s.FetchUserProfile(ctx)
			}()
			<-api.started

			if !s.Login(ctx, models.Credentials{Username: "grace", Password: "hopper"}) {
				t.Fatalf("expected login to succeed, error %q", s.LastError())
			}
			close(api.release)
			<-done

			if s.Token() != "new-token" {
				t.Errorf("expected newer token to survive, got %q", s.Token())
			}
			if u := s.User(); u == nil || u.Username != "grace" {
				t.Errorf("expected profile for grace, got %+v", u)
			}
			if s.LastError() != "" {
				t.Errorf("expected no error, got %q", s.LastError())
			}
			if tokens.Stored() != "new-token" || tokens.Clears != 0 {
				t.Errorf("expected persisted token to be kept, stored %q clears %d", tokens.Stored(), tokens.Clears)
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		h := signedIn(t)
		h.session.FetchUserProfile(ctx)

		h.session.Logout()
		h.session.Logout()

		if h.session.IsAuthenticated() || h.session.User() != nil {
			t.Error("expected session to be cleared")
		}
		if h.tokens.Stored() != "" {
			t.Error("expected persisted token to be removed")
		}
		if h.tokens.Clears != 2 {
			t.Errorf("expected clear on every logout, got %d", h.tokens.Clears)
		}
	})

	t.Run("User Returns Copy", func(t *testing.T) {
		h := signedIn(t)
		h.session.FetchUserProfile(ctx)

		u := h.session.User()
		u.Username = "mallory"

		if h.session.User().Username != "ada" {
			t.Error("expected store profile to be unaffected by caller mutation")
		}
	})

	t.Run("ExpiresAt", func(t *testing.T) {
		t.Run("JWT", func(t *testing.T) {
			exp := time.Now().Add(time.Hour).Truncate(time.Second)
			claims := jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(exp)}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
			if err != nil {
				t.Fatalf("failed to sign token: %v", err)
			}

			s := NewSessionStore(nil, tu.NewMemoryTokens(signed), quietLogger())
			got, ok := s.ExpiresAt()
			if !ok {
				t.Fatal("expected expiry to be reported")
			}
			if !got.Equal(exp) {
				t.Errorf("expected %v, got %v", exp, got)
			}
		})

		t.Run("Opaque Token", func(t *testing.T) {
			s := NewSessionStore(nil, tu.NewMemoryTokens("token-1-ada"), quietLogger())
			if _, ok := s.ExpiresAt(); ok {
				t.Error("expected no expiry for an opaque token")
			}
		})

		t.Run("No Token", func(t *testing.T) {
			s := NewSessionStore(nil, nil, quietLogger())
			if _, ok := s.ExpiresAt(); ok {
				t.Error("expected no expiry without a token")
			}
		})
	})
}

// slowAuth holds the profile request for "old-token" until release is closed, then rejects it.
type slowAuth struct {
	started chan struct{}
	release chan struct{}
}

func newSlowAuth() *slowAuth {
	return &slowAuth{started: make(chan struct{}), release: make(chan struct{})}
}

func (a *slowAuth) Login(context.Context, models.Credentials) (string, error) {
	return "new-token", nil
}

func (a *slowAuth) Register(context.Context, models.Registration) (string, error) {
	return "new-token", nil
}

func (a *slowAuth) CurrentUser(_ context.Context, token string) (*models.User, error) {
	if token == "old-token" {
		close(a.started)
		<-a.release
		return nil, &services.APIError{StatusCode: http.StatusUnauthorized}
	}
	return &models.User{ID: "u2", Username: "grace"}, nil
}
