package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/infra/security"
	redisrepo "github.com/arklim/account-service/internal/repository/redis"
	"github.com/arklim/account-service/internal/transport/http/middleware"
	httproutes "github.com/arklim/account-service/internal/transport/http/routes"
	"github.com/arklim/account-service/internal/usecase"
)

type accountsStub struct {
	admins map[string]bool
}

func (s accountsStub) Find(_ context.Context, id string) (*usecase.UserDTO, error) {
	return &usecase.UserDTO{ID: id}, nil
}

func (s accountsStub) FindAsAdmin(_ context.Context, id string) (*usecase.UserAdminDTO, error) {
	return &usecase.UserAdminDTO{ID: id}, nil
}

func (s accountsStub) GetPicture(context.Context, string) (*domain.Picture, error) {
	return nil, usecase.ErrPictureNotFound
}

func (s accountsStub) GetCount(context.Context) (int64, error) {
	return 1, nil
}

func (s accountsStub) List(_ context.Context, opts usecase.ListOptions) (*usecase.UserAdminList, error) {
	return &usecase.UserAdminList{Data: []usecase.UserAdminDTO{}, Page: opts.Page, Size: opts.Size}, nil
}

func (s accountsStub) UpdateFullName(_ context.Context, id, _ string) (*usecase.UserDTO, error) {
	return &usecase.UserDTO{ID: id}, nil
}

func (s accountsStub) UpdateEmailRequest(_ context.Context, id, _ string) (*usecase.UserDTO, error) {
	return &usecase.UserDTO{ID: id}, nil
}

func (s accountsStub) UpdateEmailConfirmation(context.Context, string) (*usecase.UserDTO, error) {
	return nil, usecase.ErrUserNotFound
}

func (s accountsStub) UpdatePassword(context.Context, string, string, string) (*usecase.UserDTO, error) {
	return nil, usecase.ErrPasswordValidationFailed
}

func (s accountsStub) UpdatePicture(context.Context, string, string, string) (*usecase.UserDTO, error) {
	return nil, errors.New("unexpected call: UpdatePicture")
}

func (s accountsStub) DeletePicture(_ context.Context, id string) (*usecase.UserDTO, error) {
	return &usecase.UserDTO{ID: id}, nil
}

func (s accountsStub) Drop(context.Context, string, string) error {
	return usecase.ErrInvalidPassword
}

func (s accountsStub) Suspend(context.Context, string, bool) error {
	return nil
}

func (s accountsStub) MakeAdmin(context.Context, string, bool) error {
	return nil
}

func (s accountsStub) IsAdmin(_ context.Context, id string) (bool, error) {
	return s.admins[id], nil
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type fixture struct {
	router *gin.Engine
	tokens *security.TokenManager
}

func newFixture(t *testing.T, limiter *middleware.RateLimiter) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := security.NewTokenManager("routes-test-key", "idp", "")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}
	cfg.RateLimit.PasswordMaxAttempts = 1
	cfg.RateLimit.WindowDuration = time.Minute

	r := httproutes.Register(httproutes.Dependencies{
		Config:      cfg,
		Logger:      zaptest.NewLogger(t),
		Accounts:    accountsStub{admins: map[string]bool{"admin": true}},
		Tokens:      tokens,
		RateLimiter: limiter,
		Readiness: map[string]httproutes.ReadinessChecker{
			"postgres": checkerFunc(func(context.Context) error { return nil }),
		},
	})
	return fixture{router: r, tokens: tokens}
}

func (f fixture) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, err := f.tokens.Issue(user, time.Minute)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rr := f.do(t, http.MethodGet, path, "", ""); rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rr.Code)
		}
	}
}

func TestHealthWithoutAccounts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := httproutes.Register(httproutes.Dependencies{
		Config: &config.AppConfig{App: config.AppSettings{Env: "test"}},
		Logger: zaptest.NewLogger(t),
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestSelfRoutesRequireAuth(t *testing.T) {
	f := newFixture(t, nil)

	if rr := f.do(t, http.MethodGet, "/api/v1/users/me", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr := f.do(t, http.MethodGet, "/api/v1/users/me", "u1", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestEmailConfirmationIsPublic(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodPatch, "/api/v1/users/me/email_confirmation", "", `{"token":"abc"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from service, got %d", rr.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t, nil)

	if rr := f.do(t, http.MethodGet, "/api/v1/admin/users", "u1", ""); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if rr := f.do(t, http.MethodGet, "/api/v1/admin/users/count", "admin", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := f.do(t, http.MethodPatch, "/api/v1/admin/users/u1/suspend", "admin", `{"suspend":true}`); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestPasswordRouteIsRateLimited(t *testing.T) {
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisrepo.NewRateLimitRepository(client, redisrepo.SlidingWindowConfig{KeyPrefix: "routes"})
	f := newFixture(t, middleware.NewRateLimiter(store, zaptest.NewLogger(t)))

	body := `{"currentPassword":"a","newPassword":"b"}`
	if rr := f.do(t, http.MethodPatch, "/api/v1/users/me/password", "u1", body); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from service on first attempt, got %d", rr.Code)
	}
	rr := f.do(t, http.MethodPatch, "/api/v1/users/me/password", "u1", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second attempt, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	// other users keep their own budget
	if rr := f.do(t, http.MethodPatch, "/api/v1/users/me/password", "u2", body); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a different user, got %d", rr.Code)
	}
}
