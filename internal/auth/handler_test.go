package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dreamtoapp/jbrtechno-admin/internal/auth"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
	_ "github.com/dreamtoapp/jbrtechno-admin/testing"
)

type authFixture struct {
	router   chi.Router
	sessions *shared.SessionManager
	repo     *stubRepo
}

func newAuthFixture(t *testing.T, repo *stubRepo) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := auth.NewHandler(logger, auth.NewService(repo), sessions, csrf, nil)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return &authFixture{router: r, sessions: sessions, repo: repo}
}

func (f *authFixture) do(t *testing.T, method, target, body string, authenticated *shared.Identity) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if authenticated != nil {
		sess.SetIdentity(*authenticated)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res, sess
}

func TestLoginSuccessSetsIdentity(t *testing.T) {
	f := newAuthFixture(t, &stubRepo{user: activeUser(t, "correct-pass")})

	res, sess := f.do(t, http.MethodPost, "/auth/login", `{"email":"user@test.local","password":"correct-pass"}`, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != "u1" || payload.Role != "STAFF" {
		t.Fatalf("unexpected identity payload %+v", payload)
	}

	identity := sess.Identity()
	if !identity.Valid() || identity.PrincipalID != "u1" {
		t.Fatalf("session identity not set: %+v", identity)
	}
	if f.repo.createdSessionID == "" {
		t.Fatalf("session record not persisted")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, &stubRepo{user: activeUser(t, "correct-pass")})

	res, sess := f.do(t, http.MethodPost, "/auth/login", `{"email":"user@test.local","password":"wrong-pass"}`, nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.Identity().Valid() {
		t.Fatalf("identity must not be set on failed login")
	}
}

func TestLoginValidation(t *testing.T) {
	f := newAuthFixture(t, &stubRepo{})

	res, _ := f.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"short"}`, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newAuthFixture(t, &stubRepo{})

	identity := &shared.Identity{PrincipalID: "u1", Role: "STAFF", Email: "user@test.local"}
	res, _ := f.do(t, http.MethodPost, "/auth/logout", "", identity)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestCurrentSession(t *testing.T) {
	f := newAuthFixture(t, &stubRepo{})

	res, _ := f.do(t, http.MethodGet, "/auth/session", "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", res.Code)
	}

	identity := &shared.Identity{PrincipalID: "u1", Role: "STAFF", Email: "user@test.local"}
	res, _ = f.do(t, http.MethodGet, "/auth/session", "", identity)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 with identity, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "user@test.local") {
		t.Fatalf("expected identity in response body")
	}
}
