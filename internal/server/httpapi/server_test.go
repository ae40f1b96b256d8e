package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/anandakmagar/authguard/internal/common"
	"github.com/anandakmagar/authguard/internal/server/auth"
	"github.com/anandakmagar/authguard/internal/server/metrics"
	"github.com/anandakmagar/authguard/internal/server/services"
)

type testServer struct {
	ts     *httptest.Server
	mock   sqlmock.Sqlmock
	mailer *fakeMailer
	rm     *fakeRepoManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rm := newFakeRepoManager()
	tokens := auth.NewTokenService("test-secret", 30*time.Minute, time.Hour)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	mailer := &fakeMailer{}

	userSvc := services.NewUserService(db, rm, tokens, hasher)
	resetSvc := services.NewResetService(db, rm, hasher, mailer, 15*time.Minute, nopLogger{})

	m := metrics.New()
	handlers := NewHandlers(userSvc, resetSvc, m, nopLogger{})
	authn := NewAuthenticator(tokens, rm.users, nopLogger{})
	srv := NewServer("127.0.0.1:0", db, authn, NewPolicy(), handlers, m, nopLogger{})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, mock: mock, mailer: mailer, rm: rm}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)

	// Register and log in.
	resp, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "first-password", "role": "USER",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}

	resp, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "first-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	if got := body["expiresIn"]; got != float64(1800) {
		t.Errorf("login expiresIn = %v, want 1800", got)
	}
	if got := body["tokenType"]; got != "Bearer" {
		t.Errorf("login tokenType = %v", got)
	}
	accessToken, _ := body["accessToken"].(string)
	if accessToken == "" {
		t.Fatal("login returned no access token")
	}

	// A plain USER cannot list accounts.
	resp, _ = s.do(t, http.MethodGet, "/api/users", accessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("list users as USER: status %d, want 403", resp.StatusCode)
	}

	// Request a reset code and read it from the delivered mail.
	resp, _ = s.do(t, http.MethodGet, "/api/auth/send-reset-code/alice", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send-reset-code: status %d", resp.StatusCode)
	}
	mail, ok := s.mailer.last()
	if !ok {
		t.Fatal("no reset mail delivered")
	}
	var code int64
	if _, err := fmt.Sscanf(mail.Body, "alice, your password reset code is %d.", &code); err != nil {
		t.Fatalf("unexpected mail body %q: %v", mail.Body, err)
	}
	if code < 1_000_000_000 || code > 1_999_999_999 {
		t.Fatalf("code %d is not 10 digits", code)
	}

	// Change the password with the code. The update runs in a transaction.
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	resp, _ = s.do(t, http.MethodPost, "/api/auth/change-password", "", map[string]any{
		"username": "alice", "resetCode": code, "newPassword": "second-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change-password: status %d", resp.StatusCode)
	}

	// The code is single-use.
	resp, _ = s.do(t, http.MethodPost, "/api/auth/change-password", "", map[string]any{
		"username": "alice", "resetCode": code, "newPassword": "third-password",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reused code: status %d, want 400", resp.StatusCode)
	}

	// Old password no longer works, the new one does.
	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "first-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login with old password: status %d, want 401", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "second-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password: status %d", resp.StatusCode)
	}

	if err := s.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}
}

func TestResetEndpointsContract(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "pw", "role": "USER",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}

	// The reset-code request is a GET on the username path.
	resp, _ = s.do(t, http.MethodGet, "/api/auth/send-reset-code/alice", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET send-reset-code: status %d", resp.StatusCode)
	}

	// Declined outcomes on both reset endpoints are 400.
	resp, _ = s.do(t, http.MethodGet, "/api/auth/send-reset-code/ghost", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("send-reset-code for unknown user: status %d, want 400", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPost, "/api/auth/change-password", "", map[string]any{
		"username": "ghost", "resetCode": int64(1234567890), "newPassword": "x",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("change-password for unknown user: status %d, want 400", resp.StatusCode)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob", "password": "pw", "role": "USER",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}

	_, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "bob", "password": "pw",
	})
	refreshToken, _ := body["refreshToken"].(string)
	if refreshToken == "" {
		t.Fatal("login returned no refresh token")
	}

	resp, body = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": refreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status %d", resp.StatusCode)
	}
	if got := body["expiresIn"]; got != float64(3600) {
		t.Errorf("refresh expiresIn = %v, want 3600", got)
	}

	resp, _ = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": "garbage",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh with garbage: status %d, want 401", resp.StatusCode)
	}
}

func TestUserAdministration(t *testing.T) {
	s := newTestServer(t)

	// One admin, one plain user.
	s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "root", "password": "rootpw", "role": "ADMIN",
	})
	resp, created := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "carol", "password": "pw", "role": "USER",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	carolID, _ := created["id"].(string)

	_, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "root", "password": "rootpw",
	})
	adminToken, _ := body["accessToken"].(string)
	_, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "carol", "password": "pw",
	})
	carolToken, _ := body["accessToken"].(string)

	// Admin sees everyone.
	resp, _ = s.do(t, http.MethodGet, "/api/users", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list users: status %d", resp.StatusCode)
	}

	// Carol may read her own record but not root's.
	resp, _ = s.do(t, http.MethodGet, "/api/users/"+carolID, carolToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get own record: status %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/api/users/id-1", carolToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("get other record: status %d, want 403", resp.StatusCode)
	}

	// Only the admin may delete.
	resp, _ = s.do(t, http.MethodDelete, "/api/users/"+carolID, carolToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("delete as USER: status %d, want 403", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodDelete, "/api/users/"+carolID, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete as ADMIN: status %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodDelete, "/api/users/"+carolID, adminToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete twice: status %d, want 404", resp.StatusCode)
	}

	// A duplicate registration is rejected.
	resp, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "root", "password": "x", "role": "USER",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", resp.StatusCode)
	}
}
