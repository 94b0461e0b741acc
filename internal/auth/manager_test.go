package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/geo-accounts/internal/storage"
)

func TestMain(m *testing.M) {
	hashCost = bcrypt.MinCost
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubUserRepository struct {
	users     map[string]*storage.User
	findErr   error
	existsErr error
	createErr error
	created   []*storage.User
}

func newStubRepo() *stubUserRepository {
	return &stubUserRepository{users: map[string]*storage.User{}}
}

func (s *stubUserRepository) FindByLogin(ctx context.Context, login string) (*storage.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[login]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (s *stubUserRepository) Exists(ctx context.Context, login, email string, phone *string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	for _, u := range s.users {
		if u.Login == login || u.Email == email {
			return true, nil
		}
		if phone != nil && u.Phone != nil && *u.Phone == *phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubUserRepository) Create(ctx context.Context, user *storage.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = int64(len(s.users) + 1)
	s.users[user.Login] = user
	s.created = append(s.created, user)
	return nil
}

func newTestManager(t *testing.T, repo *stubUserRepository) *Manager {
	t.Helper()
	m, err := NewManager(repo, NewTokenIssuer([]byte("secret"), time.Hour))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	return m
}

func newRouter(m *Manager) *gin.Engine {
	router := gin.New()
	router.POST("/api/auth/sign-in", m.SignIn)
	router.POST("/api/auth/register", m.Register)
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func validRegistration() map[string]any {
	return map[string]any{
		"login":       "alice",
		"email":       "alice@example.com",
		"password":    "Secret123",
		"countryCode": "us",
		"isPublic":    true,
	}
}

func TestRegisterSuccess(t *testing.T) {
	repo := newStubRepo()
	router := newRouter(newTestManager(t, repo))

	body := validRegistration()
	body["phone"] = "+15550001"
	rec := postJSON(t, router, "/api/auth/register", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["message"]; got != "User registered successfully" {
		t.Fatalf("unexpected message: %s", got)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(repo.created))
	}
	user := repo.created[0]
	if user.Password == "Secret123" || !VerifyPassword(user.Password, "Secret123") {
		t.Fatal("password must be stored as a hash")
	}
	if user.CountryCode != "US" {
		t.Fatalf("unexpected country code: %s", user.CountryCode)
	}
	if user.Phone == nil || *user.Phone != "+15550001" || user.Image != nil {
		t.Fatalf("unexpected optional fields: %#v", user)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	router := newRouter(newTestManager(t, newStubRepo()))

	cases := []struct {
		name string
		drop []string
		want string
	}{
		{name: "only login", drop: []string{"email", "password", "countryCode", "isPublic"}, want: "Missing fields: email, password, countryCode, isPublic"},
		{name: "password", drop: []string{"password"}, want: "Missing fields: password"},
		{name: "isPublic", drop: []string{"isPublic"}, want: "Missing fields: isPublic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validRegistration()
			for _, f := range tc.drop {
				delete(body, f)
			}
			rec := postJSON(t, router, "/api/auth/register", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: %d", rec.Code)
			}
			if got := decodeBody(t, rec)["reason"]; got != tc.want {
				t.Fatalf("reason = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRegisterIsPublicFalseIsPresent(t *testing.T) {
	repo := newStubRepo()
	router := newRouter(newTestManager(t, repo))

	body := validRegistration()
	body["isPublic"] = false
	rec := postJSON(t, router, "/api/auth/register", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if repo.created[0].IsPublic {
		t.Fatal("expected IsPublic=false")
	}
}

func TestRegisterInvalidFields(t *testing.T) {
	router := newRouter(newTestManager(t, newStubRepo()))

	cases := []struct {
		name  string
		field string
		value any
		want  string
	}{
		{name: "blank login", field: "login", value: "  ", want: "Invalid fields: login"},
		{name: "long email", field: "email", value: string(bytes.Repeat([]byte("e"), 121)), want: "Invalid fields: email"},
		{name: "country length", field: "countryCode", value: "USA", want: "Invalid fields: countryCode"},
		{name: "long phone", field: "phone", value: "+1234567890123456", want: "Invalid fields: phone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validRegistration()
			body[tc.field] = tc.value
			rec := postJSON(t, router, "/api/auth/register", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
			}
			if got := decodeBody(t, rec)["reason"]; got != tc.want {
				t.Fatalf("reason = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRegisterConflict(t *testing.T) {
	phone := "+100"
	repo := newStubRepo()
	repo.users["bob"] = &storage.User{ID: 1, Login: "bob", Email: "bob@example.com", Phone: &phone}
	router := newRouter(newTestManager(t, repo))

	cases := map[string]map[string]any{
		"login": {"login": "bob"},
		"email": {"email": "bob@example.com"},
		"phone": {"phone": "+100"},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			body := validRegistration()
			for k, v := range override {
				body[k] = v
			}
			rec := postJSON(t, router, "/api/auth/register", body)
			if rec.Code != http.StatusConflict {
				t.Fatalf("unexpected status: %d", rec.Code)
			}
			if got := decodeBody(t, rec)["reason"]; got != reasonConflict {
				t.Fatalf("unexpected reason: %s", got)
			}
		})
	}
}

func TestRegisterClassifiesStoreErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{name: "race conflict", err: storage.ErrConflict, wantStatus: http.StatusConflict, wantReason: reasonConflict},
		{name: "unknown country", err: storage.ErrUnknownCountry, wantStatus: http.StatusBadRequest, wantReason: reasonUnknownCountry},
		{name: "connection", err: errors.New("dial tcp: connection refused"), wantStatus: http.StatusInternalServerError, wantReason: reasonRegisterFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubRepo()
			repo.createErr = tc.err
			router := newRouter(newTestManager(t, repo))

			rec := postJSON(t, router, "/api/auth/register", validRegistration())
			if rec.Code != tc.wantStatus {
				t.Fatalf("unexpected status: %d", rec.Code)
			}
			if got := decodeBody(t, rec)["reason"]; got != tc.wantReason {
				t.Fatalf("reason = %q, want %q", got, tc.wantReason)
			}
		})
	}
}

func TestRegisterInvalidJSON(t *testing.T) {
	router := newRouter(newTestManager(t, newStubRepo()))
	rec := postJSON(t, router, "/api/auth/register", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestSignIn(t *testing.T) {
	repo := newStubRepo()
	hash, err := HashPassword("Secret123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	repo.users["alice"] = &storage.User{ID: 7, Login: "alice", Password: hash}
	m := newTestManager(t, repo)
	router := newRouter(m)

	rec := postJSON(t, router, "/api/auth/sign-in", map[string]string{"login": "alice", "password": "Secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	token := decodeBody(t, rec)["token"]
	if token == "" {
		t.Fatal("expected token")
	}
	claims, err := m.Tokens().Parse(token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if id, _ := claims.UserID(); id != 7 {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
}

func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	repo := newStubRepo()
	hash, err := HashPassword("Secret123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	repo.users["alice"] = &storage.User{ID: 7, Login: "alice", Password: hash}
	router := newRouter(newTestManager(t, repo))

	wrongPassword := postJSON(t, router, "/api/auth/sign-in", map[string]string{"login": "alice", "password": "nope"})
	unknownLogin := postJSON(t, router, "/api/auth/sign-in", map[string]string{"login": "mallory", "password": "Secret123"})

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownLogin} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	}
	if wrongPassword.Body.String() != unknownLogin.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrongPassword.Body.String(), unknownLogin.Body.String())
	}
	if got := decodeBody(t, unknownLogin)["reason"]; got != reasonInvalidLogin {
		t.Fatalf("unexpected reason: %s", got)
	}
}

func TestSignInMissingFields(t *testing.T) {
	router := newRouter(newTestManager(t, newStubRepo()))

	for _, body := range []map[string]string{
		{"login": "alice"},
		{"password": "x"},
		{"login": "", "password": "x"},
	} {
		rec := postJSON(t, router, "/api/auth/sign-in", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status for %v: %d", body, rec.Code)
		}
		if got := decodeBody(t, rec)["reason"]; got != reasonSignInRequired {
			t.Fatalf("unexpected reason: %s", got)
		}
	}
}

func TestSignInStoreFailure(t *testing.T) {
	repo := newStubRepo()
	repo.findErr = errors.New("database is locked")
	router := newRouter(newTestManager(t, repo))

	rec := postJSON(t, router, "/api/auth/sign-in", map[string]string{"login": "alice", "password": "x"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := decodeBody(t, rec)["reason"]; got != reasonSignInFailed {
		t.Fatalf("internal error text must not leak: %s", got)
	}
}
