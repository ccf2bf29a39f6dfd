package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/app"
	"clinicdesk/internal/config"
	"clinicdesk/internal/handlers"
	"clinicdesk/internal/models"
	"clinicdesk/internal/security"
	"clinicdesk/internal/tokenstore"
)

const backendSecret = "fake-backend-secret"

type account struct {
	subject string
	role    models.UserRole
	token   string
}

// fakeBackend serves the auth and clinic endpoints for two accounts.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	accounts := map[string]*account{
		"+380991234567": {subject: "42", role: models.UserRoleUser},
		"+380501112233": {subject: "a1", role: models.UserRoleAdmin},
	}
	byToken := map[string]*account{}
	for phone, acc := range accounts {
		token, err := security.IssueToken(backendSecret, acc.subject, acc.role, phone, time.Hour)
		require.NoError(t, err)
		acc.token = token
		byToken["Bearer "+token] = acc
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/auth/login" {
			var cred models.Credential
			_ = json.NewDecoder(r.Body).Decode(&cred)
			acc, ok := accounts[cred.PhoneNumber]
			if !ok || cred.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Invalid phone number or password"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": acc.token})
			return
		}

		acc, ok := byToken[r.Header.Get("Authorization")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/auth/me":
			_ = json.NewEncoder(w).Encode(map[string]string{"_id": acc.subject, "role": string(acc.role)})
		case "/patients/":
			_, _ = w.Write([]byte(`[{"_id":"42","firstName":"Olena","lastName":"S","phoneNumber":"+380991234567"}]`))
		case "/patients/42":
			_, _ = w.Write([]byte(`{"_id":"42","firstName":"Olena","lastName":"S","phoneNumber":"+380991234567"}`))
		case "/medical-tests/patient/42", "/diagnoses/patient/42":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newShell(t *testing.T) (*gin.Engine, tokenstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := fakeBackend(t)

	cfg := &config.AppConfig{
		Environment: "test",
		Backend:     config.BackendConfig{BaseURL: backend.URL, Timeout: 2 * time.Second},
		Security:    config.SecurityConfig{TokenSecret: backendSecret},
		Storage:     config.StorageConfig{Driver: config.StorageDriverDisk, Dir: t.TempDir()},
	}
	store := tokenstore.NewMemoryStore()
	a, err := app.NewWithStore(context.Background(), cfg, zerolog.Nop(), store)
	require.NoError(t, err)
	require.NoError(t, a.Sessions.Init(context.Background()))
	t.Cleanup(func() { _ = a.Close() })

	return NewEngine(cfg, zerolog.Nop(), handlers.NewHandlerSet(a)), store
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, location, w.Header().Get("Location"))
}

func TestShell_Anonymous(t *testing.T) {
	h, _ := newShell(t)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/login", nil).Code)
	assertRedirect(t, do(t, h, http.MethodGet, "/patients", nil), "/login")
	assertRedirect(t, do(t, h, http.MethodGet, "/info/42", nil), "/login")
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/me", nil).Code)

	w := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session":"unauthenticated"`)
}

func TestShell_LoginValidation(t *testing.T) {
	h, _ := newShell(t)

	w := do(t, h, http.MethodPost, "/login", map[string]string{"phoneNumber": "12345", "password": "secret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "+380")

	w = do(t, h, http.MethodPost, "/login", map[string]string{"phoneNumber": "+380991234567", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"invalid credentials"}`, w.Body.String())
}

func TestShell_PatientFlow(t *testing.T) {
	h, store := newShell(t)

	w := do(t, h, http.MethodPost, "/login", map[string]string{"phoneNumber": "+380 99 123 45 67", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Session  models.Session `json:"session"`
		Redirect string         `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/info/42", resp.Redirect)
	assert.Equal(t, models.UserRoleUser, resp.Session.Role)

	id, err := store.LoadUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	assertRedirect(t, do(t, h, http.MethodGet, "/patients", nil), "/info/42")
	assertRedirect(t, do(t, h, http.MethodGet, "/info/43", nil), "/info/42")
	assertRedirect(t, do(t, h, http.MethodGet, "/login", nil), "/info/42")

	w = do(t, h, http.MethodGet, "/info/42", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"firstName":"Olena"`)

	w = do(t, h, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assertRedirect(t, do(t, h, http.MethodGet, "/info/42", nil), "/login")

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrAbsent)
}

func TestShell_StaffFlow(t *testing.T) {
	h, _ := newShell(t)

	w := do(t, h, http.MethodPost, "/login", map[string]string{"phoneNumber": "+380501112233", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.Contains(w.Body.String(), `"redirect":"/patients"`))

	w = do(t, h, http.MethodGet, "/patients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"_id":"42"`)

	w = do(t, h, http.MethodGet, "/patientDetail/42", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assertRedirect(t, do(t, h, http.MethodGet, "/login", nil), "/patients")

	w = do(t, h, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}
