package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	database "github.com/duynhne/config-service/internal/core"
	"github.com/duynhne/config-service/internal/core/domain"
	"github.com/duynhne/config-service/internal/core/repository"
	logicv1 "github.com/duynhne/config-service/internal/logic/v1"
	"github.com/duynhne/config-service/internal/security/password"
	"github.com/duynhne/config-service/internal/security/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "config.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DialectSQLite))

	pw, err := password.New(bcrypt.MinCost, 2)
	require.NoError(t, err)
	codec, err := token.NewCodec(32)
	require.NoError(t, err)

	auth := logicv1.NewAuthService(
		repository.NewSQLiteUserRepository(db),
		repository.NewSQLiteSessionRepository(db),
		pw,
		codec,
		logicv1.Options{BaseLifetime: 672 * time.Hour, LongLivedMultiplier: 3, SweepOnIssue: true},
	)
	cfg := logicv1.NewConfigService(repository.NewSQLiteConfigRepository(db))

	r := gin.New()
	NewHandler(auth, cfg).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, r *gin.Engine, username, pw string) string {
	t.Helper()
	creds := domain.Credentials{Username: username, Password: pw}

	w := do(t, r, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp domain.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"Token abc", "abc"},
		{"abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BearerToken(tt.header), "header %q", tt.header)
	}
}

func TestRegister(t *testing.T) {
	r := newRouter(t)
	creds := domain.Credentials{Username: "albin", Password: "testar"}

	w := do(t, r, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = do(t, r, http.MethodPost, "/api/v1/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	r := newRouter(t)
	registerAndLogin(t, r, "albin", "testar")

	w := do(t, r, http.MethodPost, "/api/v1/auth/login", "", domain.Credentials{Username: "albin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/auth/login", "", domain.Credentials{Username: "ghost", Password: "testar"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
}

func TestGetMe(t *testing.T) {
	r := newRouter(t)
	tok := registerAndLogin(t, r, "albin", "testar")

	for _, authz := range []string{"Bearer " + tok, tok} {
		w := do(t, r, http.MethodGet, "/api/v1/auth/me", authz, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var me domain.MeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
		assert.Equal(t, "albin", me.User.Username)
		assert.False(t, me.LongLived)
	}

	w := do(t, r, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/auth/me", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateLongLivedToken(t *testing.T) {
	r := newRouter(t)
	tok := registerAndLogin(t, r, "albin", "testar")

	w := do(t, r, http.MethodPost, "/api/v1/auth/tokens", "Bearer "+tok, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp domain.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.LongLived)
	assert.NotEqual(t, tok, resp.Token)
	assert.WithinDuration(t, time.Now().Add(3*672*time.Hour), resp.ExpiresAt, time.Minute)

	w = do(t, r, http.MethodGet, "/api/v1/auth/me", "Bearer "+resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"long_lived":true`)
}

func TestLogout(t *testing.T) {
	r := newRouter(t)
	tok := registerAndLogin(t, r, "albin", "testar")

	w := do(t, r, http.MethodPost, "/api/v1/auth/logout", "Bearer "+tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/auth/me", "Bearer "+tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListUsersAndSessions(t *testing.T) {
	r := newRouter(t)
	tok := registerAndLogin(t, r, "albin", "testar")

	w := do(t, r, http.MethodGet, "/api/v1/users", "Bearer "+tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	var users []domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "albin", users[0].Username)

	w = do(t, r, http.MethodGet, "/api/v1/sessions", "Bearer "+tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), tok)

	var sessions []domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, token.DigestOf(tok), sessions[0].ID)

	w = do(t, r, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteUser(t *testing.T) {
	r := newRouter(t)
	admin := registerAndLogin(t, r, "admin", "root")
	victim := registerAndLogin(t, r, "albin", "testar")

	w := do(t, r, http.MethodDelete, "/api/v1/users/albin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodDelete, "/api/v1/users/ghost", "Bearer "+admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, "/api/v1/users/albin", "Bearer "+admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/auth/login", "", domain.Credentials{Username: "albin", Password: "testar"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/auth/me", "Bearer "+victim, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnregister(t *testing.T) {
	r := newRouter(t)
	tok := registerAndLogin(t, r, "albin", "testar")

	w := do(t, r, http.MethodPost, "/api/v1/auth/unregister", "", domain.Credentials{Username: "albin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/auth/unregister", "", domain.Credentials{Username: "albin", Password: "testar"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/auth/me", "Bearer "+tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConfigEndpoints(t *testing.T) {
	r := newRouter(t)
	tok := registerAndLogin(t, r, "albin", "testar")
	authz := "Bearer " + tok

	w := do(t, r, http.MethodGet, "/api/v1/config", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/config", authz, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, r, http.MethodPut, "/api/v1/config", authz, domain.ConfigPair{Key: "theme", Value: "dark"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodPut, "/api/v1/config", authz, map[string]string{"value": "orphan"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/config/theme", authz, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dark", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = do(t, r, http.MethodGet, "/api/v1/config", authz, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"key":"theme","value":"dark"}]`, w.Body.String())

	w = do(t, r, http.MethodDelete, "/api/v1/config/theme", authz, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/config/theme", authz, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, "/api/v1/config/theme", authz, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin_PaddedUsername(t *testing.T) {
	r := newRouter(t)
	tok := registerAndLogin(t, r, " albin ", "testar")

	w := do(t, r, http.MethodGet, "/api/v1/auth/me", "Bearer "+tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"albin"`)
}
