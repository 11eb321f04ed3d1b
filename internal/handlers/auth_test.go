package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/config"
	"github.com/safesite/safesite-api/internal/models"
)

func setupAuthHandler(t *testing.T) (sqlmock.Sqlmock, *AuthHandler) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{JWTSecret: "test-secret"}
	return mock, NewAuthHandler(db, cfg, zerolog.Nop())
}

func userRow(t *testing.T, password string, roles string) *sqlmock.Rows {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_active", "roles"}).
		AddRow("user-1", "alice", "alice@example.com", string(hash), true, []byte(roles))
}

func TestLogin_IssuesTokenAcceptedByMiddleware(t *testing.T) {
	mock, handler := setupAuthHandler(t)

	mock.ExpectQuery(`FROM users`).
		WithArgs("alice").
		WillReturnRows(userRow(t, "secret", "{ADMIN}"))

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	var gotIdentity authz.Identity
	protected := handler.JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authz.IdentityFromRequest(r)
		require.True(t, ok)
		gotIdentity = identity
		w.WriteHeader(http.StatusOK)
	}))

	apiReq := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	apiReq.Header.Set("Authorization", "Bearer "+resp["token"])
	apiRec := httptest.NewRecorder()
	protected.ServeHTTP(apiRec, apiReq)

	require.Equal(t, http.StatusOK, apiRec.Code)
	assert.Equal(t, "user-1", gotIdentity.UserID)
	assert.Equal(t, "alice", gotIdentity.Username)
	assert.True(t, models.HasAtLeast(gotIdentity.Roles, models.RoleAdmin))
}

func TestLogin_WrongPassword(t *testing.T) {
	mock, handler := setupAuthHandler(t)

	mock.ExpectQuery(`FROM users`).
		WithArgs("alice").
		WillReturnRows(userRow(t, "secret", "{VIEWER}"))

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1006, resp["code"])
}

func TestJWTMiddleware_RejectsMissingAndMalformedTokens(t *testing.T) {
	_, handler := setupAuthHandler(t)

	protected := handler.JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireRole_BlocksLowerTiers(t *testing.T) {
	mock, handler := setupAuthHandler(t)

	mock.ExpectQuery(`FROM users`).
		WithArgs("viewer").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_active", "roles"}).
			AddRow("user-2", "viewer", "v@example.com", mustHash(t, "pw"), true, []byte("{VIEWER}")))

	body, _ := json.Marshal(map[string]string{"username": "viewer", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	protected := handler.JWTMiddleware(authz.RequireRole(models.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		})))

	apiReq := httptest.NewRequest(http.MethodDelete, "/api/alerts/1", nil)
	apiReq.Header.Set("Authorization", "Bearer "+resp["token"])
	apiRec := httptest.NewRecorder()
	protected.ServeHTTP(apiRec, apiReq)

	assert.Equal(t, http.StatusForbidden, apiRec.Code)
}

func mustHash(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
