package webapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/pkg/common"
)

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	t.Run("creates buyer by default", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/auth/register", map[string]string{
			"name": "Ada", "email": "Ada@Example.com", "password": "secret123",
		}, "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]interface{})
		assert.NotEmpty(t, data["token"])
		user := data["user"].(map[string]interface{})
		assert.Equal(t, "ada@example.com", user["email"])
		assert.Equal(t, domain.RoleBuyer, user["role"])
		assert.NotContains(t, user, "password")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/auth/register", map[string]string{
			"name": "Ada again", "email": "ada@example.com", "password": "secret123",
		}, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "EMAIL_EXISTS", body["code"])
	})

	t.Run("admin role is not self assignable", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/auth/register", map[string]string{
			"name": "Mallory", "email": "mallory@example.com", "password": "secret123", "role": "admin",
		}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["code"])
	})

	t.Run("short password and bad email are rejected", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/auth/register", map[string]string{
			"name": "Bob", "email": "bob@example.com", "password": "123",
		}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.request(http.MethodPost, "/api/auth/register", map[string]string{
			"name": "Bob", "email": "not-an-email", "password": "secret123",
		}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.signup("Maker", "maker@example.com", domain.RoleArtisan)

	t.Run("valid credentials", func(t *testing.T) {
		token := s.login("MAKER@example.com", "secret123")
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password and unknown email share the same answer", func(t *testing.T) {
		bad := s.request(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "maker@example.com", "password": "wrong-password",
		}, "")
		unknown := s.request(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "nobody@example.com", "password": "secret123",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, bad.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, decodeBody(t, bad)["message"], decodeBody(t, unknown)["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/auth/login", map[string]string{"email": "maker@example.com"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	token, id := s.signup("Maker", "maker@example.com", domain.RoleArtisan)

	rec := s.request(http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, dataOf(t, rec)["id"])

	t.Run("anonymous", func(t *testing.T) {
		rec := s.request(http.MethodGet, "/api/auth/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := s.request(http.MethodGet, "/api/auth/me", nil, "not.a.token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, s.app.DB().Where("email = ?", "maker@example.com").Delete(&domain.User{}).Error)
		rec := s.request(http.MethodGet, "/api/auth/me", nil, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProfileAndPassword(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup("Maker", "maker@example.com", domain.RoleArtisan)

	rec := s.request(http.MethodPut, "/api/auth/profile", map[string]string{
		"bio": "I throw pots", "location": "Lisbon",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.Equal(t, "I throw pots", data["bio"])
	assert.Equal(t, "Lisbon", data["location"])
	assert.Equal(t, "Maker", data["name"])

	rec = s.request(http.MethodPut, "/api/auth/password", map[string]string{
		"old_password": "nope-nope", "new_password": "another123",
	}, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.request(http.MethodPut, "/api/auth/password", map[string]string{
		"old_password": "secret123", "new_password": "another123",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, s.login("maker@example.com", "another123"))

	rec = s.request(http.MethodPost, "/api/auth/logout", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterConcurrentDuplicate(t *testing.T) {
	s := newTestServer(t)
	fired := insertTwinBeforeCreate(t, s.app.DB(), func(u *domain.User) *domain.User {
		twin := *u
		twin.ID = common.UUIDint64()
		return &twin
	})

	rec := s.request(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret123",
	}, "")
	require.True(t, *fired)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "EMAIL_EXISTS", decodeBody(t, rec)["code"])
}
