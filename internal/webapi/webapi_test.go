package webapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/artisanhub/artisanhub/config"
	"github.com/artisanhub/artisanhub/internal/app"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

const (
	adminEmail    = "admin@artisanhub.local"
	adminPassword = "artisanhub"
)

type testServer struct {
	t       *testing.T
	app     *app.Application
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:webapi_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	cfg := config.DefaultAppConfig()
	cfg.System.Debug = false
	cfg.Web.Secret = "test-secret"
	cfg.Web.SessionSecret = "test-session-secret"
	cfg.LLM.ApiKey = ""
	application := app.NewApplication(cfg)
	require.NoError(t, application.Setup(db))

	webserver.Init(application)
	Init()

	t.Cleanup(func() {
		application.Release()
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return &testServer{t: t, app: application, handler: webserver.Handler()}
}

// request sends body (marshalled to JSON unless nil) with an optional bearer token
func (s *testServer) request(method, path string, body interface{}, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := decodeBody(t, rec)
	data, isMap := body["data"].(map[string]interface{})
	require.True(t, isMap, rec.Body.String())
	return data
}

// signup registers an account and returns its token and id
func (s *testServer) signup(name, email, role string) (string, string) {
	s.t.Helper()
	rec := s.request(http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	}, "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	data := dataOf(s.t, rec)
	user := data["user"].(map[string]interface{})
	return data["token"].(string), user["id"].(string)
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	rec := s.request(http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return dataOf(s.t, rec)["token"].(string)
}

func (s *testServer) adminToken() string {
	return s.login(adminEmail, adminPassword)
}

func (s *testServer) createProduct(token string, payload map[string]interface{}) map[string]interface{} {
	s.t.Helper()
	rec := s.request(http.MethodPost, "/api/products", payload, token)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataOf(s.t, rec)
}

// insertTwinBeforeCreate makes the next insert of a T collide with a twin row
// written inside the same transaction, as a concurrent request would.
func insertTwinBeforeCreate[T any](t *testing.T, db *gorm.DB, twin func(*T) *T) *bool {
	t.Helper()
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("test:twin_"+t.Name(), func(tx *gorm.DB) {
		row, match := tx.Statement.Dest.(*T)
		if !match || fired {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).Create(twin(row))
	})
	require.NoError(t, err)
	return &fired
}
