package websec

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlineshelf/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func newSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sm, err := NewSessionManager(db, config.Session{Lifetime: time.Hour})
	require.NoError(t, err)
	return sm
}

func TestReaderKey_StableAcrossRequests(t *testing.T) {
	sm := newSessionManager(t)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.GET("/key", func(c *gin.Context) {
		c.String(http.StatusOK, sm.ReaderKey(c.Request))
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/key", nil))
	require.Equal(t, http.StatusOK, first.Code)
	key := first.Body.String()
	assert.Len(t, key, 36)

	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "offlineshelf_session", cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/key", nil)
	req.AddCookie(cookies[0])
	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)

	assert.Equal(t, key, second.Body.String())

	third := httptest.NewRecorder()
	router.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/key", nil))
	assert.NotEqual(t, key, third.Body.String())
}

func TestCSRFMiddleware_AllowsGET(t *testing.T) {
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false))
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Body.String())
}

func TestCSRFMiddleware_BlocksPOSTWithoutToken(t *testing.T) {
	called := false
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false))
	router.POST("/library/books/1/remove", func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/library/books/1/remove", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "csrf_failed")
	assert.False(t, called)
}

func TestCSRFTokenField(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, CSRFTokenField(c))

	c.Set(csrfContextKey, "abc\"def")
	field := string(CSRFTokenField(c))
	assert.Contains(t, field, `name="gorilla.csrf.Token"`)
	assert.Contains(t, field, "abc&#34;def")
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), StrictTransportSecurityMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rr.Header().Get("X-Frame-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'self'")
	assert.NotEmpty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestSecrets(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, DecodeSecret(secret), 32)
	assert.Equal(t, []byte("not hex!"), DecodeSecret("not hex!"))
}
