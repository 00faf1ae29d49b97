package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campprojects/dashboard/internal/auth"
	"github.com/campprojects/dashboard/internal/db"
)

func newServer(t *testing.T, opts auth.Options) *httptest.Server {
	t.Helper()
	d, err := db.Connect(db.Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "auth.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(d) })
	require.NoError(t, auth.Init(d))

	gate, err := auth.NewStaticSecret("s3cret", "")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/auth", auth.NewHandler(d, gate, zap.NewNop(), opts).SetupRoutes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// newClientWithJar returns a client that carries cookies between requests.
func newClientWithJar(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func login(t *testing.T, c *http.Client, srv *httptest.Server, password string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"password": password})
	resp, err := c.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func me(t *testing.T, c *http.Client, srv *httptest.Server) auth.MeResponse {
	t.Helper()
	resp, err := c.Get(srv.URL + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out auth.MeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLoginLifecycle(t *testing.T) {
	srv := newServer(t, auth.Options{})
	c := newClientWithJar(t)

	assert.False(t, me(t, c, srv).Admin)

	resp := login(t, c, srv, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, me(t, c, srv).Admin)

	resp = login(t, c, srv, "s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	got := me(t, c, srv)
	assert.True(t, got.Admin)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(6*time.Hour), *got.ExpiresAt, time.Minute)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/auth/logout", nil)
	out, err := c.Do(req)
	require.NoError(t, err)
	out.Body.Close()
	assert.Equal(t, http.StatusNoContent, out.StatusCode)

	assert.False(t, me(t, c, srv).Admin)
}

func TestLogout_WithoutSession(t *testing.T) {
	srv := newServer(t, auth.Options{})
	resp, err := http.Post(srv.URL+"/auth/logout", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_RateLimited(t *testing.T) {
	srv := newServer(t, auth.Options{LoginRate: 0.001, LoginBurst: 2})
	c := newClientWithJar(t)

	assert.Equal(t, http.StatusUnauthorized, login(t, c, srv, "a").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, login(t, c, srv, "b").StatusCode)

	resp := login(t, c, srv, "s3cret")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestLogin_BadBody(t *testing.T) {
	srv := newServer(t, auth.Options{})
	resp, err := http.Post(srv.URL+"/auth/login", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStaticSecret(t *testing.T) {
	plain, err := auth.NewStaticSecret("open sesame", "")
	require.NoError(t, err)
	assert.True(t, plain.Authenticate("open sesame"))
	assert.False(t, plain.Authenticate("open"))
	assert.False(t, plain.Authenticate(""))

	hash, err := bcrypt.GenerateFromPassword([]byte("hashed one"), bcrypt.MinCost)
	require.NoError(t, err)
	hashed, err := auth.NewStaticSecret("ignored", string(hash))
	require.NoError(t, err)
	assert.True(t, hashed.Authenticate("hashed one"))
	assert.False(t, hashed.Authenticate("ignored"))

	_, err = auth.NewStaticSecret("", "")
	assert.Error(t, err)
	_, err = auth.NewStaticSecret("", "not-a-hash")
	assert.Error(t, err)
}
