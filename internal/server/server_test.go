package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"warbler/internal/config"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	rdb    *redis.Client
}

func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "test",
		SessionSecret:   config.DefaultSessionSecret,
		SessionTTLHours: 1,
		CSRFEnabled:     false,
		BcryptCost:      bcrypt.MinCost,
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	db := testutil.NewSQLiteDB(t)
	rdb, _ := testutil.NewRedis(t)

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testEnv{server: s, app: s.NewApp(), db: db, rdb: rdb}
}

// client is a browser stand-in that keeps cookies between requests.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, app: e.app, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *http.Response {
	cl.t.Helper()
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	resp, err := cl.app.Test(req, -1)
	require.NoError(cl.t, err)

	for _, ck := range resp.Cookies() {
		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now()))
		if expired || ck.Value == "" {
			delete(cl.cookies, ck.Name)
			continue
		}
		cl.cookies[ck.Name] = ck
	}
	return resp
}

func (cl *client) get(path string) *http.Response {
	cl.t.Helper()
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) post(path string, form url.Values) *http.Response {
	cl.t.Helper()
	return cl.do(httptestPost(path, form))
}

func httptestPost(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

// follow performs the GET a browser would make after a redirect.
func (cl *client) follow(resp *http.Response) (int, string) {
	cl.t.Helper()
	require.Equal(cl.t, http.StatusFound, resp.StatusCode)
	_ = resp.Body.Close()
	return readBody(cl.t, cl.get(resp.Header.Get(fiber.HeaderLocation)))
}

func (cl *client) login(username, password string) {
	cl.t.Helper()
	resp := cl.post("/login", url.Values{"username": {username}, "password": {password}})
	_ = resp.Body.Close()
	require.Equal(cl.t, http.StatusFound, resp.StatusCode)
	require.Equal(cl.t, "/", resp.Header.Get(fiber.HeaderLocation))
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

var (
	statRe = regexp.MustCompile(`(?s)<li class="stat">.*?<a [^>]*>(\d+)</a>`)
	csrfRe = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func statCounters(body string) []string {
	var out []string
	for _, m := range statRe.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	return out
}

func TestLivenessCheck(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "up", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "healthy", body.Checks["redis"])
}

func TestReadinessCheck_WithoutRedis(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	db := testutil.NewSQLiteDB(t)
	s, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)

	resp, err := s.NewApp().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestNewServerWithDeps_RequiresDB(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "testuser", "testuser")
	cl := env.client(t)
	cl.login("testuser", "testuser")

	_, body := readBody(t, cl.get("/metrics"))
	assert.Contains(t, body, "warbler_login_failures_total 0")
	assert.Contains(t, body, "warbler_http_requests_total")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/static/images/default-pic.png", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRouteRendersErrorPage(t *testing.T) {
	env := newTestEnv(t)

	status, body := readBody(t, env.client(t).get("/nowhere"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Page not found.")
}

func TestSessionForDeletedUserFallsBackToAnonymous(t *testing.T) {
	env := newTestEnv(t)
	u := testutil.CreateUser(t, env.db, "ghost", "password")
	cl := env.client(t)
	cl.login("ghost", "password")

	require.NoError(t, env.server.userService.DeleteUser(context.Background(), u.ID))

	status, body := readBody(t, cl.get("/"))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "What's Happening?")
}

func TestUserDeletedOutOfProcessIsNotServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	u := testutil.CreateUser(t, env.db, "ghost", "password")
	cl := env.client(t)
	cl.login("ghost", "password")
	status, _ := readBody(t, cl.get("/users/"+itoa(u.ID)))
	require.Equal(t, http.StatusOK, status)

	// Another process sharing the database and Redis, such as the admin CLI.
	users := service.NewUserService(
		repository.NewUserRepository(env.db, env.rdb),
		repository.NewFollowRepository(env.db),
		repository.NewMessageRepository(env.db),
		repository.NewLikeRepository(env.db),
	)
	require.NoError(t, users.DeleteUser(context.Background(), u.ID))

	status, _ = readBody(t, cl.get("/users/"+itoa(u.ID)))
	assert.Equal(t, http.StatusNotFound, status)

	_, body := readBody(t, cl.get("/"))
	assert.Contains(t, body, "What's Happening?")
}
