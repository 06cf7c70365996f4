package handlers_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-chat/campfire-backend/internal/auth"
	"github.com/campfire-chat/campfire-backend/internal/handlers"
	"github.com/campfire-chat/campfire-backend/internal/middleware"
	"github.com/campfire-chat/campfire-backend/internal/models"
	"github.com/campfire-chat/campfire-backend/internal/routes"
	"github.com/campfire-chat/campfire-backend/internal/services"
)

const testSecret = "test-secret"

type fakeUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*models.User)}
}

func (f *fakeUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, nil
}

func (f *fakeUsers) Insert(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		f.nextID++
		user.ID = fmt.Sprintf("u%d", f.nextID)
	}
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUsers) SetPhoto(ctx context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.Photo = url
	}
	return nil
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeSessions struct {
	mu      sync.Mutex
	nextTok int
	m       map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{m: make(map[string]string)}
}

func (f *fakeSessions) Create(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTok++
	token := fmt.Sprintf("tok%d", f.nextTok)
	f.m[token] = userID
	return token, nil
}

func (f *fakeSessions) UserID(ctx context.Context, token string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.m[token]
	return id, ok, nil
}

func (f *fakeSessions) Destroy(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, token)
	return nil
}

type fakeGitHub struct {
	users *fakeUsers
	user  *models.User
	err   error
}

func (f *fakeGitHub) AuthCodeURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + state
}

// Authenticate stands in for the real strategy: a non-empty code "verifies"
// and upserts the profile into the store.
func (f *fakeGitHub) Authenticate(ctx context.Context, creds auth.Credentials) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if creds.Code == "" {
		return nil, auth.ErrRejected
	}
	if err := f.users.Insert(ctx, f.user); err != nil {
		return nil, err
	}
	return f.user, nil
}

type testApp struct {
	users    *fakeUsers
	sessions *fakeSessions
	github   *fakeGitHub
	server   *httptest.Server
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	users := newFakeUsers()
	sessions := newFakeSessions()
	github := &fakeGitHub{users: users, user: &models.User{ID: "42", Name: "Octo Cat", Provider: "github"}}

	handlers.Init(handlers.Deps{
		Users:         users,
		Sessions:      sessions,
		Local:         auth.NewLocal(users),
		GitHub:        github,
		Hub:           services.NewChatHub(),
		SessionSecret: testSecret,
	})

	r := chi.NewRouter()
	r.Use(middleware.LoadUser(handlers.ResolveSessionUser))
	routes.SetupRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testApp{users: users, sessions: sessions, github: github, server: server}
}

// client returns an HTTP client with a cookie jar that does not follow
// redirects, so tests can assert on Location headers.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) postForm(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.Post(a.server.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (a *testApp) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(a.server.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func creds(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func TestRegisterLoginLogoutScenario(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	// Register alice and land on the profile page.
	resp := app.postForm(t, c, "/register", creds("alice", "pw1"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))

	resp, body := app.get(t, c, "/profile")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice")

	// Logout, then the chat page must bounce to the landing page.
	resp, _ = app.get(t, c, "/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = app.get(t, c, "/chat")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	// Log back in with the same pair.
	resp = app.postForm(t, c, "/login", creds("alice", "pw1"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))

	resp, _ = app.get(t, c, "/chat")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := newTestApp(t)

	resp := app.postForm(t, app.client(t), "/register", creds("alice", "pw1"))
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
	require.Equal(t, 1, app.users.count())

	// Second registration is silently bounced and mutates nothing.
	resp = app.postForm(t, app.client(t), "/register", creds("alice", "other"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, app.users.count())

	// The original password still works.
	resp = app.postForm(t, app.client(t), "/login", creds("alice", "pw1"))
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
}

func TestLoginRejections(t *testing.T) {
	app := newTestApp(t)
	app.postForm(t, app.client(t), "/register", creds("alice", "pw1"))

	// Wrong password and unknown username get the same answer.
	for _, form := range []url.Values{creds("alice", "nope"), creds("mallory", "pw1")} {
		c := app.client(t)
		resp := app.postForm(t, c, "/login", form)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))

		resp, _ = app.get(t, c, "/profile")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	}
}

func TestGuardCoversEveryProtectedPath(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	for _, path := range []string{"/chat", "/profile", "/logout"} {
		resp, _ := app.get(t, c, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, "path %s", path)
		assert.Equal(t, "/", resp.Header.Get("Location"), "path %s", path)
	}
}

func TestStaleSessionCookieIsUnauthenticated(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	// A well-signed token pointing at a session that no longer exists.
	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/chat", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{
		Name:  handlers.SessionCookieName,
		Value: services.SignSessionValue("gone", testSecret),
	})

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestGitHubFlow(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, _ := app.get(t, c, "/auth/github")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	// Callback with the echoed state establishes the session and lands on chat.
	resp, _ = app.get(t, c, "/auth/github/callback?state="+state+"&code=ok")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/chat", resp.Header.Get("Location"))

	resp, body := app.get(t, c, "/chat")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Octo Cat")
}

func TestGitHubCallbackStateMismatch(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	app.get(t, c, "/auth/github")

	resp, _ := app.get(t, c, "/auth/github/callback?state=forged&code=ok")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestUnmatchedRouteIsNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, app.client(t), "/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", body)
}

// --- realtime channel ---

func (a *testApp) sessionCookieFor(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	require.NoError(t, a.users.Insert(context.Background(), user))
	token, err := a.sessions.Create(context.Background(), user.ID)
	require.NoError(t, err)
	return &http.Cookie{
		Name:  handlers.SessionCookieName,
		Value: services.SignSessionValue(token, testSecret),
	}
}

func (a *testApp) dialWS(t *testing.T, cookie *http.Cookie) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/ws"
	header := http.Header{}
	if cookie != nil {
		header.Set("Cookie", cookie.String())
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]interface{}
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestChatWebSocket_RejectsUnauthenticated(t *testing.T) {
	app := newTestApp(t)

	wsURL := "ws" + strings.TrimPrefix(app.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatWebSocket_PresenceAndRelay(t *testing.T) {
	app := newTestApp(t)

	connA := app.dialWS(t, app.sessionCookieFor(t, &models.User{ID: "a1", Username: "alice"}))

	// Alice sees her own join and the count.
	joined := readEvent(t, connA)
	assert.Equal(t, "user", joined["type"])
	assert.Equal(t, "alice", joined["name"])
	assert.Equal(t, true, joined["connected"])
	assert.Equal(t, float64(1), joined["currentUsers"])
	count := readEvent(t, connA)
	assert.Equal(t, "user count", count["type"])

	connB := app.dialWS(t, app.sessionCookieFor(t, &models.User{ID: "b1", Username: "bob"}))

	// Both see bob join with the updated count.
	for _, conn := range []*websocket.Conn{connA, connB} {
		joined = readEvent(t, conn)
		assert.Equal(t, "bob", joined["name"])
		assert.Equal(t, float64(2), joined["currentUsers"])
		readEvent(t, conn) // user count
	}

	// Alice says hi; both receive the relay, echo included.
	require.NoError(t, connA.WriteJSON(map[string]string{"type": "chat message", "message": "hi"}))
	for _, conn := range []*websocket.Conn{connA, connB} {
		msg := readEvent(t, conn)
		assert.Equal(t, "chat message", msg["type"])
		assert.Equal(t, "alice", msg["name"])
		assert.Equal(t, "hi", msg["message"])
	}

	// Bob disconnects; alice sees the leave and the count drop to 1.
	connB.Close()
	left := readEvent(t, connA)
	assert.Equal(t, "user", left["type"])
	assert.Equal(t, "bob", left["name"])
	assert.Equal(t, false, left["connected"])
	assert.Equal(t, float64(1), left["currentUsers"])
}
