package handler_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"healthportal/backend/internal/api/handler"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/livefeed"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/storage/storagetest"
	"healthportal/backend/internal/uploads/uploadstest"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	t       *testing.T
	store   *storage.Service
	handler *handler.Handler
	srv     *httptest.Server
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		SecretKey:          "test-secret",
		DatabaseURL:        "sqlite://unused",
		MaxUploadBytes:     1 << 20,
		PostUploadDir:      t.TempDir(),
		ProfileUploadDir:   t.TempDir(),
		SessionTTL:         time.Hour,
		DefaultLang:        "en",
		LoginMaxFailures:   5,
		LoginFailureWindow: time.Minute,
		CORSAllowedOrigins: []string{"https://partner.example"},
		GinMode:            gin.TestMode,
	}
}

func newApp(t *testing.T, store *storage.Service) *testApp {
	t.Helper()
	return newAppWithHub(t, store, nil)
}

func newAppWithHub(t *testing.T, store *storage.Service, hub *livefeed.Hub) *testApp {
	t.Helper()
	if store == nil {
		store = storagetest.New(t)
	}
	h, err := handler.NewHandler(handler.Deps{Config: testConfig(t), Storage: store, Hub: hub})
	require.NoError(t, err)
	srv := httptest.NewServer(handler.NewRouter(h))
	t.Cleanup(srv.Close)
	return &testApp{t: t, store: store, handler: h, srv: srv}
}

// browser is one cookie-carrying client that never follows redirects.
type browser struct {
	app    *testApp
	client *http.Client
}

func (a *testApp) browser() *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	return &browser{app: a, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.app.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.app.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.app.t, err)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	require.NoError(b.app.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodPost, b.app.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.app.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) register(username, email, password string) *http.Response {
	resp, _ := b.post("/register", url.Values{
		"username":       {username},
		"email":          {email},
		"full_name":      {"Citizen " + username},
		"phone":          {"010-1234-5678"},
		"password":       {password},
		"agree_required": {"1"},
	})
	return resp
}

func (b *browser) login(username, password string) *http.Response {
	resp, _ := b.post("/login", url.Values{"username": {username}, "password": {password}})
	return resp
}

func (a *testApp) seedAdmin() *models.User {
	a.t.Helper()
	_, err := a.handler.Accounts.EnsureAdmin(context.Background(), "ops", "ops@example.com", "adminpass123")
	require.NoError(a.t, err)
	admin, err := a.store.GetUserByUsername("ops")
	require.NoError(a.t, err)
	return admin
}

func (a *testApp) count(model any, query string, args ...any) int64 {
	a.t.Helper()
	var n int64
	db := a.store.DB.Model(model)
	if query != "" {
		db = db.Where(query, args...)
	}
	require.NoError(a.t, db.Count(&n).Error)
	return n
}

func location(resp *http.Response) string {
	return resp.Header.Get("Location")
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func TestRegisterLoginPromote(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()

	resp := b.register("u1", "u1@example.com", "pw12345678")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", location(resp))

	resp = b.login("u1", "pw12345678")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", location(resp))

	resp, _ = b.get("/admin")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", location(resp))

	_, err := app.handler.Accounts.SetRole(context.Background(), "u1", config.RoleAdmin)
	require.NoError(t, err)

	resp, body := b.get("/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Dashboard")
}

func TestRegister_Duplicates(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()

	require.Equal(t, "/login", location(b.register("u1", "u1@example.com", "pw12345678")))

	resp := b.register("u1", "other@example.com", "pw12345678")
	assert.Equal(t, "/register", location(resp))
	resp = b.register("u2", "U1@Example.com", "pw12345678")
	assert.Equal(t, "/register", location(resp))

	assert.Equal(t, int64(1), app.count(&models.User{}, ""))

	_, body := b.get("/register")
	assert.Contains(t, body, "That username or email is already registered.")
}

func TestRegister_ValidationFlashes(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()

	resp := b.register("x", "not-an-email", "short")
	assert.Equal(t, "/register", location(resp))

	_, body := b.get("/register")
	assert.Contains(t, body, "The email address is not valid.")
	assert.Contains(t, body, "The password must be at least 8 characters.")
	assert.Equal(t, int64(0), app.count(&models.User{}, ""))
}

func TestComplaintResolvedByAdmin(t *testing.T) {
	app := newApp(t, nil)
	admin := app.seedAdmin()

	citizen := app.browser()
	citizen.register("u1", "u1@example.com", "pw12345678")
	citizen.login("u1", "pw12345678")
	resp, _ := citizen.post("/complaints/new", url.Values{
		"title":    {"Long wait"},
		"content":  {"Waited three hours at the clinic."},
		"category": {"medical"},
	})
	require.Equal(t, "/complaints", location(resp))

	var c models.Complaint
	require.NoError(t, app.store.DB.First(&c).Error)
	assert.Equal(t, config.StatusReceived, c.Status)

	ops := app.browser()
	ops.login("ops", "adminpass123")
	resp, _ = ops.post("/complaints/"+itoa(c.ID), url.Values{"status": {"resolved"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	got, err := app.store.GetComplaint(c.ID)
	require.NoError(t, err)
	assert.Equal(t, config.StatusResolved, got.Status)
	require.NotNil(t, got.AssignedAdminID)
	assert.Equal(t, admin.ID, *got.AssignedAdminID)

	resp, body := citizen.get("/complaints/" + itoa(c.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Long wait")
}

func TestComplaintHiddenFromOtherUsers(t *testing.T) {
	app := newApp(t, nil)

	owner := app.browser()
	owner.register("u1", "u1@example.com", "pw12345678")
	owner.login("u1", "pw12345678")
	owner.post("/complaints/new", url.Values{"title": {"Mine"}, "content": {"private"}, "category": {"privacy"}})
	var c models.Complaint
	require.NoError(t, app.store.DB.First(&c).Error)
	path := "/complaints/" + itoa(c.ID)

	other := app.browser()
	other.register("u2", "u2@example.com", "pw12345678")
	other.login("u2", "pw12345678")

	for _, tc := range []struct {
		name string
		do   func() *http.Response
	}{
		{"view", func() *http.Response { r, _ := other.get(path); return r }},
		{"transition", func() *http.Response { r, _ := other.post(path, url.Values{"status": {"resolved"}}); return r }},
		{"report", func() *http.Response { r, _ := other.get(path + "/report.pdf"); return r }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp := tc.do()
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/complaints", location(resp))
		})
	}

	resp, _ := owner.post(path, url.Values{"status": {"resolved"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode, "owners cannot change status either")

	got, err := app.store.GetComplaint(c.ID)
	require.NoError(t, err)
	assert.Equal(t, config.StatusReceived, got.Status)
	assert.Nil(t, got.AssignedAdminID)

	anon := app.browser()
	resp, _ = anon.get(path)
	assert.Equal(t, "/login", location(resp))
}

func TestComplaintReportPDF(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()
	b.register("u1", "u1@example.com", "pw12345678")
	b.login("u1", "pw12345678")
	b.post("/complaints/new", url.Values{"title": {"Billing"}, "content": {"Charged twice"}, "category": {"billing"}})
	var c models.Complaint
	require.NoError(t, app.store.DB.First(&c).Error)

	resp, body := b.get("/complaints/" + itoa(c.ID) + "/report.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "%PDF-"))
	assert.Equal(t, int64(1), app.count(&models.AuditLog{}, "action = ?", "complaint_report_download"))
}

func TestAdminCannotDemoteSelf(t *testing.T) {
	app := newApp(t, nil)
	admin := app.seedAdmin()
	ops := app.browser()
	ops.login("ops", "adminpass123")

	resp, _ := ops.post("/admin/users", url.Values{"user_id": {itoa(admin.ID)}, "role": {"user"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	got, err := app.store.GetUserByID(admin.ID)
	require.NoError(t, err)
	assert.Equal(t, config.RoleAdmin, got.Role)

	_, body := ops.get("/admin/users")
	assert.Contains(t, body, "You cannot remove your own admin role.")
}

func TestAdminPromotesUser(t *testing.T) {
	app := newApp(t, nil)
	app.seedAdmin()
	b := app.browser()
	b.register("u1", "u1@example.com", "pw12345678")
	u1, err := app.store.GetUserByUsername("u1")
	require.NoError(t, err)

	ops := app.browser()
	ops.login("ops", "adminpass123")
	ops.post("/admin/users", url.Values{"user_id": {itoa(u1.ID)}, "role": {"admin"}})

	got, err := app.store.GetUserByID(u1.ID)
	require.NoError(t, err)
	assert.Equal(t, config.RoleAdmin, got.Role)
	assert.Equal(t, int64(1), app.count(&models.AuditLog{}, "action = ? AND meta = ?", "user_role_update", "admin"))
}

func TestUnpublishedNotice(t *testing.T) {
	app := newApp(t, nil)
	hidden := &models.Notice{Title: "Draft", Content: "not yet", IsPublished: false}
	shown := &models.Notice{Title: "Clinic hours", Content: "open", IsPublished: true}
	require.NoError(t, app.store.CreateNotice(hidden))
	require.NoError(t, app.store.CreateNotice(shown))

	anon := app.browser()
	resp, _ := anon.get("/notices/" + itoa(hidden.ID))
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, body := anon.get("/notices/" + itoa(shown.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Clinic hours")

	_, body = anon.get("/notices")
	assert.Contains(t, body, "Clinic hours")
	assert.NotContains(t, body, "Draft")

	app.seedAdmin()
	ops := app.browser()
	ops.login("ops", "adminpass123")
	resp, _ = ops.get("/notices/" + itoa(hidden.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ops.post("/admin/notices/"+itoa(hidden.ID)+"/publish", nil)
	resp, _ = anon.get("/notices/" + itoa(hidden.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebRequestAuditRows(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()
	webRequests := func() int64 { return app.count(&models.AuditLog{}, "action = ?", "web_request") }

	b.get("/posts?q=test")
	require.Eventually(t, func() bool { return webRequests() == 1 }, time.Second, 10*time.Millisecond)

	var row models.AuditLog
	require.NoError(t, app.store.DB.Where("action = ?", "web_request").First(&row).Error)
	assert.Nil(t, row.ActorID)
	assert.Contains(t, row.Meta, "method=GET")
	assert.Contains(t, row.Meta, "path=/posts")
	assert.Contains(t, row.Meta, "status=200")
	assert.Contains(t, row.Meta, "query=q=test")
	assert.Contains(t, row.Meta, "result=ok")

	b.get("/static/portal.css")
	b.get("/no-such-page")
	require.Eventually(t, func() bool { return webRequests() == 2 }, time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return webRequests() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestFailedLoginAudit(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()
	b.register("u1", "u1@example.com", "pw12345678")

	resp := b.login("u1", "wrong-password")
	assert.Equal(t, "/login", location(resp))

	for _, action := range []string{"login_attempt", "login_failed"} {
		var rows []models.AuditLog
		require.NoError(t, app.store.DB.Where("action = ?", action).Find(&rows).Error)
		require.Len(t, rows, 1, action)
		assert.Nil(t, rows[0].ActorID, action)
		assert.Contains(t, rows[0].Meta, "result=failed", action)
		assert.Contains(t, rows[0].Meta, "username=u1", action)
	}

	_, body := b.get("/login")
	assert.Contains(t, body, "Wrong username or password.")
}

func TestLogoutRevokesSession(t *testing.T) {
	store, _ := storagetest.NewWithRedis(t)
	app := newApp(t, store)
	b := app.browser()
	b.register("u1", "u1@example.com", "pw12345678")
	b.login("u1", "pw12345678")

	u, err := url.Parse(app.srv.URL)
	require.NoError(t, err)
	var token string
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == "portal_session" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	resp, _ := b.get("/logout")
	assert.Equal(t, "/", location(resp))

	replay := app.browser()
	replay.client.Jar.SetCookies(u, []*http.Cookie{{Name: "portal_session", Value: token}})
	resp, _ = replay.get("/profile")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", location(resp))
}

func TestPostWithAttachment(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()
	b.register("u1", "u1@example.com", "pw12345678")
	b.login("u1", "pw12345678")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Vaccination card"))
	require.NoError(t, w.WriteField("content", `<p>scan attached</p><script>alert(1)</script>`))
	require.NoError(t, w.WriteField("category", "question"))
	fw, err := w.CreateFormFile("files", "card.png")
	require.NoError(t, err)
	_, err = fw.Write(uploadstest.PNG)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/posts/new", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, _ := b.do(req)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var post models.Post
	require.NoError(t, app.store.DB.Preload("Attachments").First(&post).Error)
	assert.Equal(t, "/posts/"+itoa(post.ID), location(resp))
	assert.NotContains(t, post.Content, "<script>")
	require.Len(t, post.Attachments, 1)

	resp, body := b.get("/posts/" + itoa(post.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<p>scan attached</p>")
	assert.NotContains(t, body, "alert(1)")

	anon := app.browser()
	resp, body = anon.get("/posts/" + itoa(post.ID) + "/attachments/" + itoa(post.Attachments[0].ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(uploadstest.PNG), body)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "card.png")

	stranger := app.browser()
	stranger.register("u2", "u2@example.com", "pw12345678")
	stranger.login("u2", "pw12345678")
	resp, _ = stranger.post("/posts/"+itoa(post.ID)+"/delete", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, int64(1), app.count(&models.Post{}, ""))

	resp, _ = b.post("/posts/"+itoa(post.ID)+"/delete", nil)
	assert.Equal(t, "/posts", location(resp))
	assert.Equal(t, int64(0), app.count(&models.Post{}, ""))
	assert.Equal(t, int64(0), app.count(&models.Attachment{}, ""))
}

func TestMyDataFetch(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()
	b.register("u1", "u1@example.com", "pw12345678")
	b.login("u1", "pw12345678")

	resp, _ := b.post("/profile/mydata/fetch", nil)
	assert.Equal(t, "/profile", location(resp))
	assert.Equal(t, int64(0), app.count(&models.MyDataSnapshot{}, ""))

	b.post("/profile/mydata/fetch", url.Values{"consent": {"1"}})
	assert.Equal(t, int64(1), app.count(&models.MyDataSnapshot{}, ""))

	resp, body := b.get("/profile")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "MOCK")
}

func TestSecurityCatalogue(t *testing.T) {
	app := newApp(t, nil)
	app.seedAdmin()

	anon := app.browser()
	resp, _ := anon.get("/security/scenarios")
	assert.Equal(t, "/login", location(resp))

	ops := app.browser()
	ops.login("ops", "adminpass123")
	resp, body := ops.get("/security/scenarios")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Broken Access Control")

	resp, _ = ops.get("/security/scenarios/A03")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ops.get("/security/scenarios/Z99")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI(t *testing.T) {
	app := newApp(t, nil)
	require.NoError(t, app.store.CreateNotice(&models.Notice{Title: "Open", Content: "x", IsPublished: true}))
	b := app.browser()

	resp, body := b.get("/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	req, err := http.NewRequest(http.MethodGet, app.srv.URL+"/api/notices", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://partner.example")
	resp, body = b.do(req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://partner.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, body, `"title":"Open"`)
}

func TestNotFoundAndLanguage(t *testing.T) {
	app := newApp(t, nil)
	b := app.browser()

	resp, body := b.get("/posts/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "does not exist")

	resp, _ = b.get("/posts/abc")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = b.get("/?lang=ko")
	assert.Contains(t, body, "최신 공지")
	_, body = b.get("/")
	assert.Contains(t, body, "최신 공지", "language choice is remembered")
}

func TestAuditFeedStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := livefeed.NewHub(nil)
	go hub.Run(ctx)

	app := newAppWithHub(t, nil, hub)
	app.seedAdmin()
	ops := app.browser()
	ops.login("ops", "adminpass123")

	u, err := url.Parse(app.srv.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range ops.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(app.srv.URL, "http") + "/admin/logs/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	anon := app.browser()
	anon.get("/notices")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev livefeed.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Action == "web_request" && strings.Contains(ev.Meta, "path=/notices;") {
			assert.Nil(t, ev.ActorID)
			assert.NotZero(t, ev.ID)
			break
		}
	}
}

func TestAuditFeedRejectsForeignOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := livefeed.NewHub(nil)
	go hub.Run(ctx)

	app := newAppWithHub(t, nil, hub)
	app.seedAdmin()
	ops := app.browser()
	ops.login("ops", "adminpass123")

	u, err := url.Parse(app.srv.URL)
	require.NoError(t, err)
	header := http.Header{"Origin": {"https://evil.example"}}
	for _, c := range ops.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(app.srv.URL, "http") + "/admin/logs/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, hub.ClientCount())
}
