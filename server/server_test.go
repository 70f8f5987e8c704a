package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-truckdocs/authcache"
	"github.com/jrsteele09/go-truckdocs/devices"
	"github.com/jrsteele09/go-truckdocs/documents"
	fakedocumentrepo "github.com/jrsteele09/go-truckdocs/documents/repofake"
	"github.com/jrsteele09/go-truckdocs/identity/local"
	"github.com/jrsteele09/go-truckdocs/internal/config"
	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/jrsteele09/go-truckdocs/internal/metrics"
	"github.com/jrsteele09/go-truckdocs/kvstore"
	"github.com/jrsteele09/go-truckdocs/kvstore/kvfake"
	"github.com/jrsteele09/go-truckdocs/server"
	"github.com/jrsteele09/go-truckdocs/timeout"
	"github.com/jrsteele09/go-truckdocs/upload"
	fakeuserrepo "github.com/jrsteele09/go-truckdocs/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane.doe@example.com"
	testPassword = "Password123"
)

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

type testFixture struct {
	server   *server.Server
	registry *devices.Registry
	store    *kvfake.FakeStore
	repo     *fakedocumentrepo.FakeDocumentRepo

	mu      sync.Mutex
	now     time.Time
	healthy error
}

func (f *testFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		store: kvfake.NewFakeStore(),
		repo:  fakedocumentrepo.NewFakeDocumentRepo(),
		now:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	imageHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.FormValue("name")
		if name == "reject.png" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":{"message":"Invalid image"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"url":"https://i.ibb.co/` + name + `"},"success":true}`))
	}))
	t.Cleanup(imageHost.Close)

	cfg, err := config.Load()
	require.NoError(t, err)

	dir, err := local.NewDirectory(fakeuserrepo.NewFakeUserRepo(), []byte("key"))
	require.NoError(t, err)
	require.NoError(t, dir.Seed([]local.SeedUser{{Email: testEmail, Password: testPassword}}))

	m := metrics.New()
	f.registry = devices.NewRegistry(context.Background(), dir, f.store, timeout.DefaultConfig(),
		devices.WithMonitorOptions(
			timeout.WithNowTime(f.clock),
			timeout.WithTicker(func(time.Duration) timeout.Ticker { return idleTicker{} }),
			timeout.WithRecorder(m),
		),
		devices.WithDeviceCount(m.SetActiveDevices),
	)
	t.Cleanup(f.registry.Close)

	uploader := upload.NewClient("test-key", upload.WithEndpoint(imageHost.URL))
	docs := documents.NewService(f.repo, uploader, documents.WithNowTime(f.clock))

	f.server = server.New(cfg, f.registry, docs, m,
		server.WithNowTime(f.clock),
		server.WithHealthCheck("store", func(context.Context) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.healthy
		}),
	)
	return f
}

func (f *testFixture) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) login(t *testing.T, email, password string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	return f.loginWithCookie(t, email, password, nil)
}

func (f *testFixture) loginWithCookie(t *testing.T, email, password string, cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req, cookie)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "device_id" {
			return rec, c
		}
	}
	return rec, nil
}

func (f *testFixture) stored(t *testing.T, deviceID, key string) bool {
	t.Helper()
	_, ok, err := f.store.Get(context.Background(), "device:"+deviceID+":"+key)
	require.NoError(t, err)
	return ok
}

func (f *testFixture) signedIn(t *testing.T) *http.Cookie {
	t.Helper()
	rec, cookie := f.login(t, testEmail, testPassword)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, cookie)
	return cookie
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type errorBody struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields"`
	Retry    bool              `json:"retry"`
	Redirect string            `json:"redirect"`
	Notice   string            `json:"notice"`
}

func documentForm(t *testing.T, fields map[string]string, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"truckNumber": "T-100",
		"loadedDate":  "2025-02-14",
		"at20Depot":   "Kisumu",
		"product":     "Diesel",
		"destination": "Kampala",
	}
}

func (f *testFixture) createDocument(t *testing.T, cookie *http.Cookie, fields map[string]string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := documentForm(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, server.RouteDocuments, body)
	req.Header.Set("Content-Type", contentType)
	return f.do(req, cookie)
}

func TestLogin_MountsDeviceAndReturnsView(t *testing.T) {
	f := setupTestFixture(t)

	rec, cookie := f.login(t, testEmail, testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	view := decode[authcache.View](t, rec)
	require.NotNil(t, view.CurrentUser)
	require.Equal(t, testEmail, view.CurrentUser.Email)
	require.Equal(t, "Jane.doe", view.UserInfo.DisplayName)
	require.Equal(t, 1, f.registry.Len())

	me := f.do(httptest.NewRequest(http.MethodGet, server.RouteMe, nil), cookie)
	require.Equal(t, http.StatusOK, me.Code)
	require.Equal(t, testEmail, decode[authcache.View](t, me).CurrentUser.Email)
}

func TestLogin_IgnoresCookieSentBeforeSignIn(t *testing.T) {
	f := setupTestFixture(t)
	planted := &http.Cookie{Name: "device_id", Value: "attacker-chosen"}

	rec, cookie := f.loginWithCookie(t, testEmail, testPassword, planted)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookie)
	require.NotEqual(t, planted.Value, cookie.Value)

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteMe, nil), planted)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteMe, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_AgainSignsOutPreviousDevice(t *testing.T) {
	f := setupTestFixture(t)
	first := f.signedIn(t)

	rec, second := f.loginWithCookie(t, testEmail, testPassword, first)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEqual(t, first.Value, second.Value)
	require.Equal(t, 1, f.registry.Len())

	_, err := f.registry.Get(first.Value)
	require.ErrorIs(t, err, errs.ErrUnknownDevice)
	require.False(t, f.stored(t, first.Value, kvstore.KeyAuthUser))
	require.False(t, f.stored(t, first.Value, kvstore.KeyLastActivity))
	require.True(t, f.stored(t, second.Value, kvstore.KeyAuthUser))
}

func TestLogin_RejectedCredentials(t *testing.T) {
	f := setupTestFixture(t)

	rec, cookie := f.login(t, testEmail, "WrongPassword1")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, cookie)
	require.Equal(t, "Incorrect password.", decode[server.LoginView](t, rec).Error)
	require.Equal(t, 0, f.registry.Len())

	rec, _ = f.login(t, "not-an-email", testPassword)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid email address format.", decode[server.LoginView](t, rec).Error)

	metricsRec := f.do(httptest.NewRequest(http.MethodGet, server.RouteMetrics, nil), nil)
	require.Contains(t, metricsRec.Body.String(), `truckdocs_sign_in_failures_total{kind="wrong-password"} 1`)
}

func TestLogin_MissingFields(t *testing.T) {
	f := setupTestFixture(t)

	rec, _ := f.login(t, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Email and password are required", decode[server.LoginView](t, rec).Error)
}

func TestSessionRoutes_RequireMountedDevice(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, server.RouteSessionStatus, nil), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "/login", decode[errorBody](t, rec).Redirect)

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteDocuments, nil), &http.Cookie{Name: "device_id", Value: "unknown"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, decode[errorBody](t, rec).Notice)
}

func TestSessionStatus_WarningThenInactivityLogout(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	d, err := f.registry.Get(cookie.Value)
	require.NoError(t, err)

	f.advance(6 * time.Minute)
	require.NoError(t, d.Monitor.Check(context.Background()))

	rec := f.do(httptest.NewRequest(http.MethodGet, server.RouteSessionStatus, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[timeout.TimerState](t, rec)
	require.True(t, state.ShowWarning)
	require.Equal(t, 60, state.TimeLeftSeconds)
	require.Equal(t, "WARNING", rec.Header().Get("X-Session-Status"))
	require.Equal(t, "60", rec.Header().Get("X-Session-Time-Left"))

	f.advance(time.Minute)
	require.NoError(t, d.Monitor.Check(context.Background()))

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteSessionStatus, nil), cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[errorBody](t, rec)
	require.Equal(t, "/login", body.Redirect)
	require.Equal(t, timeout.LogoutNotice, body.Notice)
	require.Equal(t, 0, f.registry.Len())

	login := f.do(httptest.NewRequest(http.MethodGet, server.RouteLogin, nil), cookie)
	require.Equal(t, http.StatusOK, login.Code)
	require.Equal(t, timeout.LogoutNotice, decode[server.LoginView](t, login).Notice)

	login = f.do(httptest.NewRequest(http.MethodGet, server.RouteLogin, nil), cookie)
	require.Empty(t, decode[server.LoginView](t, login).Notice)
}

func TestExtendSession_DismissesWarning(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	d, err := f.registry.Get(cookie.Value)
	require.NoError(t, err)
	f.advance(6*time.Minute + 30*time.Second)
	require.NoError(t, d.Monitor.Check(context.Background()))
	require.True(t, d.Monitor.State().ShowWarning)

	rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteSessionExtend, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[timeout.TimerState](t, rec)
	require.False(t, state.ShowWarning)
	require.Equal(t, timeout.Active, state.Status)
}

func TestActivity_ValidatesEvent(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteSessionActivity, strings.NewReader(`{"event":"click"}`)), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, timeout.Active, decode[timeout.TimerState](t, rec).Status)

	rec = f.do(httptest.NewRequest(http.MethodPost, server.RouteSessionActivity, strings.NewReader(`{"event":"hover"}`)), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, server.RouteSessionActivity, strings.NewReader(`not json`)), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisibility_IsRecordedOnDevice(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteSessionVisibility, strings.NewReader(`{"visible":false}`)), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	d, err := f.registry.Get(cookie.Value)
	require.NoError(t, err)
	require.False(t, d.Visible())
}

func TestLogout_UnmountsWithoutNotice(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	require.True(t, f.stored(t, cookie.Value, kvstore.KeyAuthUser))

	rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteAuthLogout, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, f.registry.Len())
	require.False(t, f.stored(t, cookie.Value, kvstore.KeyAuthUser))
	require.False(t, f.stored(t, cookie.Value, kvstore.KeyLastActivity))
	require.True(t, f.stored(t, cookie.Value, kvstore.KeyUserInfo))

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteMe, nil), cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, decode[errorBody](t, rec).Notice)

	rec = f.do(httptest.NewRequest(http.MethodPost, server.RouteAuthLogout, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_HiddenTabKeepsSessionFlag(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteSessionVisibility, strings.NewReader(`{"visible":false}`)), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, server.RouteAuthLogout, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, f.stored(t, cookie.Value, kvstore.KeyAuthUser))
	require.False(t, f.stored(t, cookie.Value, kvstore.KeyLastActivity))
}

func TestDocuments_CreateListAndExport(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	rec := f.createDocument(t, cookie, validFields(), map[string]string{"gatePass": "gate.png", "tr812": "tr812.png"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[documents.Record](t, rec)
	require.Equal(t, "https://i.ibb.co/gate.png", created.GatePassURL)
	require.Equal(t, "https://i.ibb.co/tr812.png", created.TR812URL)
	require.Nil(t, created.EPermitURL)
	require.Equal(t, testEmail, created.OwnerEmail)

	fields := validFields()
	fields["truckNumber"] = "T-200"
	fields["loadedDate"] = "2025-01-03"
	rec = f.createDocument(t, cookie, fields, map[string]string{"gatePass": "gate2.png", "tr812": "tr2.png", "ePermit": "permit.png"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "https://i.ibb.co/permit.png", *decode[documents.Record](t, rec).EPermitURL)

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteDocuments, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Documents []documents.Record `json:"documents"`
		Sort      documents.Sort     `json:"sort"`
	}](t, rec)
	require.Len(t, list.Documents, 2)
	require.Equal(t, "T-100", list.Documents[0].TruckNumber)
	require.Equal(t, documents.DefaultSort, list.Sort)

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteDocuments+"?search=t-200", nil), cookie)
	list = decode[struct {
		Documents []documents.Record `json:"documents"`
		Sort      documents.Sort     `json:"sort"`
	}](t, rec)
	require.Len(t, list.Documents, 1)

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteDocumentsExport+"?sort=truckNumber&direction=asc", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="truck-documents-2025-03-01.csv"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "Truck Number,Loaded Date,Product,From (AT20 Depot),Destination,Created At\n"+
		"T-100,2/14/2025,Diesel,Kisumu,Kampala,3/1/2025\n"+
		"T-200,1/3/2025,Diesel,Kisumu,Kampala,3/1/2025", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/documents/"+created.ID+"/export.csv", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "T-100,2/14/2025")
	require.NotContains(t, rec.Body.String(), "T-200")

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteDocumentMonths, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[struct {
		Months []documents.MonthGroup `json:"months"`
	}](t, rec).Months, 2)
}

func TestDocuments_ValidationErrorsAreFieldLocal(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	fields := validFields()
	delete(fields, "product")
	rec := f.createDocument(t, cookie, fields, map[string]string{"gatePass": "gate.png"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	require.Equal(t, "Required", body.Fields["product"])
	require.Equal(t, "Please select all required files", body.Fields["tr812"])
	require.NotContains(t, body.Fields, "gatePass")
}

func TestDocuments_UploadRejected(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	rec := f.createDocument(t, cookie, validFields(), map[string]string{"gatePass": "reject.png", "tr812": "tr812.png"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteDocuments, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"documents":[]`)
}

func TestDocuments_QueryFailureAsksForRetry(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)
	f.repo.Err = errors.New("connection reset")

	rec := f.do(httptest.NewRequest(http.MethodGet, server.RouteDocuments, nil), cookie)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[errorBody](t, rec)
	require.True(t, body.Retry)
	require.Equal(t, "Failed to load documents. Please check your connection and try again.", body.Error)
}

func TestDocuments_BadSortAndUnknownRecord(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.signedIn(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, server.RouteDocuments+"?sort=colour", nil), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/documents/missing/export.csv", nil), cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth_ReportsFailingChecks(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, server.RouteHealth, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	f.mu.Lock()
	f.healthy = errors.New("disk full")
	f.mu.Unlock()

	rec = f.do(httptest.NewRequest(http.MethodGet, server.RouteHealth, nil), nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "disk full")
}

func TestCors_PreflightForAllowedOrigin(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteDocuments, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := f.do(req, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteDocuments, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = f.do(req, nil)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
