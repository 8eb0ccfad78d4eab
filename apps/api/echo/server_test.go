package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
	emailsvc "github.com/trezcool/masomo-dashboard/services/email"
	"github.com/trezcool/masomo-dashboard/tests"
)

var errMissingToken = response{Message: "missing or malformed jwt"}

type testEnv struct {
	conf    *core.Config
	app     *server
	usrRepo user.Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := testutil.NewConfig(t)
	validate, translator := testutil.NewValidator(conf)
	usrSvc, usrRepo, mailSvc := testutil.NewUserService(t, conf)

	app := NewServer(
		&Options{DisableReqLogs: true},
		&Deps{
			Conf:       conf,
			Logger:     testutil.Logger{T: t},
			UserSvc:    usrSvc,
			Validate:   validate,
			Translator: translator,
		},
		nil,
	)
	return &testEnv{conf: conf, app: app.(*server), usrRepo: usrRepo, mailSvc: mailSvc}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (env *testEnv) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, env *testEnv, usr user.User) string {
	t.Helper()
	token, err := env.app.tokens.generate(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func failure(msg string, fldErrs ...map[string]string) response {
	res := response{Message: msg}
	if len(fldErrs) > 0 {
		res.Errors = fldErrs[0]
	}
	return res
}

func success(data interface{}) response {
	return response{Success: true, Data: data}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func TestHome(t *testing.T) {
	env := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	env.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo API!", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	req.Header.Set("X-Request-ID", "req-42")
	env.app.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestIPRateLimiter(t *testing.T) {
	l := newIPRateLimiter(1, 2)
	now := l.nowFunc()
	l.nowFunc = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.allow("10.0.0.2"), "buckets are per IP")

	now = now.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"), "refilled")

	now = now.Add(visitorTTL + time.Second)
	l.allow("10.0.0.3")
	l.mu.Lock()
	assert.Len(t, l.visitors, 1, "stale visitors are pruned")
	l.mu.Unlock()
}

func TestRevocations(t *testing.T) {
	now := time.Now()
	r := newRevocations(func() time.Time { return now })

	r.add("", now.Add(time.Hour))
	r.add("a", now.Add(time.Hour))
	r.add("b", now.Add(time.Minute))
	assert.True(t, r.has("a"))
	assert.False(t, r.has(""))

	now = now.Add(2 * time.Minute)
	r.add("c", now.Add(time.Hour))
	assert.True(t, r.has("a"))
	assert.False(t, r.has("b"), "expired tokens are forgotten")
}
