package apisvc_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/session"
	"github.com/trezcool/masomo-dashboard/core/user"
	apisvc "github.com/trezcool/masomo-dashboard/services/api"
	credstore "github.com/trezcool/masomo-dashboard/storage/credentials"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type sessionEnv struct {
	mgr    *session.Manager
	client *apisvc.Client
	creds  *credstore.FileStore

	mu     sync.Mutex
	events []apisvc.Event
}

func (env *sessionEnv) listen(evt apisvc.Event) {
	env.mu.Lock()
	env.events = append(env.events, evt)
	env.mu.Unlock()
}

func (env *sessionEnv) eventKinds() []apisvc.EventKind {
	env.mu.Lock()
	defer env.mu.Unlock()
	kinds := make([]apisvc.EventKind, 0, len(env.events))
	for _, evt := range env.events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

// newSessionEnv wires a Manager to handler the way the dashboard does.
func newSessionEnv(t *testing.T, handler http.Handler) *sessionEnv {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, "CD")

	env := &sessionEnv{creds: credstore.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"), time.Hour)}
	store := session.NewStore()
	auth := apisvc.NewAuthenticator(nil, store, nopLogger{})
	env.client = apisvc.NewClient(srv.URL+"/api", auth)
	env.mgr = session.NewManager(store, env.creds, env.client, validate, translator, nopLogger{})
	auth.SetInvalidator(env.mgr)
	auth.Listen(env.listen)
	env.mgr.Hydrate()
	return env
}

// loginHandler signs anybody in with the token "jwt-<name>", name being the local part of the email.
func loginHandler(w http.ResponseWriter, r *http.Request) {
	var creds user.Credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)
	name := strings.SplitN(creds.Email, "@", 2)[0]
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"token":   "jwt-" + name,
		"user": user.Identity{
			ID:       name,
			Email:    creds.Email,
			Role:     user.RoleTeacher,
			School:   "s1",
			IsActive: true,
		},
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = io.WriteString(w, `{"success":false,"message":"invalid or expired jwt"}`)
}

func TestSession_lateUnauthorizedKeepsNewerSession(t *testing.T) {
	arrived, release := make(chan struct{}), make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", loginHandler)
	mux.HandleFunc("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		unauthorized(w)
	})
	env := newSessionEnv(t, mux)
	ctx := context.Background()

	require.NoError(t, env.mgr.SignIn(ctx, "ada@school.com", "password123"))
	require.Equal(t, "jwt-ada", env.mgr.Token())

	done := make(chan error, 1)
	go func() {
		_, err := env.client.Get(ctx, "/slow")
		done <- err
	}()
	<-arrived

	require.NoError(t, env.mgr.SignIn(ctx, "tom@school.com", "password123"))
	close(release)
	assert.Error(t, <-done)

	sess := env.mgr.Session()
	assert.Equal(t, "jwt-tom", sess.Token)
	assert.True(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Error)
	creds, ok := env.creds.Load()
	require.True(t, ok, "credentials are kept")
	assert.Equal(t, "jwt-tom", creds.Token)
	assert.Empty(t, env.eventKinds())
}

func TestSession_currentTokenRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", loginHandler)
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) { unauthorized(w) })
	env := newSessionEnv(t, mux)
	ctx := context.Background()

	require.NoError(t, env.mgr.SignIn(ctx, "ada@school.com", "password123"))
	_, err := env.client.Get(ctx, "/users")
	require.Error(t, err)

	assert.False(t, env.mgr.Session().IsAuthenticated())
	_, ok := env.creds.Load()
	assert.False(t, ok)
	assert.Equal(t, []apisvc.EventKind{apisvc.EventUnauthorized}, env.eventKinds())
}

func TestSession_signOutWithRevokedToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", loginHandler)
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-ada", r.Header.Get("Authorization"))
		unauthorized(w)
	})
	env := newSessionEnv(t, mux)
	ctx := context.Background()

	require.NoError(t, env.mgr.SignIn(ctx, "ada@school.com", "password123"))
	require.NoError(t, env.mgr.SignOut(ctx))

	sess := env.mgr.Session()
	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Error, "a sign-out is not an expired session")
	assert.Empty(t, env.eventKinds())
}
