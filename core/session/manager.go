package session

import (
	"context"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
)

var (
	// ErrSuperseded is returned by a transition whose result was discarded because the session was
	// signed out, invalidated or reloaded while it was in flight.
	ErrSuperseded = errors.New("session changed while the request was in flight")
	// ErrNoSession is returned by RefreshIdentity when there is no token to refresh.
	ErrNoSession = errors.New("no session")

	errInvalidLoginResponse = errors.New("invalid login response")

	// user facing messages
	msgGeneric        = "something went wrong, please try again"
	msgUnavailable    = "the service is unavailable, please try again later"
	msgSignInFailed   = "invalid email or password"
	msgSessionExpired = "your session has expired, please sign in again"
)

// Manager performs the session transitions: sign-in, sign-up, sign-out and refresh-identity.
// It is the only writer of its Store and keeps it mirrored in its CredentialStore.
type Manager struct {
	store      *Store
	creds      CredentialStore
	backend    Backend
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger

	// commitMu covers persistence writes together with the matching store update.
	commitMu sync.Mutex
	epoch    uint64 // advanced whenever the session is cleared or replaced from outside a transition
	inflight int
}

func NewManager(
	store *Store,
	creds CredentialStore,
	backend Backend,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) *Manager {
	return &Manager{
		store:      store,
		creds:      creds,
		backend:    backend,
		validate:   validate,
		translator: translator,
		logger:     logger,
	}
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session { return m.store.Session() }

// Token returns the current bearer token, if any.
func (m *Manager) Token() string { return m.store.Token() }

// Subscribe registers fn to be notified of every session change. See Store.Subscribe.
func (m *Manager) Subscribe(fn func(Session)) (cancel func()) { return m.store.Subscribe(fn) }

// Hydrate restores the session from persistence. It must run before any protected view is rendered.
func (m *Manager) Hydrate() {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.adoptLocked()
	m.store.update(func(s *Session) { s.Hydrated = true })
}

// Reload re-reads persistence after it was changed by another process.
func (m *Manager) Reload() {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.adoptLocked() {
		m.logger.Debug("session reloaded from persistence")
	}
}

// adoptLocked replaces the session with the persisted credentials and reports whether it changed.
func (m *Manager) adoptLocked() bool {
	creds, ok := m.creds.Load()
	if !ok {
		creds = Credentials{}
	}
	if creds.Identity != nil && !creds.Identity.Valid() {
		creds.Identity = nil
	}

	cur := m.store.Session()
	if cur.Token == creds.Token && equal(Session{Identity: cur.Identity}, Session{Identity: creds.Identity}) {
		return false
	}

	m.epoch++
	m.store.update(func(s *Session) {
		s.Token = creds.Token
		s.Identity = creds.Identity
		s.Error = ""
	})
	return true
}

// begin enters a transition: the prior error is cleared and the session is loading until end.
func (m *Manager) begin() uint64 {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.inflight++
	m.store.update(func(s *Session) {
		s.IsLoading = true
		s.Error = ""
	})
	return m.epoch
}

func (m *Manager) end() {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.inflight--
	loading := m.inflight > 0
	m.store.update(func(s *Session) { s.IsLoading = loading })
}

func (m *Manager) setErrorLocked(msg string) {
	m.store.update(func(s *Session) { s.Error = msg })
}

// clearLocked empties the session and its persistence, leaving msg as the session error.
func (m *Manager) clearLocked(msg string) error {
	m.epoch++
	err := m.creds.Clear()
	m.store.update(func(s *Session) {
		s.Token = ""
		s.Identity = nil
		s.Error = msg
	})
	if err != nil {
		m.logger.Error("clearing credentials", errors.Wrap(err, "clearing credentials"))
		return errors.Wrap(err, "clearing credentials")
	}
	return nil
}

// SignIn exchanges credentials for a token and identity, persists them and authenticates the session.
// Invalid input is rejected before any request. On failure the session keeps its token and identity
// and carries the error message. When sign-ins overlap, the one whose response arrives last wins.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	creds := user.Credentials{Email: email, Password: password}
	if err := creds.Validate(m.validate); err != nil {
		return core.TranslateValidationError(err, m.translator)
	}

	epoch := m.begin()
	defer m.end()

	token, identity, err := m.backend.Login(ctx, creds)

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.epoch != epoch {
		return ErrSuperseded
	}
	if err == nil && (token == "" || !identity.Valid()) {
		err = errInvalidLoginResponse
	}
	if err != nil {
		m.setErrorLocked(errorMessage(err, msgSignInFailed))
		return errors.Wrap(err, "signing in")
	}

	if err = m.creds.Save(token, identity); err != nil {
		m.setErrorLocked(msgGeneric)
		m.logger.Error("saving credentials", errors.Wrap(err, "saving credentials"))
		return errors.Wrap(err, "saving credentials")
	}
	m.store.update(func(s *Session) {
		s.Token = token
		s.Identity = &identity
		s.Error = ""
	})
	m.logger.Debug("signed in", identity)
	return nil
}

// SignUp registers a new account. It does not sign in: the caller must do so separately.
func (m *Manager) SignUp(ctx context.Context, nu user.NewUser) error {
	if err := nu.Validate(m.validate); err != nil {
		return core.TranslateValidationError(err, m.translator)
	}

	epoch := m.begin()
	defer m.end()

	err := m.backend.Register(ctx, nu)
	if err == nil {
		return nil
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	if m.epoch == epoch {
		m.setErrorLocked(errorMessage(err, msgGeneric))
	}
	return errors.Wrap(err, "signing up")
}

// SignOut tells the backend, then clears the session and its persistence whatever the backend said.
// It is idempotent.
func (m *Manager) SignOut(ctx context.Context) error {
	m.begin()
	defer m.end()

	if m.Token() != "" {
		if err := m.backend.Logout(ctx); err != nil {
			m.logger.Debug("logging out", err)
		}
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	return m.clearLocked("")
}

// Invalidate clears the session after the backend rejected token. A token the session no longer
// holds is ignored, and false is returned.
func (m *Manager) Invalidate(token string) bool {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if token == "" || m.store.Token() != token {
		return false
	}
	_ = m.clearLocked(msgSessionExpired)
	return true
}

// RefreshIdentity fetches the identity of the current token.
// A rejected token clears the session; any other failure leaves the token in place for a retry.
func (m *Manager) RefreshIdentity(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		return ErrNoSession
	}

	epoch := m.begin()
	defer m.end()

	identity, err := m.backend.Me(ctx)

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if err == nil && !identity.Valid() {
		err = core.ErrUnauthorized
	}
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			if m.store.Token() == token {
				_ = m.clearLocked(msgSessionExpired)
			}
			return errors.Wrap(err, "refreshing identity")
		}
		if m.epoch == epoch {
			m.setErrorLocked(errorMessage(err, msgGeneric))
		}
		return errors.Wrap(err, "refreshing identity")
	}

	if m.epoch != epoch || m.store.Token() != token {
		return ErrSuperseded
	}
	if err = m.creds.Save(token, identity); err != nil {
		// the token is persisted already; the identity will be fetched again next time.
		m.logger.Warn("saving refreshed identity", errors.Wrap(err, "saving credentials"))
	}
	m.store.update(func(s *Session) { s.Identity = &identity })
	return nil
}

// errorMessage returns the message to show for err.
func errorMessage(err error, fallback string) string {
	var msgr interface{ Message() string }
	if errors.As(err, &msgr) && msgr.Message() != "" {
		return msgr.Message()
	}
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	if errors.Is(err, core.ErrUnavailable) {
		return msgUnavailable
	}
	return fallback
}
