// Package session holds the client-side record of who is signed in and the transitions that change it.
package session

import (
	"sync"

	"github.com/trezcool/masomo-dashboard/core/user"
)

// State of a Session.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session describes the current client identity.
type Session struct {
	Identity  *user.Identity
	Token     string
	IsLoading bool
	Error     string
	// Hydrated is set once the session has been restored from persistence.
	Hydrated bool
}

// IsAuthenticated is true iff both Token and Identity are present.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.Identity != nil
}

func (s Session) State() State {
	switch {
	case s.IsAuthenticated():
		return StateAuthenticated
	case s.IsLoading:
		return StateAuthenticating
	default:
		return StateAnonymous
	}
}

// Role of the signed in user, empty when there is none.
func (s Session) Role() user.Role {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

func (s Session) clone() Session {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

// Store is the single in-memory source of truth for the Session.
// It is read by everyone and only written by the Manager.
type Store struct {
	mu   sync.RWMutex
	sess Session

	// notifyMu serializes updates with their notifications so subscribers observe changes in order.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func(Session)
	nextSub  int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(Session))}
}

// Session returns a copy of the current session.
func (st *Store) Session() Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sess.clone()
}

// Token returns the current bearer token, if any.
func (st *Store) Token() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sess.Token
}

// Subscribe registers fn to be called with the new Session after every change.
// fn runs synchronously on the updating goroutine: it must not start a session transition itself.
func (st *Store) Subscribe(fn func(Session)) (cancel func()) {
	st.subsMu.Lock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = fn
	st.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			st.subsMu.Lock()
			delete(st.subs, id)
			st.subsMu.Unlock()
		})
	}
}

func (st *Store) update(fn func(s *Session)) {
	st.notifyMu.Lock()
	defer st.notifyMu.Unlock()

	st.mu.Lock()
	prev := st.sess.clone()
	fn(&st.sess)
	sess := st.sess.clone()
	st.mu.Unlock()

	if equal(prev, sess) {
		return
	}

	st.subsMu.Lock()
	subs := make([]func(Session), 0, len(st.subs))
	for i := 0; i < st.nextSub; i++ {
		if fn, ok := st.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	st.subsMu.Unlock()

	for _, fn := range subs {
		fn(sess.clone())
	}
}

func equal(a, b Session) bool {
	if a.Token != b.Token || a.IsLoading != b.IsLoading || a.Error != b.Error || a.Hydrated != b.Hydrated {
		return false
	}
	if a.Identity == nil || b.Identity == nil {
		return a.Identity == b.Identity
	}
	return *a.Identity == *b.Identity
}
