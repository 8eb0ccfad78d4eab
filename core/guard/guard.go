// Package guard decides whether a protected view may be rendered for the current session.
package guard

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core/navigation"
	"github.com/trezcool/masomo-dashboard/core/session"
	"github.com/trezcool/masomo-dashboard/core/user"
)

// ErrIdentityUnavailable is reported while a session holds a token whose identity could not be fetched.
var ErrIdentityUnavailable = errors.New("identity unavailable")

// Outcome of a Check.
type Outcome int

const (
	// Pending means no decision can be made yet: render a loading indicator and check again.
	Pending Outcome = iota
	Redirect
	Render
)

func (o Outcome) String() string {
	switch o {
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return "pending"
	}
}

// View is a protected view. Empty Roles means any authenticated user.
type View struct {
	Path  string
	Roles []user.Role
}

// ViewFor returns the view at path, restricted to the roles whose menu reaches it.
// ok is false when no role can reach path.
func ViewFor(path string) (View, bool) {
	roles := navigation.RolesFor(path)
	return View{Path: path, Roles: roles}, len(roles) > 0
}

func (v View) allows(role user.Role) bool {
	if len(v.Roles) == 0 {
		return role.IsValid()
	}
	for _, r := range v.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Decision struct {
	Outcome Outcome
	// Path to redirect to.
	Path string
	// Err is the refresh-identity failure that led to the decision, if any.
	Err error
}

// Sessions is what the Guard needs from the session manager.
type Sessions interface {
	Session() session.Session
	RefreshIdentity(ctx context.Context) error
}

type Guard struct {
	sessions Sessions

	mu sync.Mutex
	// refreshed holds the tokens refresh-identity was already triggered for.
	refreshed  map[string]bool
	refreshing bool
}

func New(sessions Sessions) *Guard {
	return &Guard{
		sessions:  sessions,
		refreshed: make(map[string]bool),
	}
}

// Check decides what to do with view for the current session.
// A session holding a token but no identity has its identity refreshed once per token before deciding;
// checks made while that refresh runs are Pending.
func (g *Guard) Check(ctx context.Context, view View) Decision {
	sess := g.sessions.Session()
	if !sess.Hydrated {
		return Decision{Outcome: Pending}
	}
	if sess.Token == "" {
		return Decision{Outcome: Redirect, Path: navigation.SignInPath}
	}

	var err error
	if sess.Identity == nil {
		var pending bool
		if sess, pending, err = g.refresh(ctx, sess.Token); pending {
			return Decision{Outcome: Pending}
		}
		if sess.Token == "" {
			return Decision{Outcome: Redirect, Path: navigation.SignInPath, Err: err}
		}
		if sess.Identity == nil {
			// the token survived a failed refresh: wait for Retry
			if err == nil {
				err = ErrIdentityUnavailable
			}
			return Decision{Outcome: Pending, Err: err}
		}
	}

	if !view.allows(sess.Identity.Role) {
		return Decision{Outcome: Redirect, Path: navigation.HomeRouteFor(sess.Identity.Role), Err: err}
	}
	return Decision{Outcome: Render, Err: err}
}

// Retry lets the next Check refresh the identity of tokens it already tried.
func (g *Guard) Retry() {
	g.mu.Lock()
	g.refreshed = make(map[string]bool)
	g.mu.Unlock()
}

func (g *Guard) refresh(ctx context.Context, token string) (sess session.Session, pending bool, err error) {
	g.mu.Lock()
	if g.refreshing {
		g.mu.Unlock()
		return session.Session{}, true, nil
	}
	if g.refreshed[token] {
		// already tried: decide from whatever the session is now
		g.mu.Unlock()
		return g.sessions.Session(), false, nil
	}
	g.refreshed[token] = true
	g.refreshing = true
	g.mu.Unlock()

	err = g.sessions.RefreshIdentity(ctx)

	g.mu.Lock()
	g.refreshing = false
	g.mu.Unlock()
	return g.sessions.Session(), false, err
}
