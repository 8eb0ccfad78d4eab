package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-dashboard/core"
)

const (
	HeaderRequestID = "X-Request-ID"

	maxPeekSize = 64 << 10
)

type (
	// TokenSource provides the bearer token of the current session.
	TokenSource interface {
		Token() string
	}

	// Invalidator clears the session after the backend rejected its token.
	// Invalidate reports false when token is no longer the session's token.
	Invalidator interface {
		Invalidate(token string) bool
	}

	EventKind int

	// Event reports a response the application must react to.
	Event struct {
		Kind      EventKind
		Status    int
		Method    string
		Path      string
		Message   string
		RequestID string
		Err       error
	}
)

const (
	// EventUnauthorized: the session was invalidated. The listener should navigate to sign-in.
	EventUnauthorized EventKind = iota + 1
	// EventForbidden: the user is signed in but not permitted. The session is untouched.
	EventForbidden
	// EventServerError: 5xx response. The session is untouched.
	EventServerError
	// EventNetworkError: the backend could not be reached. The session is untouched.
	EventNetworkError
)

func (k EventKind) String() string {
	switch k {
	case EventUnauthorized:
		return "unauthorized"
	case EventForbidden:
		return "forbidden"
	case EventServerError:
		return "server_error"
	case EventNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

type anonymousKey struct{}

// WithoutToken marks requests made with ctx as anonymous: no token is attached to them.
func WithoutToken(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	anon, _ := ctx.Value(anonymousKey{}).(bool)
	return anon
}

type keepSessionKey struct{}

// KeepSession marks requests made with ctx as not invalidating the session on a 401.
// The token is still attached.
func KeepSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, keepSessionKey{}, true)
}

func keepsSession(ctx context.Context) bool {
	keep, _ := ctx.Value(keepSessionKey{}).(bool)
	return keep
}

// Authenticator is an http.RoundTripper attaching the session token to outgoing requests
// and turning authorization failures into Events.
// A 401 on a request that carried the session's current token invalidates the session before the
// response is returned.
type Authenticator struct {
	next   http.RoundTripper
	tokens TokenSource
	logger core.Logger

	mu          sync.RWMutex
	invalidator Invalidator
	listener    func(Event)
}

var _ http.RoundTripper = (*Authenticator)(nil)

// NewAuthenticator wraps next, http.DefaultTransport if nil.
func NewAuthenticator(next http.RoundTripper, tokens TokenSource, logger core.Logger) *Authenticator {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Authenticator{next: next, tokens: tokens, logger: logger}
}

// SetInvalidator sets who clears the session on invalidation.
func (a *Authenticator) SetInvalidator(inv Invalidator) {
	a.mu.Lock()
	a.invalidator = inv
	a.mu.Unlock()
}

// Listen registers the single listener of the Events, replacing any previous one.
func (a *Authenticator) Listen(fn func(Event)) {
	a.mu.Lock()
	a.listener = fn
	a.mu.Unlock()
}

func (a *Authenticator) emit(evt Event) {
	a.mu.RLock()
	fn := a.listener
	a.mu.RUnlock()
	if fn != nil {
		fn(evt)
	}
}

func (a *Authenticator) invalidate(token string) bool {
	a.mu.RLock()
	inv := a.invalidator
	a.mu.RUnlock()
	if inv == nil {
		return true
	}
	return inv.Invalidate(token)
}

func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)

	reqID := req.Header.Get(HeaderRequestID)
	if reqID == "" {
		reqID = uuid.NewString()
		req.Header.Set(HeaderRequestID, reqID)
	}

	var token string
	if !isAnonymous(ctx) {
		token = a.tokens.Token()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	withToken := token != ""

	evt := Event{Method: req.Method, Path: req.URL.Path, RequestID: reqID}

	res, err := a.next.RoundTrip(req)
	if err != nil {
		if ctx.Err() == nil {
			evt.Kind = EventNetworkError
			evt.Message = "the service could not be reached"
			evt.Err = err
			a.emit(evt)
		}
		return nil, err
	}

	evt.Status = res.StatusCode
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		if !withToken || keepsSession(ctx) {
			// e.g. failed sign-in: the caller deals with it
			return res, nil
		}
		if !a.invalidate(token) {
			// the session moved on to another token while the request was in flight
			a.logger.Debug("stale unauthorized response", map[string]interface{}{"method": evt.Method, "path": evt.Path, "requestID": reqID})
			return res, nil
		}
		evt.Kind = EventUnauthorized
		evt.Message = peekMessage(res)
	case res.StatusCode == http.StatusForbidden:
		if !withToken {
			return res, nil
		}
		evt.Kind = EventForbidden
		evt.Message = peekMessage(res)
	case res.StatusCode >= http.StatusInternalServerError:
		evt.Kind = EventServerError
		evt.Message = peekMessage(res)
	case res.StatusCode == http.StatusNotFound:
		a.logger.Debug("not found", map[string]interface{}{"method": evt.Method, "path": evt.Path, "requestID": reqID})
		return res, nil
	default:
		return res, nil
	}

	a.logger.Debug("api "+evt.Kind.String(), map[string]interface{}{
		"method":    evt.Method,
		"path":      evt.Path,
		"status":    evt.Status,
		"requestID": reqID,
	})
	a.emit(evt)
	return res, nil
}

// peekMessage reads the message of an error response, leaving the body readable.
func peekMessage(res *http.Response) string {
	if res.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxPeekSize))
	rest := res.Body
	res.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), rest), rest}
	if err != nil {
		return ""
	}

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	return body.Message
}
