// Package apisvc talks to the masomo REST API on behalf of the dashboard.
package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
)

const defaultTimeout = 30 * time.Second

var errMalformedResponse = errors.New("malformed response")

// APIError is a failed API call: an error response, or no response at all when Status is 0.
type APIError struct {
	Status  int
	Msg     string
	Fields  map[string]string
	Err     error
	Request string
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

// Message is the message to show the user.
func (e *APIError) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Status == 0 || e.Status >= http.StatusInternalServerError {
		return "the service is unavailable, please try again later"
	}
	return ""
}

func (e *APIError) Unwrap() error { return e.Err }

// Is maps the error onto the core error taxonomy.
func (e *APIError) Is(target error) bool {
	switch target {
	case core.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case core.ErrForbidden:
		return e.Status == http.StatusForbidden
	case core.ErrNotFound:
		return e.Status == http.StatusNotFound
	case core.ErrUnavailable:
		return e.Status == 0 || e.Status >= http.StatusInternalServerError
	}
	return false
}

// ValidationError returns the field errors of a 400 response, nil if there are none.
func (e *APIError) ValidationError() *core.ValidationError {
	if len(e.Fields) == 0 {
		return nil
	}
	flds := make([]core.FieldError, 0, len(e.Fields))
	for fld, msg := range e.Fields {
		flds = append(flds, core.FieldError{Field: fld, Error: msg})
	}
	return &core.ValidationError{Err: errors.New(e.Error()), Fields: flds}
}

// envelope is the shape of every API response.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Token   string            `json:"token,omitempty"`
	User    *user.Identity    `json:"user,omitempty"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Client calls the API. Its transport is normally an Authenticator.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, rt http.RoundTripper) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: rt, Timeout: defaultTimeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in interface{}) (envelope, error) {
	var env envelope

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return env, errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return env, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return env, ctx.Err()
		}
		return env, &APIError{Err: err, Request: method + " " + path}
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return env, &APIError{Status: res.StatusCode, Err: err, Request: method + " " + path}
	}
	decodeErr := json.Unmarshal(data, &env)

	if res.StatusCode >= http.StatusBadRequest || (decodeErr == nil && !env.Success) {
		status := res.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadRequest
		}
		return env, &APIError{Status: status, Msg: env.Message, Fields: env.Errors, Request: method + " " + path}
	}
	if decodeErr != nil {
		return env, errors.Wrap(errMalformedResponse, decodeErr.Error())
	}
	return env, nil
}

// Login exchanges credentials for a token and the identity it belongs to.
func (c *Client) Login(ctx context.Context, creds user.Credentials) (string, user.Identity, error) {
	env, err := c.do(WithoutToken(ctx), http.MethodPost, "/auth/login", creds)
	if err != nil {
		return "", user.Identity{}, err
	}
	if env.Token == "" || env.User == nil {
		return "", user.Identity{}, errMalformedResponse
	}
	return env.Token, *env.User, nil
}

func (c *Client) Register(ctx context.Context, nu user.NewUser) error {
	_, err := c.do(WithoutToken(ctx), http.MethodPost, "/auth/register", nu)
	return err
}

// Logout revokes the current token. A rejected token does not count as an invalidation: the caller
// is signing out anyway.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(KeepSession(ctx), http.MethodPost, "/auth/logout", nil)
	return err
}

func (c *Client) Me(ctx context.Context) (user.Identity, error) {
	var id user.Identity
	env, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return id, err
	}
	if err = json.Unmarshal(env.Data, &id); err != nil {
		return id, errors.Wrap(errMalformedResponse, err.Error())
	}
	return id, nil
}

// ForgotPassword asks for a reset link to be mailed to email. The answer does not tell whether the
// account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	env, err := c.do(WithoutToken(ctx), http.MethodPost, "/auth/forgot-password", map[string]string{"email": email})
	return env.Message, err
}

func (c *Client) VerifyResetToken(ctx context.Context, token string) error {
	_, err := c.do(WithoutToken(ctx), http.MethodGet, "/auth/verify-reset-token/"+url.PathEscape(token), nil)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, data user.ResetUserPassword) (string, error) {
	env, err := c.do(WithoutToken(ctx), http.MethodPost, "/auth/reset-password", data)
	return env.Message, err
}

// Get fetches business data at path (relative to the API base URL) and returns its `data` member.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
