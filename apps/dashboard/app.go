package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/guard"
	"github.com/trezcool/masomo-dashboard/core/navigation"
	"github.com/trezcool/masomo-dashboard/core/session"
	"github.com/trezcool/masomo-dashboard/core/user"
	apisvc "github.com/trezcool/masomo-dashboard/services/api"
)

const msgSessionEnded = "your session has ended, please sign in again"

type (
	Deps struct {
		Conf   *core.Config
		Logger core.Logger
		Creds  session.CredentialStore
		// CredsPath is watched by the `watch` command. Empty disables it.
		CredsPath string
		// Transport carries the API requests, http.DefaultTransport if nil.
		Transport http.RoundTripper
		Out       io.Writer
	}

	// app is the application context: it is built once per process and owns the single session.
	app struct {
		conf      *core.Config
		logger    core.Logger
		out       io.Writer
		credsPath string

		validate   *validator.Validate
		translator ut.Translator

		store  *session.Store
		mgr    *session.Manager
		auth   *apisvc.Authenticator
		client *apisvc.Client
		guard  *guard.Guard
		nav    *guard.Navigator

		// notified is set once an event notice was shown for the running command.
		notified atomic.Bool
	}
)

// newApp wires the application context and restores the persisted session.
func newApp(deps Deps) *app {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, deps.Conf.PhoneRegion)

	a := &app{
		conf:       deps.Conf,
		logger:     deps.Logger,
		out:        deps.Out,
		credsPath:  deps.CredsPath,
		validate:   validate,
		translator: translator,
		store:      session.NewStore(),
	}
	a.auth = apisvc.NewAuthenticator(deps.Transport, a.store, a.logger)
	a.client = apisvc.NewClient(a.conf.Dashboard.APIBaseURL, a.auth)
	a.mgr = session.NewManager(a.store, deps.Creds, a.client, validate, translator, a.logger)
	a.auth.SetInvalidator(a.mgr)
	a.auth.Listen(a.onEvent)
	a.guard = guard.New(a.mgr)
	a.nav = guard.NewNavigator("/", func(from, to string) {
		a.logger.Debug(fmt.Sprintf("navigated from %s to %s", from, to))
	})

	a.mgr.Hydrate()
	if sess := a.mgr.Session(); sess.IsAuthenticated() {
		a.nav.Navigate(navigation.HomeRouteFor(sess.Identity.Role))
	}
	return a
}

// onEvent is the single listener of the authenticator events.
func (a *app) onEvent(evt apisvc.Event) {
	switch evt.Kind {
	case apisvc.EventUnauthorized:
		a.nav.Navigate(navigation.SignInPath)
		a.notice(noticeWarning, msgSessionEnded)
	case apisvc.EventForbidden:
		a.notice(noticeError, messageOr(evt.Message, "permission denied"))
	case apisvc.EventServerError, apisvc.EventNetworkError:
		a.notice(noticeError, messageOr(evt.Message, "the service is unavailable, please try again later"))
	default:
		return
	}
	a.notified.Store(true)
}

// printError shows err unless an event notice already covered it.
func (a *app) printError(err error) {
	if err == nil || errors.Is(err, errHelp) || a.notified.Load() {
		return
	}

	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		var apiErr *apisvc.APIError
		if errors.As(err, &apiErr) {
			vErr = apiErr.ValidationError()
		}
	}
	if vErr != nil && len(vErr.Fields) > 0 {
		for _, fld := range vErr.Fields {
			a.notice(noticeError, fld.Field+": "+fld.Error)
		}
		return
	}
	if msg := a.mgr.Session().Error; msg != "" {
		a.notice(noticeError, msg)
		return
	}
	a.notice(noticeError, err.Error())
}

func (a *app) notice(kind noticeKind, msg string) {
	fmt.Fprintln(a.out, renderNotice(kind, msg))
}

func (a *app) println(args ...interface{}) {
	fmt.Fprintln(a.out, args...)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
