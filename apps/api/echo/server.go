// Package echoapi serves the masomo REST API with echo.
package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
	}

	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    user.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts    *Options
		deps    *Deps
		app     *echo.Echo
		tokens  *tokenIssuer
		limiter *ipRateLimiter
	}
)

var _ Server = (*server)(nil)

// NewServer sets up the API. signalShutdown is called when a handler fails with a core shutdown error.
func NewServer(opts *Options, deps *Deps, signalShutdown func()) Server {
	s := &server{
		opts:    opts,
		deps:    deps,
		app:     echo.New(),
		tokens:  newTokenIssuer(deps.Conf),
		limiter: newIPRateLimiter(deps.Conf.Server.ForgotPasswordRate, deps.Conf.Server.ForgotPasswordBurst),
	}
	s.setup(signalShutdown)
	return s
}

func (s *server) setup(signalShutdown func()) {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := s.tokens.middleware()
	session := sessionMiddleware(s.deps.UserSvc, s.tokens)

	registerAccountAPI(api, jwt, session, s.limiter.middleware(), &accountApi{
		svc:      s.deps.UserSvc,
		tokens:   s.tokens,
		validate: s.deps.Validate,
		logger:   s.deps.Logger,
	})
	registerUserAPI(api, jwt, session, s.deps.UserSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Masomo API!")
}
