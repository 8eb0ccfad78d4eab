package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
)

const (
	msgAccountCreated = "your account has been created, you can now sign in"
	msgSignedOut      = "you have been signed out"
	msgResetRequested = "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
	msgResetLinkValid = "the reset link is valid"
	msgPasswordReset  = "your password has been reset, you can now sign in"
)

type accountApi struct {
	svc      user.Service
	tokens   *tokenIssuer
	validate *validator.Validate
	logger   core.Logger
}

func registerAccountAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	session echo.MiddlewareFunc,
	limiter echo.MiddlewareFunc,
	api *accountApi,
) {
	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
	ag.POST("/forgot-password", api.forgotPassword, limiter)
	ag.GET("/verify-reset-token/:token", api.verifyResetToken)
	ag.POST("/reset-password", api.resetPassword, limiter)

	// authed endpoints
	ag.POST("/logout", api.logout, jwt, session)
	ag.GET("/me", api.me, jwt, session)
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.generate(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	id := usr.Identity()
	api.logger.Info("user signed in", id)
	return ctx.JSON(http.StatusOK, response{Success: true, Token: token, User: &id})
}

func (api *accountApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, response{Success: true, Message: msgAccountCreated, Data: usr.Identity()})
}

func (api *accountApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	api.tokens.revoke(claims)
	return ctx.JSON(http.StatusOK, response{Success: true, Message: msgSignedOut})
}

func (api *accountApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Data: usr.Identity()})
}

func (api *accountApi) forgotPassword(ctx echo.Context) error {
	var data ForgotPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgotPasswordRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	switch errors.Cause(err) {
	case nil, user.ErrNotFound, user.ErrAccountDeactivated:
	default:
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Message: msgResetRequested})
}

func (api *accountApi) verifyResetToken(ctx echo.Context) error {
	if _, err := api.svc.VerifyResetToken(ctx.Request().Context(), ctx.Param("token")); err != nil {
		return errors.Wrap(err, "verifying reset token")
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Message: msgResetLinkValid})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Message: msgPasswordReset})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (fr *ForgotPasswordRequest) Validate(validate *validator.Validate) error {
	fr.Email = core.CleanString(fr.Email, true /* lower */)
	return validate.Struct(fr)
}
