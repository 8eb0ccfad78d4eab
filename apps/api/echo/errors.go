package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionRevoked     = echo.NewHTTPError(http.StatusUnauthorized, "your session has ended, please sign in again")
	errAccountDeactivated = echo.NewHTTPError(http.StatusUnauthorized, user.ErrAccountDeactivated.Error())
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyRequests    = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
)

// response is the envelope of every API response.
type response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Token   string            `json:"token,omitempty"`
	User    *user.Identity    `json:"user,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		res := response{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				res.Message = fmt.Sprint(origErr.Message)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			res.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			vErr := core.TranslateValidationError(origErr, translator).(*core.ValidationError)
			code = http.StatusBadRequest
			res.Message = vErr.Error()
			res.Errors = vErr.FieldMap()
		case *core.ValidationError:
			code = http.StatusBadRequest
			res.Message = origErr.Error()
			if len(origErr.Fields) > 0 {
				res.Errors = origErr.FieldMap()
			}
		default:
			switch origErr {
			case user.ErrInvalidCredentials:
				code = http.StatusUnauthorized
				res.Message = origErr.Error()
			case user.ErrAccountDeactivated:
				code = http.StatusForbidden
				res.Message = origErr.Error()
			case user.ErrInvalidResetToken:
				code = http.StatusBadRequest
				res.Message = origErr.Error()
			case user.ErrNotFound:
				code = http.StatusNotFound
				res.Message = origErr.Error()
			default: // any other error is a server error
				res.Message = http.StatusText(http.StatusInternalServerError)

				var id user.Identity
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					id = user.Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role, School: claims.School}
				}
				logger.Error(res.Message, errors.Wrap(err, res.Message), id)

				if ctx.Echo().Debug {
					res.Message = err.Error()
				}
				// shutting down...
				if core.IsShutdown(err) && signalShutdown != nil {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
