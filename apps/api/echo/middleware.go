package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core/user"
)

// sessionMiddleware rejects revoked tokens and loads the user a token was issued for.
// It must run after the JWT middleware.
func sessionMiddleware(svc user.Service, tokens *tokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if tokens.revoked.has(claims.Id) {
				return errSessionRevoked
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// roleMiddleware only lets users holding one of roles through.
func roleMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// canSee reports whether viewer may see usr: themselves, anyone for platform admins,
// the members of their school for school admins.
func canSee(viewer, usr user.User) bool {
	switch {
	case viewer.ID == usr.ID:
		return true
	case viewer.Role == user.RolePlatformAdmin:
		return true
	case viewer.Role == user.RoleSchoolAdmin:
		return viewer.School != "" && viewer.School == usr.School
	}
	return false
}

// ctxUserOrAdminMiddleware sets the user identified by the `:id` path param as the context "object".
// Users the context user cannot see are not found.
func ctxUserOrAdminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx)
			if err != nil {
				return err
			}

			usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !canSee(ctxUsr, usr) {
				return errHttpNotFound
			}
			ctx.Set("object", usr)
			return next(ctx)
		}
	}
}
