package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type userApi struct {
	svc user.Service
}

func registerUserAPI(g *echo.Group, jwt, session echo.MiddlewareFunc, svc user.Service) {
	api := userApi{svc: svc}

	ug := g.Group("/users", jwt, session)
	ug.GET("", api.query, roleMiddleware(user.RolePlatformAdmin, user.RoleSchoolAdmin))
	ug.GET("/:id", api.retrieve, ctxUserOrAdminMiddleware(svc))
}

// Handlers

// query lists users. School admins only see the members of their school.
func (api *userApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	filter := bindQueryFilter(ctx)
	if ctxUsr.Role != user.RolePlatformAdmin {
		filter.School = ctxUsr.School
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Data: users})
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Data: usr})
}
